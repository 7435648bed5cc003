package analyzer

import (
	"fmt"
	"strings"

	"github.com/loomworks/careerlens/internal/domain"
)

// summarizePrompt builds the map-phase prompt for one chunk. The segment
// position is included so the model keeps chronology intact.
func summarizePrompt(chunk, targetRole string, index, total int) string {
	return fmt.Sprintf(
		"You are a recruiting expert for the %s field. The following is segment %d of %d "+
			"of a candidate's resume. Summarize the facts in this segment that matter for a %s "+
			"application: roles, projects, outcomes, technologies, education, and anything a "+
			"hiring manager would weigh. Preserve chronology and concrete numbers. "+
			"Reply with the summary only.\n\n%s",
		targetRole, index+1, total, targetRole, chunk,
	)
}

// analysisPrompt builds the reduce-phase prompt. It embeds the ordered
// partial summaries and requests a fixed JSON object with the closed set of
// category keys.
func analysisPrompt(summaries, targetRole string) string {
	var shape strings.Builder
	shape.WriteString("{\n")
	categories := domain.Categories()
	for i, category := range categories {
		shape.WriteString(fmt.Sprintf("  %q: {\n    \"assessment\": \"[assessment]\",\n    \"suggestion\": \"[improvement suggestion]\"\n  }", category))
		if i < len(categories)-1 {
			shape.WriteString(",")
		}
		shape.WriteString("\n")
	}
	shape.WriteString("}")

	return fmt.Sprintf(
		"You are a recruiting expert for the %s field. Below are ordered summaries of a "+
			"candidate's resume. Analyze the resume from the perspective of an application for "+
			"the %s role and provide concrete improvement suggestions a hiring manager would "+
			"find compelling.\n\n"+
			"Evaluate:\n"+
			"- experience: whether projects and outcomes relevant to %s are presented with clear, concrete numbers\n"+
			"- skills: whether the listed stack matches what %s positions require, and what is missing\n"+
			"- education: whether education and other activities support the application\n"+
			"- readability: grammar, typos, awkward phrasing, and overall clarity\n"+
			"- competitiveness: overall strength for %s, with at least three prioritized improvements\n\n"+
			"Answer with ONLY a JSON object in exactly this shape, using exactly these keys:\n%s\n\n"+
			"Resume summaries, in order:\n%s",
		targetRole, targetRole, targetRole, targetRole, targetRole, shape.String(), summaries,
	)
}
