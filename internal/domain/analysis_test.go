package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResult() AnalysisResult {
	return AnalysisResult{
		CategoryExperience: {
			Assessment: "Strong project history with measurable outcomes.",
			Suggestion: "Quantify the impact of the two most recent projects.",
		},
		CategorySkills: {
			Assessment: "Covers the core stack for the target role.",
			Suggestion: "Add container orchestration experience.",
		},
	}
}

func TestEncodeDecodeResult_RoundTrip(t *testing.T) {
	original := newTestResult()

	data, err := EncodeResult(original)
	require.NoError(t, err)

	decoded, err := DecodeResult(data)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func TestDecodeResult_InvalidJSON(t *testing.T) {
	result, err := DecodeResult([]byte("not json at all"))

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestCategories_ClosedSet(t *testing.T) {
	cats := Categories()

	assert.Len(t, cats, 5)
	assert.Contains(t, cats, CategoryExperience)
	assert.Contains(t, cats, CategoryCompetitiveness)
}

func TestAnalysisRecord_AnalyzedDate(t *testing.T) {
	r := &AnalysisRecord{AnalyzedAt: 1700000000}

	assert.Equal(t, "2023-11-14 22:13:20", r.AnalyzedDate())
}

func TestAnalysisRecord_HasOriginal(t *testing.T) {
	withFile := &AnalysisRecord{ResumePath: "resumes/user-1/analysis-1/cv.pdf"}
	assert.True(t, withFile.HasOriginal())

	textOnly := &AnalysisRecord{ResumePath: NoOriginalBlob}
	assert.False(t, textOnly.HasOriginal())
}

func TestValidateRecord(t *testing.T) {
	valid := &AnalysisRecord{
		OwnerID:          "user-1",
		AnalysisID:       "analysis-1",
		AnalyzedAt:       1700000000,
		OriginalFileName: "cv.pdf",
		TargetRole:       "backend engineer",
		ResumePath:       "resumes/user-1/analysis-1/cv.pdf",
		ResultPath:       "analysis-results/user-1/analysis-1/result.json",
	}
	assert.NoError(t, ValidateRecord(valid))

	assert.Error(t, ValidateRecord(nil))

	missingOwner := *valid
	missingOwner.OwnerID = ""
	assert.Error(t, ValidateRecord(&missingOwner))

	missingTimestamp := *valid
	missingTimestamp.AnalyzedAt = 0
	assert.Error(t, ValidateRecord(&missingTimestamp))

	// A text-only record carries sentinels, not empty strings.
	textOnly := *valid
	textOnly.OriginalFileName = DirectInputName
	textOnly.ResumePath = NoOriginalBlob
	assert.NoError(t, ValidateRecord(&textOnly))
}
