package analyzer

import "github.com/loomworks/careerlens/internal/domain"

// Chunk splits text into contiguous, non-overlapping segments of at most
// maxLen characters. Deterministic: concatenating the chunks in order
// reproduces the input exactly. Empty text yields an empty sequence.
func Chunk(text string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, domain.ErrInvalidConfiguration
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}
