package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Analysis categories form a closed set. The reduce prompt requests exactly
// these keys and the parser rejects anything else.
const (
	CategoryExperience      = "experience"
	CategorySkills          = "skills"
	CategoryEducation       = "education"
	CategoryReadability     = "readability"
	CategoryCompetitiveness = "competitiveness"
)

// Categories lists the closed set of analysis category keys.
func Categories() []string {
	return []string{
		CategoryExperience,
		CategorySkills,
		CategoryEducation,
		CategoryReadability,
		CategoryCompetitiveness,
	}
}

// CategoryAssessment is one category's verdict within an analysis result.
type CategoryAssessment struct {
	Assessment string `json:"assessment"`
	Suggestion string `json:"suggestion"`
}

// AnalysisResult maps category name to its assessment. This is the unit
// returned to the caller and the unit persisted as a blob.
type AnalysisResult map[string]CategoryAssessment

// EncodeResult serializes an AnalysisResult to its persisted blob form.
func EncodeResult(r AnalysisResult) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return data, nil
}

// DecodeResult parses the persisted blob form back into an AnalysisResult.
func DecodeResult(data []byte) (AnalysisResult, error) {
	var r AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return r, nil
}

// Sentinels stored in AnalysisRecord when the caller submitted raw text
// with no original file. Explicit values, never empty strings, so display
// logic can tell omission apart from data.
const (
	NoOriginalBlob    = "N/A"
	DirectInputName   = "direct text input"
	analyzedAtDisplay = "2006-01-02 15:04:05"
)

// Document is an uploaded file pending extraction. Ephemeral: it exists for
// the duration of one analysis request and is never itself persisted; the
// accepted copy is written to blob storage by the coordinator.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

// AnalysisRecord is the queryable metadata entry referencing the blobs of
// one saved analysis. The store is keyed by (OwnerID, AnalyzedAt).
type AnalysisRecord struct {
	OwnerID          string
	AnalysisID       string
	AnalyzedAt       int64 // seconds since epoch, sort key
	OriginalFileName string
	TargetRole       string
	ResumePath       string
	ResultPath       string
}

// AnalyzedDate formats the record timestamp for display.
func (r *AnalysisRecord) AnalyzedDate() string {
	return time.Unix(r.AnalyzedAt, 0).UTC().Format(analyzedAtDisplay)
}

// HasOriginal reports whether the record references an original document blob.
func (r *AnalysisRecord) HasOriginal() bool {
	return r.ResumePath != "" && r.ResumePath != NoOriginalBlob
}

// ValidateRecord validates an AnalysisRecord instance
func ValidateRecord(r *AnalysisRecord) error {
	if r == nil {
		return fmt.Errorf("analysis record cannot be nil")
	}

	if r.OwnerID == "" {
		return fmt.Errorf("analysis record OwnerID is required")
	}

	if r.AnalysisID == "" {
		return fmt.Errorf("analysis record AnalysisID is required")
	}

	if r.AnalyzedAt <= 0 {
		return fmt.Errorf("analysis record AnalyzedAt is required")
	}

	if r.OriginalFileName == "" {
		return fmt.Errorf("analysis record OriginalFileName is required")
	}

	if r.ResumePath == "" {
		return fmt.Errorf("analysis record ResumePath is required")
	}

	if r.ResultPath == "" {
		return fmt.Errorf("analysis record ResultPath is required")
	}

	return nil
}
