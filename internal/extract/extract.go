// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/loomworks/careerlens/internal/domain"
)

// Supported media types. The mapping from declared type to extraction
// strategy is a closed table; nothing is inferred from file contents.
const (
	MediaTypePlainText = "text/plain"
	MediaTypePDF       = "application/pdf"
	MediaTypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor converts a raw byte stream plus its declared media type into
// plain text. On failure no partial output is ever returned.
type Extractor struct{}

// NewExtractor creates a new Extractor instance
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of the document. An unrecognized or
// missing media type is rejected before any extraction attempt.
func (e *Extractor) Extract(data []byte, mediaType string) (string, error) {
	normalized := normalizeMediaType(mediaType)
	if normalized == "" {
		return "", domain.ErrMissingMediaType
	}

	switch normalized {
	case MediaTypePlainText:
		return extractPlainText(data)
	case MediaTypePDF:
		return extractPDF(data)
	case MediaTypeDocx:
		return extractDocx(data)
	default:
		return "", domain.ErrUnsupportedFormat
	}
}

// normalizeMediaType strips parameters like "; charset=utf-8" and lowercases.
func normalizeMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", domain.NewExtractionError(MediaTypePlainText, fmt.Errorf("content is not valid UTF-8"))
	}
	return string(data), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.NewExtractionError(MediaTypePDF, fmt.Errorf("malformed PDF: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.NewExtractionError(MediaTypePDF, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.NewExtractionError(MediaTypePDF, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", domain.NewExtractionError(MediaTypePDF, err)
	}

	return buf.String(), nil
}

func extractDocx(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.NewExtractionError(MediaTypeDocx, err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
