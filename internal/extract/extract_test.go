package extract

import (
	"errors"
	"testing"

	"github.com/loomworks/careerlens/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestExtract_PlainText(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("five years of backend experience"), "text/plain")

	assert.NoError(t, err)
	assert.Equal(t, "five years of backend experience", text)
}

func TestExtract_PlainTextWithCharsetParameter(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("hello"), "text/plain; charset=utf-8")

	assert.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestExtract_PlainTextInvalidUTF8(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte{0xff, 0xfe, 0xfd}, "text/plain")

	assert.Error(t, err)
	assert.Empty(t, text)

	var de *domain.DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeExtraction, de.Code)
}

func TestExtract_MissingMediaType(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("content"), "")

	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrMissingMediaType)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("<html></html>"), "text/html")

	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_CorruptPDF(t *testing.T) {
	e := NewExtractor()

	// Recognized type, unreadable content: extraction failure, no partial output.
	text, err := e.Extract([]byte("%PDF-1.4 truncated garbage"), "application/pdf")

	assert.Empty(t, text)

	var de *domain.DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeExtraction, de.Code)
}

func TestExtract_CorruptDocx(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("not a zip archive"),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")

	assert.Empty(t, text)

	var de *domain.DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeExtraction, de.Code)
}

func TestNormalizeMediaType(t *testing.T) {
	assert.Equal(t, "text/plain", normalizeMediaType("Text/Plain; charset=UTF-8"))
	assert.Equal(t, "application/pdf", normalizeMediaType(" application/pdf "))
	assert.Equal(t, "", normalizeMediaType(""))
}
