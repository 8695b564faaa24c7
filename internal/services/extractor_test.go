package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExtractTextUnsupportedFormat(t *testing.T) {
	extractor := NewDocumentExtractor(0, zap.NewNop())
	path := writeTempFile(t, "resume.txt", []byte("plain text"))

	_, err := extractor.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractTextMissingFile(t *testing.T) {
	extractor := NewDocumentExtractor(0, zap.NewNop())

	_, err := extractor.ExtractText(context.Background(), "/nonexistent/resume.pdf")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractTextCorruptPDF(t *testing.T) {
	extractor := NewDocumentExtractor(5*time.Second, zap.NewNop())
	path := writeTempFile(t, "resume.pdf", []byte("%PDF-garbage that is not a valid document"))

	_, err := extractor.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractTextCorruptDOCX(t *testing.T) {
	extractor := NewDocumentExtractor(5*time.Second, zap.NewNop())
	path := writeTempFile(t, "resume.docx", []byte("not a zip archive"))

	_, err := extractor.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractTextCaseInsensitiveExtension(t *testing.T) {
	extractor := NewDocumentExtractor(0, zap.NewNop())
	path := writeTempFile(t, "resume.PDF", []byte("still not a pdf"))

	// Dispatches on the lowered extension; fails in extraction, not format
	// detection.
	_, err := extractor.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractTextCancelledContext(t *testing.T) {
	extractor := NewDocumentExtractor(time.Hour, zap.NewNop())
	path := writeTempFile(t, "resume.pdf", []byte("irrelevant"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A pre-cancelled context may lose the race against a fast extraction;
	// either way the call returns promptly with an error.
	_, err := extractor.ExtractText(ctx, path)
	assert.Error(t, err)
}
