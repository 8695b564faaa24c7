package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	docx "github.com/lukasjarosch/go-docx"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the extractor
	// does not dispatch on.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction wraps any underlying extraction failure.
	ErrExtraction = errors.New("document extraction failed")
)

// DocumentExtractor converts a resume file into plain text. A document with
// no extractable text (an image-only PDF, say) yields an empty string, not
// an error; callers treat that as a sentinel.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

type documentExtractor struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewDocumentExtractor(timeout time.Duration, logger *zap.Logger) DocumentExtractor {
	return &documentExtractor{
		timeout: timeout,
		logger:  logger,
	}
}

func (e *documentExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}

	// The underlying readers have no context support; a malformed file must
	// not hang the caller past the deadline.
	done := make(chan result, 1)
	go func() {
		text, err := e.extract(filePath)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		e.logger.Warn("document extraction timed out",
			zap.String("file", filepath.Base(filePath)))
		return "", fmt.Errorf("%w: %v", ErrExtraction, ctx.Err())
	}
}

func (e *documentExtractor) extract(filePath string) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return e.extractPDF(filePath)
	case ".docx", ".doc":
		return e.extractDOCX(filePath)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// extractPDF concatenates per-page text in page order. Pages that fail to
// decode are skipped rather than aborting the document.
func (e *documentExtractor) extractPDF(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtraction, err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("skipping unreadable pdf page",
				zap.String("file", filepath.Base(filePath)),
				zap.Int("page", pageIndex))
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

// extractDOCX joins paragraph text in document order, separated by newlines.
func (e *documentExtractor) extractDOCX(filePath string) (string, error) {
	doc, err := docx.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", ErrExtraction, err)
	}
	defer doc.Close()

	raw := doc.GetFile("word/document.xml")
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: docx has no document part", ErrExtraction)
	}

	text, err := docxParagraphText(raw)
	if err != nil {
		return "", fmt.Errorf("%w: decode docx: %v", ErrExtraction, err)
	}
	return text, nil
}

// docxParagraphText walks the WordprocessingML token stream, collecting run
// text (<w:t>) and emitting a newline at each paragraph boundary (</w:p>).
func docxParagraphText(raw []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))

	var (
		textBuilder strings.Builder
		inText      bool
	)

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				textBuilder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				textBuilder.Write(t)
			}
		}
	}

	return textBuilder.String(), nil
}
