package pdfext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/pkg/errors"
)

// Extractor pulls plain text out of PDF files page by page.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the concatenated text of every non-blank page and the
// total page count. A document with no extractable text is an error,
// since there is nothing to index.
func (e *Extractor) Extract(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, errors.Wrap(errors.CodeInvalidInput, "parse pdf failed", err)
	}

	pages := reader.NumPage()
	var parts []string
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, errors.Wrap(errors.CodeInvalidInput,
				fmt.Sprintf("extract text from page %d failed", i), err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return "", pages, &errors.AppError{
			Code:    errors.CodeInvalidInput,
			Message: "pdf contains no extractable text",
		}
	}
	return strings.Join(parts, "\n"), pages, nil
}

var _ document.TextExtractor = (*Extractor)(nil)
