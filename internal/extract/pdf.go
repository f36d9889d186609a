package extract

import (
	"context"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/knoguchi/rag/internal/pipeline/errs"
)

// PDFExtractor extracts text from a PDF using go-fitz (MuPDF), page by
// page, joined with a blank-line separator.
type PDFExtractor struct{}

// Extract implements TextExtractor for .pdf files.
func (PDFExtractor) Extract(_ context.Context, data []byte, filename string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", errs.Wrapf(errs.ClassInvalidInput, "open pdf %s: %w", filename, err)
	}
	defer doc.Close()

	var sb strings.Builder
	numPages := doc.NumPage()
	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			// A single unreadable page doesn't invalidate the rest.
			continue
		}
		sb.WriteString(pageText)
		if i < numPages-1 {
			sb.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errs.Wrapf(errs.ClassInvalidInput, "no text extracted from %s", filename)
	}
	return text, nil
}

var _ TextExtractor = PDFExtractor{}
