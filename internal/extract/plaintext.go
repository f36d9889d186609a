package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/knoguchi/rag/internal/pipeline/errs"
)

// PlainTextExtractor validates and decodes .txt uploads as UTF-8.
type PlainTextExtractor struct{}

// Extract implements TextExtractor for .txt files.
func (PlainTextExtractor) Extract(_ context.Context, data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", errs.Wrapf(errs.ClassInvalidInput, "file %s is not valid UTF-8", filename)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errs.Wrapf(errs.ClassInvalidInput, "file %s is empty", filename)
	}
	return text, nil
}

var _ TextExtractor = PlainTextExtractor{}
