// Package extract implements the TextExtractor capability: dispatch on
// filename extension to a format-specific decoder, rejecting anything
// else as a non-retriable UnsupportedFormat error.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knoguchi/rag/internal/pipeline/errs"
)

// ErrUnsupportedFormat is returned for any extension other than .pdf/.txt.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// TextExtractor turns raw file bytes into UTF-8 text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

// Dispatcher routes to a per-extension TextExtractor, matching the
// extension-switch dispatch pattern used for file parsing elsewhere in
// this codebase's lineage.
type Dispatcher struct {
	byExt map[string]TextExtractor
}

// NewDispatcher wires the two extractors the pipeline supports.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		byExt: map[string]TextExtractor{
			".pdf": PDFExtractor{},
			".txt": PlainTextExtractor{},
		},
	}
}

// Extract dispatches on filename's extension.
func (d *Dispatcher) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extractor, ok := d.byExt[ext]
	if !ok {
		return "", errs.Wrapf(errs.ClassInvalidInput, "%w: %s", ErrUnsupportedFormat, ext)
	}
	text, err := extractor.Extract(ctx, data, filename)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filename, err)
	}
	return text, nil
}

var _ TextExtractor = (*Dispatcher)(nil)
