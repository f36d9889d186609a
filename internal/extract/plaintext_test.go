package extract

import (
	"context"
	"testing"

	"github.com/knoguchi/rag/internal/pipeline/errs"
)

func TestPlainTextExtractorTrimsAndReturnsText(t *testing.T) {
	text, err := PlainTextExtractor{}.Extract(context.Background(), []byte("  hello world  \n"), "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
}

func TestPlainTextExtractorRejectsInvalidUTF8(t *testing.T) {
	_, err := PlainTextExtractor{}.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, "doc.txt")
	if errs.Classify(err) != errs.ClassInvalidInput {
		t.Errorf("expected a non-retriable invalid-input error, got %v", err)
	}
}

func TestPlainTextExtractorRejectsEmptyFile(t *testing.T) {
	_, err := PlainTextExtractor{}.Extract(context.Background(), []byte("   \n\t  "), "doc.txt")
	if errs.Classify(err) != errs.ClassInvalidInput {
		t.Errorf("expected a non-retriable invalid-input error for a blank file, got %v", err)
	}
}

func TestDispatcherRejectsUnknownExtension(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Extract(context.Background(), []byte("data"), "doc.docx")
	if err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}
