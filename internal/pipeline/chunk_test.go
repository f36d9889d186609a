package pipeline

import (
	"strings"
	"testing"
)

func TestChunkTextRespectsTargetSizeApproximately(t *testing.T) {
	text := strings.Repeat("word ", 1000) // ~5000 chars
	chunks := chunkText(text, 100, 10)    // 400 chars target, 40 overlap

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 5000 chars at 400-char target, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > (100*charsPerToken)+boundaryLookahead {
			t.Errorf("chunk %d length %d exceeds target+lookahead bound", i, len(c.Text))
		}
		if c.Index != i {
			t.Errorf("chunk %d has Index %d, want %d", i, c.Index, i)
		}
	}
}

func TestChunkTextOverlapsConsecutiveChunks(t *testing.T) {
	// A position-dependent alphabet (not a repeated constant) so overlap
	// equality actually exercises the offset arithmetic instead of trivially
	// matching on a uniform character.
	b := make([]byte, 2000)
	for i := range b {
		b[i] = byte('a' + (i % 26))
	}
	text := string(b)
	chunks := chunkText(text, 100, 20) // 400 chars target, 80 overlap

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// With no sentence terminators present, extension finds no boundary and
	// chunks end exactly at the char-size cutoff, so overlap is exact.
	first := chunks[0].Text
	second := chunks[1].Text
	overlapLen := 80
	if len(first) < overlapLen || len(second) < overlapLen {
		t.Fatalf("chunks too short to check overlap: %d, %d", len(first), len(second))
	}
	if first[len(first)-overlapLen:] != second[:overlapLen] {
		t.Errorf("expected %d-char overlap between consecutive chunks", overlapLen)
	}
}

func TestChunkTextExtendsToSentenceBoundary(t *testing.T) {
	// Place a period just past the target cut point, inside the lookahead
	// window, and verify the chunk extends to include it.
	text := strings.Repeat("a", 40) + "." + strings.Repeat("b", 40)
	chunks := chunkText(text, 10, 0) // 40-char target

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("expected first chunk to extend to the sentence terminator, got %q", chunks[0].Text)
	}
}

func TestChunkTextEmptyInputProducesNoChunks(t *testing.T) {
	chunks := chunkText("", 100, 10)
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunkTextMakesForwardProgressWhenOverlapExceedsSize(t *testing.T) {
	text := strings.Repeat("x", 500)
	chunks := chunkText(text, 10, 100) // overlap tokens far exceed chunk size

	if len(chunks) == 0 {
		t.Fatal("expected forward progress to still produce chunks")
	}
}
