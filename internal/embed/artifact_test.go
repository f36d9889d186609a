package embed

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeArtifactRoundTrip(t *testing.T) {
	vector := []float32{0.1, -0.2, 0.3, 1.5, -9.75}
	data := EncodeArtifact("nomic-embed-text", vector)

	model, got, err := DecodeArtifact(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if model != "nomic-embed-text" {
		t.Errorf("model = %q, want %q", model, "nomic-embed-text")
	}
	if !reflect.DeepEqual(got, vector) {
		t.Errorf("vector = %v, want %v", got, vector)
	}
}

func TestDecodeArtifactRejectsBadMagic(t *testing.T) {
	_, _, err := DecodeArtifact([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if err == nil {
		t.Error("expected an error for a blob with an unrecognized magic number")
	}
}

func TestEncodeArtifactHandlesEmptyVector(t *testing.T) {
	data := EncodeArtifact("m", nil)
	model, vector, err := DecodeArtifact(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if model != "m" {
		t.Errorf("model = %q, want %q", model, "m")
	}
	if len(vector) != 0 {
		t.Errorf("expected empty vector, got %v", vector)
	}
}
