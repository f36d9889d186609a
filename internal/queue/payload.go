package queue

import "github.com/google/uuid"

// ExtractPayload is the body of an extract job.
type ExtractPayload struct {
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	FilePath   string
	Filename   string
}

// ChunkPayload is the body of a chunk job.
type ChunkPayload struct {
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	TextPath   string
	Filename   string
}

// EmbedPayload is the body of an embed job.
type EmbedPayload struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ChunkPath  string
	ChunkIndex int
	Filename   string
}
