package models

import (
	"time"
)

// UploadJob is the aggregate record for one upload batch. Its overall status
// is always derived from the statuses of its file attempts, never set on its own.
type UploadJob struct {
	ID            string        `db:"id" json:"id"`
	OverallStatus FileStatus    `db:"overall_status" json:"overall_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
	Files         []FileAttempt `json:"files"`
}

// FileAttempt tracks one file's progress within an upload job.
type FileAttempt struct {
	ID            string     `db:"id" json:"id"`
	JobID         string     `db:"job_id" json:"job_id"`
	Filename      string     `db:"filename" json:"filename"` // original name as submitted; may repeat within a job
	StorageURL    string     `db:"storage_url" json:"storage_url"`
	Status        FileStatus `db:"status" json:"status"`
	Message       *string    `db:"message" json:"message"`
	ChunksIndexed *int       `db:"chunks_indexed" json:"chunks_indexed"`
}

// Page is one page-level unit of extracted document text.
type Page struct {
	Source string // original filename
	Page   int    // 1-based page index
	Text   string
}

// Chunk is a bounded span of document text, the unit handed to indexing.
type Chunk struct {
	Text     string
	Source   string
	Page     int
	Position int               // zero-based position within the document
	Metadata map[string]string // caller-supplied extras, carried through to the store
}

// DocumentChunk is the persisted form of an indexed chunk.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"` // owning file attempt
	Source     string    `db:"source" json:"source"`
	Page       int       `db:"page" json:"page"`
	Position   int       `db:"position" json:"position"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"embedding"` // pgvector column
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
