package core

import (
	"context"

	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

// JobStore defines all persistence operations the ingestion pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
//
// UpdateFileStatus must execute the read-aggregate-write sequence for the
// parent job under a per-job serialization point (a transaction with the job
// row locked, or equivalent), so the persisted overall status always reflects
// a consistent snapshot of sibling attempts.
type JobStore interface {
	// CreateUploadJob persists the job together with all of its pending file
	// attempts atomically, before any background work starts.
	CreateUploadJob(ctx context.Context, job *models.UploadJob) error

	// GetUploadJob returns the job with its full attempt list, or nil when the
	// id is unknown.
	GetUploadJob(ctx context.Context, id string) (*models.UploadJob, error)

	// GetFileAttempt looks an attempt up by (jobID, filename). When a job holds
	// several attempts with the same filename the first by creation order wins.
	GetFileAttempt(ctx context.Context, jobID, filename string) (*models.FileAttempt, error)

	// UpdateFileStatus transitions one attempt and recomputes the parent job's
	// overall status and updated_at in the same atomic step.
	UpdateFileStatus(ctx context.Context, jobID, attemptID string, status models.FileStatus, message *string, chunksIndexed *int) error

	// DeleteUploadJob removes a job and, by cascade, all of its attempts.
	DeleteUploadJob(ctx context.Context, id string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage. It is
// abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
