package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rahulpr7/Agentic-RAG/internal/config"
	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

var _ core.JobStore = (*DatabaseClient)(nil)

// DatabaseClient is the Postgres/pgvector implementation of core.JobStore.
// The underlying *sql.DB is a connection pool: every transaction below checks
// out its own connection, so concurrent runners never share a session.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.JobStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// CreateUploadJob inserts the job row and all of its pending attempts in one
// transaction, so a poller that receives the job id can always find it whole.
func (c *DatabaseClient) CreateUploadJob(ctx context.Context, job *models.UploadJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	if len(job.Files) == 0 {
		return errors.New("job must have at least one file attempt")
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const insertJob = `
		INSERT INTO upload_jobs (id, overall_status, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`
	if _, err := tx.ExecContext(ctx, insertJob, job.ID, job.OverallStatus); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert job: %w", err)
	}

	const insertAttempt = `
		INSERT INTO file_processing_attempts (id, job_id, seq, filename, storage_url, status, message, chunks_indexed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i := range job.Files {
		f := &job.Files[i]
		if _, err := tx.ExecContext(ctx, insertAttempt,
			f.ID, job.ID, i, f.Filename, f.StorageURL, f.Status, f.Message, f.ChunksIndexed); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert attempt %q: %w", f.Filename, err)
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetUploadJob(ctx context.Context, id string) (*models.UploadJob, error) {
	const q = `
		SELECT id, overall_status, created_at, updated_at
		FROM upload_jobs
		WHERE id = $1
	`
	var job models.UploadJob
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&job.ID, &job.OverallStatus, &job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const qFiles = `
		SELECT id, job_id, filename, storage_url, status, message, chunks_indexed
		FROM file_processing_attempts
		WHERE job_id = $1
		ORDER BY seq ASC
	`
	rows, err := c.db.QueryContext(ctx, qFiles, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f models.FileAttempt
		if err := rows.Scan(
			&f.ID, &f.JobID, &f.Filename, &f.StorageURL, &f.Status, &f.Message, &f.ChunksIndexed,
		); err != nil {
			return nil, err
		}
		job.Files = append(job.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *DatabaseClient) GetFileAttempt(ctx context.Context, jobID, filename string) (*models.FileAttempt, error) {
	const q = `
		SELECT id, job_id, filename, storage_url, status, message, chunks_indexed
		FROM file_processing_attempts
		WHERE job_id = $1 AND filename = $2
		ORDER BY seq ASC
		LIMIT 1
	`
	var f models.FileAttempt
	err := c.db.QueryRowContext(ctx, q, jobID, filename).Scan(
		&f.ID, &f.JobID, &f.Filename, &f.StorageURL, &f.Status, &f.Message, &f.ChunksIndexed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFileStatus transitions one attempt and recomputes the parent job's
// overall status from the full sibling set, all while holding a row lock on
// the job. Two runners finishing together are therefore serialized per job
// and the persisted aggregate always reflects a consistent snapshot.
func (c *DatabaseClient) UpdateFileStatus(ctx context.Context, jobID, attemptID string, status models.FileStatus, message *string, chunksIndexed *int) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM upload_jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return core.ErrJobNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("lock job: %w", err)
	}

	const updAttempt = `
		UPDATE file_processing_attempts
		SET status = $3, message = $4, chunks_indexed = COALESCE($5, chunks_indexed)
		WHERE id = $1 AND job_id = $2
	`
	res, err := tx.ExecContext(ctx, updAttempt, attemptID, jobID, status, message, chunksIndexed)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return core.ErrAttemptNotFound
	}

	rows, err := tx.QueryContext(ctx, `SELECT status FROM file_processing_attempts WHERE job_id = $1`, jobID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read sibling statuses: %w", err)
	}
	var statuses []models.FileStatus
	for rows.Next() {
		var s models.FileStatus
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			_ = tx.Rollback()
			return err
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback()
		return err
	}
	rows.Close()

	overall := models.ComputeOverallStatus(statuses)
	const updJob = `
		UPDATE upload_jobs
		SET overall_status = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, updJob, jobID, overall); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update job status: %w", err)
	}

	return tx.Commit()
}

// DeleteUploadJob removes the job; attempts and their chunks go with it via
// ON DELETE CASCADE.
func (c *DatabaseClient) DeleteUploadJob(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM upload_jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, source, page, position, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Source, ch.Page, ch.Position, ch.Text, vec, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, source, page, position, text, embedding, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY position ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.Source, &ch.Page, &ch.Position, &ch.Text, &emb, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SearchDocumentChunks finds top-k similar chunks within a document for a query embedding.
func (c *DatabaseClient) SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, source, page, position, text, embedding
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, documentID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Source, &ch.Page, &ch.Position, &ch.Text, &emb); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}
