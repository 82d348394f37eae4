package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/core/splitter"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

const (
	statusWriteAttempts  = 3
	statusWriteBaseDelay = 250 * time.Millisecond
)

// Runner drives one file attempt through load -> chunk -> index and reports
// every transition through the job store, which recomputes the job's overall
// status in the same atomic step. A failure here is terminal for this attempt
// only; sibling attempts are untouched.
type Runner struct {
	store    core.JobStore
	obj      core.ObjectClient
	loader   core.PageLoader
	splitter *splitter.Splitter
	indexer  core.IndexingClient
	log      zerolog.Logger
}

func NewRunner(store core.JobStore, obj core.ObjectClient, ldr core.PageLoader, spl *splitter.Splitter, idx core.IndexingClient, logger zerolog.Logger) *Runner {
	return &Runner{
		store:    store,
		obj:      obj,
		loader:   ldr,
		splitter: spl,
		indexer:  idx,
		log:      logger.With().Str("component", "Runner").Logger(),
	}
}

// Process executes the full state machine for one attempt:
// Pending -> Processing -> {Completed | Failed}. It never returns an error;
// pipeline failures become the attempt's terminal Failed state and stay out
// of the caller's way.
func (r *Runner) Process(ctx context.Context, att models.FileAttempt) {
	log := r.log.With().Str("job_id", att.JobID).Str("filename", att.Filename).Logger()
	log.Info().Msg("processing file attempt")

	if !r.setStatus(ctx, att, models.StatusProcessing, nil, nil, log) {
		return
	}

	count, err := r.runPipeline(ctx, att)
	if err != nil {
		msg := fmt.Sprintf("Error indexing %s: %v", att.Filename, err)
		log.Error().Err(err).Msg("file attempt failed")
		r.setStatus(ctx, att, models.StatusFailed, &msg, nil, log)
		return
	}

	msg := fmt.Sprintf("Successfully indexed with %d chunks.", count)
	log.Info().Int("chunks_indexed", count).Msg("file attempt completed")
	r.setStatus(ctx, att, models.StatusCompleted, &msg, &count, log)
}

// runPipeline runs the three stages in fixed order. A document that parses to
// zero pages or zero chunks is a success with zero chunks indexed, not a
// failure.
func (r *Runner) runPipeline(ctx context.Context, att models.FileAttempt) (int, error) {
	bucket, key := parseS3URL(att.StorageURL)
	data, err := r.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return 0, fmt.Errorf("fetch stored file: %w", err)
	}

	pages, err := r.loader.Load(ctx, data, att.Filename)
	if err != nil {
		return 0, err
	}
	if len(pages) == 0 {
		return 0, nil
	}

	chunks := r.splitter.SplitPages(pages, map[string]string{"file_name": att.Filename})
	if len(chunks) == 0 {
		return 0, nil
	}

	ids, err := r.indexer.Index(ctx, att.ID, chunks)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// setStatus persists a transition with bounded retry. Store hiccups are
// retried with backoff; after the last attempt the error is logged and the
// attempt keeps its last persisted state. Returns false when the write never
// landed.
func (r *Runner) setStatus(ctx context.Context, att models.FileAttempt, status models.FileStatus, message *string, chunksIndexed *int, log zerolog.Logger) bool {
	delay := statusWriteBaseDelay

	var lastErr error
	for attempt := 1; attempt <= statusWriteAttempts; attempt++ {
		lastErr = r.store.UpdateFileStatus(ctx, att.JobID, att.ID, status, message, chunksIndexed)
		if lastErr == nil {
			return true
		}
		// A missing job or attempt will not appear on retry.
		if errors.Is(lastErr, core.ErrJobNotFound) || errors.Is(lastErr, core.ErrAttemptNotFound) {
			break
		}
		if attempt == statusWriteAttempts {
			break
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Str("status", string(status)).Msg("status write failed; retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error().Err(ctx.Err()).Str("status", string(status)).Msg("giving up on status write")
			return false
		case <-timer.C:
		}
		delay *= 2
	}

	log.Error().Err(lastErr).Str("status", string(status)).Msg("giving up on status write")
	return false
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
