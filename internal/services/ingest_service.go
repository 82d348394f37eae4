package services

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

// SupportedContentType is the only document type accepted for ingestion.
const SupportedContentType = "application/pdf"

// Scheduler hands accepted file attempts to background runners.
// *ingestion_engine.Pool satisfies it.
type Scheduler interface {
	Submit(att models.FileAttempt) error
}

// IncomingFile is one candidate file in a submitted batch.
type IncomingFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitResult reports the outcome of batch admission.
type SubmitResult struct {
	JobID     string
	Scheduled []string
	Rejected  []string
	Message   string
}

// IngestService is the ingestion coordinator: it validates a batch, stores
// accepted files, creates the job durably before returning, and schedules one
// independent runner per accepted file.
type IngestService struct {
	store   core.JobStore
	storage core.ObjectClient
	sched   Scheduler
	bucket  string
	log     zerolog.Logger
}

func NewIngestService(store core.JobStore, storage core.ObjectClient, sched Scheduler, bucket string, logger zerolog.Logger) *IngestService {
	return &IngestService{
		store:   store,
		storage: storage,
		sched:   sched,
		bucket:  bucket,
		log:     logger.With().Str("component", "IngestService").Logger(),
	}
}

// SubmitBatch admits a batch of candidate files. Files whose declared content
// type is not application/pdf are rejected without any work being scheduled;
// rejecting a subset is normal and reported. Only when zero files survive does
// the call fail, with core.ErrNoValidFiles. The job and all pending attempts
// are persisted before this returns, so a caller polling right after the
// response always finds the job.
func (s *IngestService) SubmitBatch(ctx context.Context, files []IncomingFile) (*SubmitResult, error) {
	jobID := uuid.NewString()

	var (
		attempts  []models.FileAttempt
		scheduled []string
		rejected  []string
	)
	for i, f := range files {
		name := f.Filename
		if name == "" {
			name = fmt.Sprintf("unnamed_pdf_%d", i)
		}
		if f.ContentType != SupportedContentType {
			rejected = append(rejected, name)
			continue
		}

		url, err := s.storage.UploadFile(ctx, s.bucket, s.objectKey(jobID, i, name), f.Data, f.ContentType)
		if err != nil {
			s.log.Warn().Err(err).Str("filename", name).Msg("could not store upload; rejecting file")
			rejected = append(rejected, name)
			continue
		}

		attempts = append(attempts, models.FileAttempt{
			ID:         uuid.NewString(),
			JobID:      jobID,
			Filename:   name,
			StorageURL: url,
			Status:     models.StatusPending,
		})
		scheduled = append(scheduled, name)
	}

	if len(attempts) == 0 {
		return nil, core.ErrNoValidFiles
	}

	now := time.Now()
	job := &models.UploadJob{
		ID:            jobID,
		OverallStatus: models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Files:         attempts,
	}
	if err := s.store.CreateUploadJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create upload job: %w", err)
	}

	for _, att := range attempts {
		if err := s.sched.Submit(att); err != nil {
			// The attempt stays pending; the job remains queryable.
			s.log.Error().Err(err).Str("job_id", jobID).Str("filename", att.Filename).Msg("could not schedule runner")
		}
	}

	message := fmt.Sprintf("Processing job %s scheduled for %d file(s).", jobID, len(scheduled))
	if len(rejected) > 0 {
		message += fmt.Sprintf(" %d file(s) were rejected.", len(rejected))
	}
	s.log.Info().Str("job_id", jobID).Int("scheduled", len(scheduled)).Int("rejected", len(rejected)).Msg("upload batch admitted")

	return &SubmitResult{
		JobID:     jobID,
		Scheduled: scheduled,
		Rejected:  rejected,
		Message:   message,
	}, nil
}

// JobStatus returns the job with its full attempt list, or core.ErrJobNotFound.
func (s *IngestService) JobStatus(ctx context.Context, jobID string) (*models.UploadJob, error) {
	job, err := s.store.GetUploadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, core.ErrJobNotFound
	}
	return job, nil
}

// DeleteJob removes a job, its attempts and chunks (store cascade), and the
// stored raw files. Object cleanup is best effort.
func (s *IngestService) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.store.GetUploadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return core.ErrJobNotFound
	}
	if err := s.store.DeleteUploadJob(ctx, jobID); err != nil {
		return err
	}
	for _, att := range job.Files {
		u, perr := url.Parse(att.StorageURL)
		if perr != nil {
			continue
		}
		if err := s.storage.DeleteFile(ctx, s.bucket, strings.TrimPrefix(u.Path, "/")); err != nil {
			s.log.Warn().Err(err).Str("filename", att.Filename).Msg("could not delete stored file")
		}
	}
	return nil
}

// objectKey creates a consistent S3 key layout; the index keeps duplicate
// filenames within one job from colliding.
func (s *IngestService) objectKey(jobID string, idx int, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("jobs", jobID, strconv.Itoa(idx), filename)
}
