package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
	"github.com/rahulpr7/Agentic-RAG/internal/services"
)

const maxUploadBytes = 52 << 20

// IngestionService is the surface the upload endpoints need from the
// coordinator.
type IngestionService interface {
	SubmitBatch(ctx context.Context, files []services.IncomingFile) (*services.SubmitResult, error)
	JobStatus(ctx context.Context, jobID string) (*models.UploadJob, error)
	DeleteJob(ctx context.Context, jobID string) error
}

type UploadHandler struct {
	svc IngestionService
	log zerolog.Logger
}

func NewUploadHandler(svc IngestionService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, log: logger.With().Str("component", "UploadHandler").Logger()}
}

type uploadAcceptedResponse struct {
	JobID          string   `json:"job_id"`
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	FilesScheduled []string `json:"files_scheduled"`
	FilesRejected  []string `json:"files_rejected"`
}

type fileStatusEntry struct {
	Filename      string            `json:"filename"`
	Status        models.FileStatus `json:"status"`
	Message       *string           `json:"message"`
	ChunksIndexed *int              `json:"chunks_indexed"`
}

type jobStatusResponse struct {
	JobID         string            `json:"job_id"`
	OverallStatus models.FileStatus `json:"overall_status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Files         []fileStatusEntry `json:"files"`
}

// UploadPDFs accepts a multipart batch under the "files" field and returns
// 202 once the job is durably created and its runners scheduled.
func (h *UploadHandler) UploadPDFs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	var incoming []services.IncomingFile
	for _, header := range r.MultipartForm.File["files"] {
		name := filepath.Base(header.Filename)
		if name == "." || name == "/" {
			name = ""
		}

		part, err := header.Open()
		if err != nil {
			h.log.Warn().Err(err).Str("filename", name).Msg("could not open multipart file")
			incoming = append(incoming, services.IncomingFile{Filename: name})
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			h.log.Warn().Err(err).Str("filename", name).Msg("could not read multipart file")
			// No content type, so the coordinator counts it as rejected.
			incoming = append(incoming, services.IncomingFile{Filename: name})
			continue
		}

		incoming = append(incoming, services.IncomingFile{
			Filename:    name,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := h.svc.SubmitBatch(r.Context(), incoming)
	if err != nil {
		if errors.Is(err, core.ErrNoValidFiles) {
			writeError(w, http.StatusBadRequest, "No valid PDF files provided or files could not be read.")
			return
		}
		h.log.Error().Err(err).Msg("batch submission failed")
		writeError(w, http.StatusInternalServerError, "could not create upload job")
		return
	}

	writeJSON(w, http.StatusAccepted, uploadAcceptedResponse{
		JobID:          res.JobID,
		Status:         "accepted",
		Message:        res.Message,
		FilesScheduled: orEmpty(res.Scheduled),
		FilesRejected:  orEmpty(res.Rejected),
	})
}

// GetJobStatus returns the job with its per-file attempts.
func (h *UploadHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	job, err := h.svc.JobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Job ID %s not found.", jobID))
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("status lookup failed")
		writeError(w, http.StatusInternalServerError, "could not load job status")
		return
	}

	resp := jobStatusResponse{
		JobID:         job.ID,
		OverallStatus: job.OverallStatus,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		Files:         make([]fileStatusEntry, 0, len(job.Files)),
	}
	for _, att := range job.Files {
		resp.Files = append(resp.Files, fileStatusEntry{
			Filename:      att.Filename,
			Status:        att.Status,
			Message:       att.Message,
			ChunksIndexed: att.ChunksIndexed,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteJob removes a job with its attempts, chunks and stored files.
func (h *UploadHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	if err := h.svc.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Job ID %s not found.", jobID))
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("job deletion failed")
		writeError(w, http.StatusInternalServerError, "could not delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func orEmpty(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
