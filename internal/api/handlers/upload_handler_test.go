package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
	"github.com/rahulpr7/Agentic-RAG/internal/services"
)

type fakeIngestion struct {
	submitRes *services.SubmitResult
	submitErr error
	gotFiles  []services.IncomingFile

	job       *models.UploadJob
	statusErr error

	deleteErr error
	deleted   []string
}

func (f *fakeIngestion) SubmitBatch(_ context.Context, files []services.IncomingFile) (*services.SubmitResult, error) {
	f.gotFiles = files
	return f.submitRes, f.submitErr
}

func (f *fakeIngestion) JobStatus(_ context.Context, jobID string) (*models.UploadJob, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.job == nil || f.job.ID != jobID {
		return nil, core.ErrJobNotFound
	}
	return f.job, nil
}

func (f *fakeIngestion) DeleteJob(_ context.Context, jobID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, jobID)
	return nil
}

func newRouter(svc IngestionService) http.Handler {
	h := NewUploadHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/api/upload", h.UploadPDFs)
	r.Get("/api/upload/status/{job_id}", h.GetJobStatus)
	r.Delete("/api/upload/{job_id}", h.DeleteJob)
	return r
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, contentType := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestUploadPDFsAccepted(t *testing.T) {
	svc := &fakeIngestion{
		submitRes: &services.SubmitResult{
			JobID:     "job-1",
			Scheduled: []string{"a.pdf"},
			Message:   "Processing job job-1 scheduled for 1 file(s).",
		},
	}
	router := newRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"a.pdf": "application/pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID          string   `json:"job_id"`
		Status         string   `json:"status"`
		Message        string   `json:"message"`
		FilesScheduled []string `json:"files_scheduled"`
		FilesRejected  []string `json:"files_rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, "Processing job job-1 scheduled for 1 file(s).", resp.Message)
	assert.Equal(t, []string{"a.pdf"}, resp.FilesScheduled)
	assert.Equal(t, []string{}, resp.FilesRejected)

	require.Len(t, svc.gotFiles, 1)
	assert.Equal(t, "a.pdf", svc.gotFiles[0].Filename)
	assert.Equal(t, "application/pdf", svc.gotFiles[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4 test"), svc.gotFiles[0].Data)
}

func TestUploadPDFsNoValidFiles(t *testing.T) {
	svc := &fakeIngestion{submitErr: core.ErrNoValidFiles}
	router := newRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "text/plain"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No valid PDF files provided or files could not be read.", resp["detail"])
}

func TestUploadPDFsRejectsNonMultipart(t *testing.T) {
	router := newRouter(&fakeIngestion{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobStatus(t *testing.T) {
	msg := "Successfully indexed with 12 chunks."
	chunks := 12
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeIngestion{job: &models.UploadJob{
		ID:            "job-9",
		OverallStatus: models.StatusCompleted,
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Minute),
		Files: []models.FileAttempt{
			{Filename: "a.pdf", Status: models.StatusCompleted, Message: &msg, ChunksIndexed: &chunks},
		},
	}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/upload/status/job-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		JobID         string `json:"job_id"`
		OverallStatus string `json:"overall_status"`
		Files         []struct {
			Filename      string  `json:"filename"`
			Status        string  `json:"status"`
			Message       *string `json:"message"`
			ChunksIndexed *int    `json:"chunks_indexed"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-9", resp.JobID)
	assert.Equal(t, "completed", resp.OverallStatus)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "a.pdf", resp.Files[0].Filename)
	require.NotNil(t, resp.Files[0].Message)
	assert.Equal(t, msg, *resp.Files[0].Message)
	require.NotNil(t, resp.Files[0].ChunksIndexed)
	assert.Equal(t, 12, *resp.Files[0].ChunksIndexed)
}

func TestGetJobStatusNotFound(t *testing.T) {
	router := newRouter(&fakeIngestion{})

	req := httptest.NewRequest(http.MethodGet, "/api/upload/status/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Job ID ghost not found.", resp["detail"])
}

func TestDeleteJob(t *testing.T) {
	svc := &fakeIngestion{}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/upload/job-3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"job-3"}, svc.deleted)
}

func TestDeleteJobNotFound(t *testing.T) {
	svc := &fakeIngestion{deleteErr: core.ErrJobNotFound}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/upload/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
