package loader

import (
	"context"
	"os"
	"strings"

	"code.sajari.com/docconv"
	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/core"
	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

var _ core.PageLoader = (*PDFLoader)(nil)

// PDFLoader extracts page-level text from PDF bytes using docconv.
type PDFLoader struct {
	log zerolog.Logger
}

func NewPDFLoader(logger zerolog.Logger) *PDFLoader {
	return &PDFLoader{log: logger.With().Str("component", "PDFLoader").Logger()}
}

// Load writes the bytes to a scratch file for the converter and returns the
// ordered pages, each tagged with the source filename and a 1-based page
// index. The scratch file is removed on every exit path. A parse failure
// yields a *core.LoadError; a validly parsed document with no text yields an
// empty slice and no error.
func (l *PDFLoader) Load(ctx context.Context, data []byte, filename string) ([]models.Page, error) {
	tmp, err := os.CreateTemp("", "agentic-rag-*.pdf")
	if err != nil {
		return nil, &core.LoadError{Filename: filename, Err: err}
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return nil, &core.LoadError{Filename: filename, Err: err}
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, &core.LoadError{Filename: filename, Err: err}
	}

	res, err := docconv.Convert(tmp, "application/pdf", false)
	if err != nil {
		l.log.Error().Err(err).Str("filename", filename).Msg("pdf extraction failed")
		return nil, &core.LoadError{Filename: filename, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages := splitIntoPages(res.Body, filename)
	if len(pages) == 0 {
		l.log.Warn().Str("filename", filename).Msg("no text extracted")
	}
	return pages, nil
}

// splitIntoPages turns converter output into page units. pdftotext separates
// pages with form feeds; when no form feed is present the whole body is a
// single page. Blank pages are dropped but keep their physical index, so a
// document with no text at all yields zero pages.
func splitIntoPages(body, filename string) []models.Page {
	var pages []models.Page
	for i, raw := range strings.Split(body, "\f") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{
			Source: filename,
			Page:   i + 1,
			Text:   text,
		})
	}
	return pages
}
