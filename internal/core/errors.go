package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValidFiles is returned when every file in a submitted batch was rejected.
	ErrNoValidFiles = errors.New("no valid PDF files provided")

	// ErrJobNotFound is returned when an upload job id is unknown to the store.
	ErrJobNotFound = errors.New("upload job not found")

	// ErrAttemptNotFound is returned when a file attempt id is unknown to the store.
	ErrAttemptNotFound = errors.New("file attempt not found")
)

// LoadError wraps a failure to parse raw bytes into a document.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IndexingError wraps a failure of the downstream indexing call. The whole
// invocation fails atomically; partial success is never observable.
type IndexingError struct {
	Err error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("index chunks: %v", e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }
