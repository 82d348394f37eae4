package ingestion_engine

import (
	"context"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

// Pool schedules file attempts onto a bounded worker pool. Each submitted
// attempt runs independently on its own goroutine with its own detached
// context: once scheduled, a runner proceeds to a terminal state regardless
// of what happens to the submitting request.
type Pool struct {
	pool   *ants.Pool
	runner *Runner
	log    zerolog.Logger
}

func NewPool(size int, runner *Runner, logger zerolog.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{
		pool:   p,
		runner: runner,
		log:    logger.With().Str("component", "IngestPool").Logger(),
	}, nil
}

// Submit queues one attempt for background processing. The attempt value is
// copied into the task; runners share no mutable state with each other or
// with the caller.
func (p *Pool) Submit(att models.FileAttempt) error {
	return p.pool.Submit(func() {
		p.runner.Process(context.Background(), att)
	})
}

// Running reports the number of attempts currently being processed.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops the pool. Queued tasks are abandoned; call only on shutdown.
func (p *Pool) Release() {
	p.pool.Release()
}
