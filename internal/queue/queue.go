// Package queue carries generation jobs from the request path to workers.
package queue

import (
	"context"
	"errors"
	"time"

	"fluxserver/internal/domain"
)

// Common errors returned by queue implementations.
var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// Job is the unit handed from the dispatcher to a worker. Everything the
// worker needs travels by value; workers share no state with the request
// path beyond the key-value store.
type Job struct {
	TaskID      string                  `json:"task_id"`
	UserID      string                  `json:"user_id"`
	Kind        domain.TaskKind         `json:"kind"`
	Params      domain.GenerationParams `json:"params"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	EnqueuedAt  time.Time               `json:"enqueued_at"`
}

// Queue decouples request threads from generation work. Enqueue returns as
// soon as the job is durably queued; Dequeue blocks until a job is available
// or the context is done.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
}
