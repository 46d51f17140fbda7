// Package dispatch turns accepted requests into queued tasks.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"fluxserver/internal/domain"
	"fluxserver/internal/infra"
	"fluxserver/internal/queue"
	"fluxserver/internal/registry"
)

// Dispatcher creates the durable task record and hands the job to the
// worker queue. It never blocks on generation: the enqueue call is the only
// asynchronous boundary it touches. Task identifier uniqueness is the
// caller's responsibility (UUID generation).
type Dispatcher struct {
	registry *registry.Registry
	queue    queue.Queue
	logger   infra.Logger
}

// New creates a Dispatcher.
func New(reg *registry.Registry, q queue.Queue, logger infra.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, queue: q, logger: logger}
}

// Submit records the task as queued and enqueues the job. The registry
// write happens synchronously before the enqueue so a submitted task is
// always observable; if the enqueue itself fails the record is left to
// expire and the error is returned to the caller.
func (d *Dispatcher) Submit(ctx context.Context, taskID, userID string, params domain.GenerationParams, fingerprint string) error {
	if err := d.registry.Create(ctx, taskID, userID, params.Kind); err != nil {
		return fmt.Errorf("dispatch: create task %s: %w", taskID, err)
	}
	job := queue.Job{
		TaskID:      taskID,
		UserID:      userID,
		Kind:        params.Kind,
		Params:      params,
		Fingerprint: fingerprint,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.logger.Error().Err(err).Str("task_id", taskID).Msg("dispatch: enqueue failed, task record will expire")
		return fmt.Errorf("dispatch: enqueue task %s: %w", taskID, err)
	}
	d.logger.Info().Str("task_id", taskID).Str("user_id", userID).Str("kind", string(params.Kind)).Msg("dispatch: task queued")
	return nil
}
