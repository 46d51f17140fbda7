// Package registry keeps the durable record of task state and outputs.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fluxserver/internal/domain"
	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
)

const keyPrefix = "task:"

// Field mutates optional task attributes during a transition.
type Field func(*domain.Task)

// WithOutput records the artifact location and its retrieval URL.
func WithOutput(path, url string) Field {
	return func(t *domain.Task) {
		t.OutputPath = path
		t.ResultURL = url
	}
}

// WithGenerationTime records the wall-clock generation duration in seconds.
func WithGenerationTime(seconds float64) Field {
	return func(t *domain.Task) {
		t.GenerationTime = seconds
	}
}

// WithError records a human-readable failure summary.
func WithError(msg string) Field {
	return func(t *domain.Task) {
		t.Error = msg
	}
}

// Registry stores task records under task:<id> with a fixed retention
// window measured from the last update. Records expire regardless of
// terminal state; a completed task's status becomes unavailable even though
// its cache entry (longer TTL) may still exist.
type Registry struct {
	store  kv.Store
	ttl    time.Duration
	logger infra.Logger
	now    func() time.Time
}

// New creates a Registry with the configured task retention window.
func New(store kv.Store, ttl time.Duration, logger infra.Logger) *Registry {
	return &Registry{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// SetClock overrides the time source for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Create persists a new task record in the queued state. The caller owns
// identifier uniqueness (UUID generation); Create overwrites blindly.
func (r *Registry) Create(ctx context.Context, taskID, userID string, kind domain.TaskKind) error {
	now := r.now().UTC()
	task := domain.Task{
		ID:        taskID,
		UserID:    userID,
		Kind:      kind,
		Status:    domain.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.write(ctx, &task)
}

// Transition moves a task along the lifecycle graph, merging the given
// optional fields and refreshing the updated timestamp. Transitions out of
// terminal states or skipping states are rejected with
// domain.ErrInvalidTransition.
func (r *Registry) Transition(ctx context.Context, taskID string, next domain.TaskStatus, fields ...Field) error {
	task, ok, err := r.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transition %s: %w", taskID, domain.ErrNotFound)
	}
	if !task.Status.CanTransitionTo(next) {
		return fmt.Errorf("transition %s from %s to %s: %w", taskID, task.Status, next, domain.ErrInvalidTransition)
	}
	task.Status = next
	for _, f := range fields {
		f(task)
	}
	task.UpdatedAt = r.now().UTC()
	return r.write(ctx, task)
}

// Get returns the task record, or ok=false when the identifier is unknown
// or the record has expired.
func (r *Registry) Get(ctx context.Context, taskID string) (*domain.Task, bool, error) {
	raw, ok, err := r.store.Get(ctx, keyPrefix+taskID)
	if err != nil {
		return nil, false, fmt.Errorf("registry get: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, false, fmt.Errorf("registry decode %s: %w", taskID, err)
	}
	return &task, true, nil
}

func (r *Registry) write(ctx context.Context, task *domain.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("registry encode %s: %w", task.ID, err)
	}
	if err := r.store.SetEX(ctx, keyPrefix+task.ID, raw, r.ttl); err != nil {
		return fmt.Errorf("registry write %s: %w", task.ID, err)
	}
	return nil
}
