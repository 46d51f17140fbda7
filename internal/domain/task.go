package domain

import "time"

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition may leave the state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to next. The graph is queued -> processing -> completed|failed; terminal
// states have no outgoing edges.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusQueued:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// TaskKind distinguishes generation job categories.
type TaskKind string

const (
	TaskKindImage TaskKind = "image"
	TaskKindVideo TaskKind = "video"
)

// Task is the durable record of one asynchronous generation unit. Records
// are stored as JSON under task:<id> and expire after the configured
// retention window.
type Task struct {
	ID             string     `json:"task_id"`
	UserID         string     `json:"user_id"`
	Kind           TaskKind   `json:"kind"`
	Status         TaskStatus `json:"status"`
	OutputPath     string     `json:"output_path,omitempty"`
	ResultURL      string     `json:"result_url,omitempty"`
	GenerationTime float64    `json:"generation_time,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CacheEntry maps a request fingerprint to a previously produced artifact.
// Entries are written once on successful completion and never updated.
type CacheEntry struct {
	ArtifactURL    string  `json:"image_url"`
	OutputPath     string  `json:"output_path,omitempty"`
	GenerationTime float64 `json:"generation_time"`
}
