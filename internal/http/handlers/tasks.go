package handlers

import (
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"fluxserver/internal/domain"
	"fluxserver/internal/middleware"
)

// TaskStatus reports the state of a task. Unknown tasks and tasks owned by
// another user get the same not_found answer so identifiers leak nothing.
func (a *App) TaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := a.ownedTask(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, task)
}

// TaskResult streams the artifact of a completed task.
func (a *App) TaskResult(w http.ResponseWriter, r *http.Request) {
	task, ok := a.ownedTask(w, r)
	if !ok {
		return
	}
	switch task.Status {
	case domain.TaskStatusQueued, domain.TaskStatusProcessing:
		a.error(w, http.StatusConflict, "not_ready", "task has not completed yet")
		return
	case domain.TaskStatusFailed:
		msg := task.Error
		if msg == "" {
			msg = "generation failed"
		}
		a.error(w, http.StatusConflict, "generation_failed", msg)
		return
	}

	data, err := a.Files.Read(r.Context(), task.OutputPath)
	if err != nil {
		a.Logger.Error().Err(err).Str("task_id", task.ID).Msg("result artifact missing")
		a.error(w, http.StatusNotFound, "not_found", "result artifact not found")
		return
	}
	filename := fmt.Sprintf("%s%s", task.ID, path.Ext(task.OutputPath))
	w.Header().Set("Content-Type", contentTypeFor(task.Kind))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) ownedTask(w http.ResponseWriter, r *http.Request) (*domain.Task, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "task_id required")
		return nil, false
	}
	task, ok, err := a.Registry.Get(r.Context(), taskID)
	if err != nil {
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("registry lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return nil, false
	}
	if !ok || task.UserID != userID {
		a.error(w, http.StatusNotFound, "not_found", "task not found")
		return nil, false
	}
	return task, true
}

func contentTypeFor(kind domain.TaskKind) string {
	if kind == domain.TaskKindVideo {
		return "video/mp4"
	}
	return "image/png"
}
