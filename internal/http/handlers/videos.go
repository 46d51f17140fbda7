package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"fluxserver/internal/domain"
	"fluxserver/internal/estimate"
	"fluxserver/internal/middleware"
	"fluxserver/internal/ratelimit"
)

const defaultFPS = 24

type videoGenerateRequest struct {
	Prompt   string   `json:"prompt" validate:"required,max=1000"`
	Duration *float64 `json:"duration" validate:"required"`
	Width    int      `json:"width" validate:"omitempty,min=1"`
	Height   int      `json:"height" validate:"omitempty,min=1"`
	FPS      int      `json:"fps" validate:"omitempty,min=1"`
	Seed     *int64   `json:"seed"`
	Adapter  string   `json:"lora"`
}

// VideosGenerate accepts a video job. Video results are never served from
// the cache; every submission queues a fresh generation.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if !a.admit(r, profile, ratelimit.ClassVideo) {
		a.error(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		return
	}

	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validator().Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt and duration required, fps must be positive")
		return
	}
	duration := *req.Duration
	if duration <= 0 || duration > float64(a.Config.MaxVideoDuration) {
		a.error(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("duration must be between 0 and %d seconds", a.Config.MaxVideoDuration))
		return
	}

	width := a.clampEdge(req.Width)
	height := a.clampEdge(req.Height)
	fps := req.FPS
	if fps == 0 {
		fps = defaultFPS
	}
	if fps > a.Config.MaxVideoFPS {
		a.error(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("fps must be between 1 and %d", a.Config.MaxVideoFPS))
		return
	}

	taskID := uuid.NewString()
	params := domain.GenerationParams{
		Prompt:   req.Prompt,
		Width:    width,
		Height:   height,
		Seed:     req.Seed,
		Duration: duration,
		FPS:      fps,
		Kind:     domain.TaskKindVideo,
	}
	params.AdapterPath = a.stageAdapter(r, req.Adapter, taskID)

	if err := a.Dispatcher.Submit(r.Context(), taskID, profile.UserID, params, ""); err != nil {
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("dispatch video job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, queuedResponse{
		TaskID:        taskID,
		Status:        string(domain.TaskStatusQueued),
		EstimatedTime: estimate.VideoSeconds(duration, width, height, fps),
	})
}
