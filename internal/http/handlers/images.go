package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"fluxserver/internal/domain"
	"fluxserver/internal/estimate"
	"fluxserver/internal/fingerprint"
	"fluxserver/internal/middleware"
	"fluxserver/internal/ratelimit"
)

const (
	defaultEdge     = 512
	defaultSteps    = 50
	defaultGuidance = 7.5
)

type imageGenerateRequest struct {
	Prompt        string   `json:"prompt" validate:"required,max=1000"`
	Width         int      `json:"width" validate:"omitempty,min=1"`
	Height        int      `json:"height" validate:"omitempty,min=1"`
	Steps         int      `json:"num_inference_steps" validate:"omitempty,min=1,max=100"`
	GuidanceScale *float64 `json:"guidance_scale"`
	Seed          *int64   `json:"seed"`
	Adapter       string   `json:"lora"`
}

type queuedResponse struct {
	TaskID        string `json:"task_id"`
	Status        string `json:"status"`
	EstimatedTime int    `json:"estimated_time"`
}

type cachedResponse struct {
	TaskID         string  `json:"task_id"`
	Status         string  `json:"status"`
	ImageURL       string  `json:"image_url"`
	Cached         bool    `json:"cached"`
	GenerationTime float64 `json:"generation_time"`
}

// ImagesGenerate accepts an image job. Repeated submissions with identical
// parameters are served from the result cache without re-queuing.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if !a.admit(r, profile, ratelimit.ClassImage) {
		a.error(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		return
	}

	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validator().Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt required (max 1000 chars), num_inference_steps 1..100")
		return
	}

	width := a.clampEdge(req.Width)
	height := a.clampEdge(req.Height)
	steps := req.Steps
	if steps == 0 {
		steps = defaultSteps
	}
	guidance := defaultGuidance
	if req.GuidanceScale != nil {
		guidance = *req.GuidanceScale
	}

	fp := fingerprint.Compute(fingerprint.Request{
		Prompt:     req.Prompt,
		Width:      width,
		Height:     height,
		Steps:      steps,
		Guidance:   guidance,
		Seed:       req.Seed,
		AdapterRef: req.Adapter,
	})
	if entry, hit := a.Cache.Get(r.Context(), fp); hit {
		a.json(w, http.StatusOK, cachedResponse{
			TaskID:         uuid.NewString(),
			Status:         string(domain.TaskStatusCompleted),
			ImageURL:       entry.ArtifactURL,
			Cached:         true,
			GenerationTime: 0,
		})
		return
	}

	taskID := uuid.NewString()
	params := domain.GenerationParams{
		Prompt:        req.Prompt,
		Width:         width,
		Height:        height,
		Steps:         steps,
		GuidanceScale: guidance,
		Seed:          req.Seed,
		Kind:          domain.TaskKindImage,
	}
	params.AdapterPath = a.stageAdapter(r, req.Adapter, taskID)

	if err := a.Dispatcher.Submit(r.Context(), taskID, profile.UserID, params, fp); err != nil {
		a.Logger.Error().Err(err).Str("task_id", taskID).Msg("dispatch image job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, queuedResponse{
		TaskID:        taskID,
		Status:        string(domain.TaskStatusQueued),
		EstimatedTime: estimate.ImageSeconds(width, height, steps),
	})
}

func (a *App) admit(r *http.Request, profile domain.UserProfile, class string) bool {
	ceiling := profile.RateLimit
	if ceiling <= 0 {
		ceiling = a.Config.RateLimitPerMin
	}
	return a.Limiter.Admit(r.Context(), profile.UserID, class, ceiling)
}

func (a *App) clampEdge(v int) int {
	if v <= 0 {
		return defaultEdge
	}
	if v > a.Config.MaxImageSize {
		return a.Config.MaxImageSize
	}
	return v
}

// stageAdapter fetches and validates optional adapter weights. A bad adapter
// is logged and skipped; the job proceeds without it rather than failing.
func (a *App) stageAdapter(r *http.Request, ref, taskID string) string {
	if ref == "" {
		return ""
	}
	path, err := a.Adapters.Process(r.Context(), ref, taskID)
	if err != nil {
		a.Logger.Warn().Err(err).Str("task_id", taskID).Msg("adapter rejected, continuing without it")
		return ""
	}
	return path
}
