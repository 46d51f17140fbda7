package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"fluxserver/internal/adapter"
	"fluxserver/internal/cache"
	"fluxserver/internal/dispatch"
	"fluxserver/internal/domain"
	"fluxserver/internal/generator"
	"fluxserver/internal/identity"
	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
	"fluxserver/internal/middleware"
	"fluxserver/internal/queue"
	"fluxserver/internal/ratelimit"
	"fluxserver/internal/registry"
	"fluxserver/internal/storage"
)

const testJWTSecret = "handlers-test-secret"

type testEnv struct {
	app   *App
	kv    *kv.MemoryStore
	queue *queue.MemoryQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := infra.NewLogger("test")
	cfg := &infra.Config{
		AppEnv:           "test",
		JWTSecret:        testJWTSecret,
		MaxImageSize:     1024,
		MaxVideoDuration: 30,
		MaxVideoFPS:      60,
		RateLimitPerMin:  10,
		RateLimitWindow:  time.Minute,
		CacheTTL:         24 * time.Hour,
		TaskTTL:          2 * time.Hour,
	}
	store := kv.NewMemoryStore()
	q := queue.NewMemoryQueue(16)
	reg := registry.New(store, cfg.TaskTTL, logger)
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	provider, err := identity.NewStaticProvider("")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	gen := generator.NewSynthetic()
	app := &App{
		Config:     cfg,
		Logger:     logger,
		Limiter:    ratelimit.New(store, cfg.RateLimitWindow, logger),
		Cache:      cache.New(store, cfg.CacheTTL, logger),
		Registry:   reg,
		Dispatcher: dispatch.New(reg, q, logger),
		Adapters:   adapter.NewLoader(t.TempDir(), logger),
		Identity:   provider,
		Files:      files,
		Generator:  gen,
		Pinger:     store,
	}
	return &testEnv{app: app, kv: store, queue: q}
}

func (e *testEnv) token(t *testing.T, profile domain.UserProfile) string {
	t.Helper()
	token, err := middleware.SignToken(testJWTSecret, profile, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func basicProfile() domain.UserProfile {
	return domain.UserProfile{UserID: "demo_user", Tier: "basic", RateLimit: 10}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, profile *domain.UserProfile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if profile != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *profile))
	}
	rec := httptest.NewRecorder()
	e.router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", e.app.Health)
	r.Post("/auth/token", e.app.AuthToken)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(testJWTSecret))
		r.Post("/images/generate", e.app.ImagesGenerate)
		r.Post("/videos/generate", e.app.VideosGenerate)
		r.Get("/tasks/{task_id}", e.app.TaskStatus)
		r.Get("/tasks/{task_id}/result", e.app.TaskResult)
	})
	return r
}

func (e *testEnv) dequeue(t *testing.T) queue.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := e.queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	return job
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAuthTokenDemoKey(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/auth/token", map[string]string{"api_key": "flux-api-key-demo"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]any](t, rec)
	if resp["access_token"] == "" {
		t.Fatal("missing access_token")
	}
	user, _ := resp["user_info"].(map[string]any)
	if user["user_id"] != "demo_user" || user["tier"] != "basic" {
		t.Fatalf("user_info = %v", user)
	}
}

func TestAuthTokenInvalidKey(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/auth/token", map[string]string{"api_key": "nope"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthTokenMissingKey(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/auth/token", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImagesGenerateQueuesJob(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "a red barn"}, &profile)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[queuedResponse](t, rec)
	if resp.TaskID == "" || resp.Status != "queued" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.EstimatedTime != 10 {
		t.Fatalf("estimated_time = %d, want 10 for 512x512x50", resp.EstimatedTime)
	}

	job := e.dequeue(t)
	if job.TaskID != resp.TaskID || job.Kind != domain.TaskKindImage {
		t.Fatalf("job = %+v", job)
	}
	if job.Params.Width != 512 || job.Params.Height != 512 || job.Params.Steps != 50 {
		t.Fatalf("defaults not applied: %+v", job.Params)
	}
	if job.Params.GuidanceScale != 7.5 {
		t.Fatalf("guidance = %v", job.Params.GuidanceScale)
	}
	if job.Fingerprint == "" {
		t.Fatal("image job missing fingerprint")
	}

	task, ok, err := e.app.Registry.Get(context.Background(), resp.TaskID)
	if err != nil || !ok {
		t.Fatalf("registry get: ok=%v err=%v", ok, err)
	}
	if task.Status != domain.TaskStatusQueued || task.UserID != "demo_user" {
		t.Fatalf("task = %+v", task)
	}
}

func TestImagesGenerateClampsDimensions(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{
		"prompt": "oversized", "width": 4096, "height": 2048,
	}, &profile)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	job := e.dequeue(t)
	if job.Params.Width != 1024 || job.Params.Height != 1024 {
		t.Fatalf("dimensions not clamped: %dx%d", job.Params.Width, job.Params.Height)
	}
}

func TestImagesGenerateValidation(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing prompt", map[string]any{"width": 512}},
		{"long prompt", map[string]any{"prompt": strings.Repeat("x", 1001)}},
		{"steps too high", map[string]any{"prompt": "p", "num_inference_steps": 101}},
	}
	for _, tc := range cases {
		rec := e.do(t, http.MethodPost, "/v1/images/generate", tc.body, &profile)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
	}
}

func TestImagesGenerateUnauthenticated(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "p"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImagesGenerateRateLimited(t *testing.T) {
	e := newTestEnv(t)
	profile := domain.UserProfile{UserID: "tight_user", Tier: "basic", RateLimit: 2}
	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": fmt.Sprintf("p%d", i)}, &profile)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "p3"}, &profile)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestImagesGenerateCacheHit(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	body := map[string]any{"prompt": "cacheable scene", "seed": 42}

	first := e.do(t, http.MethodPost, "/v1/images/generate", body, &profile)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first: status = %d", first.Code)
	}
	job := e.dequeue(t)

	// simulate the worker memoizing the finished artifact
	e.app.Cache.Put(context.Background(), job.Fingerprint, domain.CacheEntry{
		ArtifactURL:    "/v1/tasks/" + job.TaskID + "/result",
		OutputPath:     "outputs/" + job.TaskID + ".png",
		GenerationTime: 3.2,
	})

	second := e.do(t, http.MethodPost, "/v1/images/generate", body, &profile)
	if second.Code != http.StatusOK {
		t.Fatalf("second: status = %d, body %s", second.Code, second.Body.String())
	}
	resp := decode[cachedResponse](t, second)
	if !resp.Cached || resp.Status != "completed" || resp.GenerationTime != 0 {
		t.Fatalf("cached response = %+v", resp)
	}
	if resp.TaskID == job.TaskID {
		t.Fatal("cache hit must mint a fresh task id")
	}
	if resp.ImageURL != "/v1/tasks/"+job.TaskID+"/result" {
		t.Fatalf("image_url = %s", resp.ImageURL)
	}
}

func TestVideosGenerateQueuesJob(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	rec := e.do(t, http.MethodPost, "/v1/videos/generate", map[string]any{
		"prompt": "drone shot of a coastline", "duration": 30,
	}, &profile)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[queuedResponse](t, rec)
	if resp.EstimatedTime != 720 {
		t.Fatalf("estimated_time = %d, want 720 for 30s@24fps@512x512", resp.EstimatedTime)
	}
	job := e.dequeue(t)
	if job.Kind != domain.TaskKindVideo || job.Params.FPS != 24 {
		t.Fatalf("job = %+v", job)
	}
	if job.Fingerprint != "" {
		t.Fatal("video jobs must not carry a cache fingerprint")
	}
}

func TestVideosGenerateValidation(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing duration", map[string]any{"prompt": "p"}},
		{"zero duration", map[string]any{"prompt": "p", "duration": 0}},
		{"too long", map[string]any{"prompt": "p", "duration": 31}},
		{"fps too high", map[string]any{"prompt": "p", "duration": 5, "fps": 61}},
	}
	for _, tc := range cases {
		rec := e.do(t, http.MethodPost, "/v1/videos/generate", tc.body, &profile)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.name, rec.Code)
		}
	}
}

func TestVideosGenerateFPSCeilingConfigurable(t *testing.T) {
	e := newTestEnv(t)
	e.app.Config.MaxVideoFPS = 30
	profile := basicProfile()

	rec := e.do(t, http.MethodPost, "/v1/videos/generate", map[string]any{
		"prompt": "p", "duration": 5, "fps": 48,
	}, &profile)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("fps above ceiling: status = %d, want 400", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/v1/videos/generate", map[string]any{
		"prompt": "p", "duration": 5, "fps": 30,
	}, &profile)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("fps at ceiling: status = %d, want 202", rec.Code)
	}
	job := e.dequeue(t)
	if job.Params.FPS != 30 {
		t.Fatalf("fps = %d, want 30", job.Params.FPS)
	}
}

func TestVideoRateClassIndependent(t *testing.T) {
	e := newTestEnv(t)
	profile := domain.UserProfile{UserID: "split_user", Tier: "basic", RateLimit: 1}
	if rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "p"}, &profile); rec.Code != http.StatusAccepted {
		t.Fatalf("image: status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/v1/videos/generate", map[string]any{"prompt": "p", "duration": 5}, &profile); rec.Code != http.StatusAccepted {
		t.Fatalf("video after image: status = %d", rec.Code)
	}
}

func TestTaskStatusOwnerMasking(t *testing.T) {
	e := newTestEnv(t)
	owner := basicProfile()
	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "masked"}, &owner)
	resp := decode[queuedResponse](t, rec)

	got := e.do(t, http.MethodGet, "/v1/tasks/"+resp.TaskID, nil, &owner)
	if got.Code != http.StatusOK {
		t.Fatalf("owner status = %d", got.Code)
	}
	task := decode[domain.Task](t, got)
	if task.ID != resp.TaskID || task.Status != domain.TaskStatusQueued {
		t.Fatalf("task = %+v", task)
	}

	other := domain.UserProfile{UserID: "premium_user", Tier: "premium", RateLimit: 100}
	masked := e.do(t, http.MethodGet, "/v1/tasks/"+resp.TaskID, nil, &other)
	if masked.Code != http.StatusNotFound {
		t.Fatalf("foreign status = %d, want 404", masked.Code)
	}

	missing := e.do(t, http.MethodGet, "/v1/tasks/no-such-task", nil, &owner)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.Code)
	}
	if masked.Body.String() != missing.Body.String() {
		t.Fatal("foreign and missing tasks must be indistinguishable")
	}
}

func TestTaskResultLifecycle(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	ctx := context.Background()

	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "artifact"}, &profile)
	resp := decode[queuedResponse](t, rec)

	pending := e.do(t, http.MethodGet, "/v1/tasks/"+resp.TaskID+"/result", nil, &profile)
	if pending.Code != http.StatusConflict {
		t.Fatalf("queued result = %d, want 409", pending.Code)
	}

	key, err := e.app.Files.Write(ctx, "outputs/"+resp.TaskID+".png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := e.app.Registry.Transition(ctx, resp.TaskID, domain.TaskStatusProcessing); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := e.app.Registry.Transition(ctx, resp.TaskID, domain.TaskStatusCompleted,
		registry.WithOutput(key, "/v1/tasks/"+resp.TaskID+"/result"),
		registry.WithGenerationTime(1.5),
	); err != nil {
		t.Fatalf("complete: %v", err)
	}

	done := e.do(t, http.MethodGet, "/v1/tasks/"+resp.TaskID+"/result", nil, &profile)
	if done.Code != http.StatusOK {
		t.Fatalf("completed result = %d, body %s", done.Code, done.Body.String())
	}
	if done.Body.String() != "png-bytes" {
		t.Fatalf("body = %q", done.Body.String())
	}
	if cd := done.Header().Get("Content-Disposition"); !strings.Contains(cd, resp.TaskID+".png") {
		t.Fatalf("content-disposition = %q", cd)
	}
	if ct := done.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestTaskResultFailed(t *testing.T) {
	e := newTestEnv(t)
	profile := basicProfile()
	ctx := context.Background()

	rec := e.do(t, http.MethodPost, "/v1/images/generate", map[string]any{"prompt": "doomed"}, &profile)
	resp := decode[queuedResponse](t, rec)
	if err := e.app.Registry.Transition(ctx, resp.TaskID, domain.TaskStatusProcessing); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := e.app.Registry.Transition(ctx, resp.TaskID, domain.TaskStatusFailed, registry.WithError("out of memory")); err != nil {
		t.Fatalf("failed: %v", err)
	}

	got := e.do(t, http.MethodGet, "/v1/tasks/"+resp.TaskID+"/result", nil, &profile)
	if got.Code != http.StatusConflict {
		t.Fatalf("failed result = %d, want 409", got.Code)
	}
	body := decode[map[string]string](t, got)
	if body["error"] != "generation_failed" || !strings.Contains(body["message"], "out of memory") {
		t.Fatalf("body = %v", body)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["status"] != "ok" || resp["store"] != "ok" {
		t.Fatalf("body = %v", resp)
	}
	if resp["generator_ready"] != false {
		t.Fatal("generator should not be ready before initialization")
	}
}
