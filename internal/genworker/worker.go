// Package genworker consumes queued generation jobs and drives them to a
// terminal state.
package genworker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fluxserver/internal/cache"
	"fluxserver/internal/domain"
	"fluxserver/internal/generator"
	"fluxserver/internal/infra"
	"fluxserver/internal/queue"
	"fluxserver/internal/registry"
	"fluxserver/internal/storage"
)

// Config wires a worker pool.
type Config struct {
	Queue       queue.Queue
	Registry    *registry.Registry
	Cache       *cache.ResultCache
	Store       *storage.FileStore
	Generator   generator.Generator
	Concurrency int
	Logger      infra.Logger
}

// Pool runs a fixed number of goroutines over the job queue. The generator
// is a singleton per process: generation calls serialize through a mutex,
// so scaling generation throughput means running more worker processes, not
// raising Concurrency.
type Pool struct {
	queue    queue.Queue
	registry *registry.Registry
	cache    *cache.ResultCache
	store    *storage.FileStore

	gen   generator.Generator
	genMu sync.Mutex

	concurrency int
	logger      infra.Logger
}

// New creates a Pool from cfg.
func New(cfg Config) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		queue:       cfg.Queue,
		registry:    cfg.Registry,
		cache:       cfg.Cache,
		store:       cfg.Store,
		gen:         cfg.Generator,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

// Run consumes jobs until ctx is canceled.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info().Int("concurrency", p.concurrency).Msg("worker: started")
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.loop(ctx, n)
		}(i)
	}
	wg.Wait()
	p.logger.Info().Msg("worker: stopped")
	return ctx.Err()
}

func (p *Pool) loop(ctx context.Context, n int) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			p.logger.Error().Err(err).Int("worker", n).Msg("worker: dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if err := p.Execute(ctx, job); err != nil {
			// The failure is already recorded on the task; surfacing it
			// here lets the queue layer's own retry policy see it.
			p.logger.Error().Err(err).Str("task_id", job.TaskID).Msg("worker: job failed")
		}
	}
}

// Execute runs one job to a terminal state. On success the artifact is
// persisted, image results are memoized, and the task completes with its
// output location and duration. On failure the task is marked failed with a
// readable summary and the error is returned; jobs are never retried here.
func (p *Pool) Execute(ctx context.Context, job queue.Job) error {
	if err := p.registry.Transition(ctx, job.TaskID, domain.TaskStatusProcessing); err != nil {
		return fmt.Errorf("worker: claim %s: %w", job.TaskID, err)
	}
	p.logger.Info().Str("task_id", job.TaskID).Str("kind", string(job.Kind)).Msg("worker: picked job")

	if job.Params.AdapterPath != "" {
		p.logger.Info().Str("task_id", job.TaskID).Str("adapter", job.Params.AdapterPath).Msg("worker: adapter weights attached")
	}

	start := time.Now()
	data, err := p.generate(ctx, job.Params)
	if err != nil {
		return p.fail(ctx, job.TaskID, fmt.Errorf("generation: %w", err))
	}
	elapsed := time.Since(start).Seconds()

	key, err := p.store.Write(ctx, outputKey(job), data)
	if err != nil {
		return p.fail(ctx, job.TaskID, fmt.Errorf("persist artifact: %w", err))
	}
	resultURL := fmt.Sprintf("/v1/tasks/%s/result", job.TaskID)

	// Video results are deliberately not memoized; only image jobs carry a
	// fingerprint into the cache.
	if job.Kind == domain.TaskKindImage && job.Fingerprint != "" {
		p.cache.Put(ctx, job.Fingerprint, domain.CacheEntry{
			ArtifactURL:    resultURL,
			OutputPath:     key,
			GenerationTime: elapsed,
		})
	}

	if err := p.registry.Transition(ctx, job.TaskID, domain.TaskStatusCompleted,
		registry.WithOutput(key, resultURL),
		registry.WithGenerationTime(elapsed),
	); err != nil {
		return fmt.Errorf("worker: complete %s: %w", job.TaskID, err)
	}
	p.logger.Info().Str("task_id", job.TaskID).Float64("generation_time", elapsed).Msg("worker: job completed")
	return nil
}

// generate serializes access to the generation singleton and lazily
// initializes it on first use.
func (p *Pool) generate(ctx context.Context, params domain.GenerationParams) ([]byte, error) {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	if !p.gen.IsReady() {
		if err := p.gen.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGeneratorNotReady, err)
		}
	}
	return p.gen.Generate(ctx, params)
}

func (p *Pool) fail(ctx context.Context, taskID string, cause error) error {
	// The job context may already be canceled (shutdown mid-generation);
	// the terminal write must still land or the task sits in processing
	// until its TTL.
	writeCtx := context.WithoutCancel(ctx)
	if err := p.registry.Transition(writeCtx, taskID, domain.TaskStatusFailed, registry.WithError(cause.Error())); err != nil {
		p.logger.Error().Err(err).Str("task_id", taskID).Msg("worker: record failure")
	}
	return cause
}

func outputKey(job queue.Job) string {
	ext := "png"
	if job.Kind == domain.TaskKindVideo {
		ext = "mp4"
	}
	return fmt.Sprintf("outputs/%s.%s", job.TaskID, ext)
}
