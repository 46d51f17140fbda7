// Package handlers implements the HTTP boundary of the generation service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"fluxserver/internal/adapter"
	"fluxserver/internal/cache"
	"fluxserver/internal/dispatch"
	"fluxserver/internal/generator"
	"fluxserver/internal/identity"
	"fluxserver/internal/infra"
	"fluxserver/internal/ratelimit"
	"fluxserver/internal/registry"
	"fluxserver/internal/storage"
)

// App bundles everything the handlers need.
type App struct {
	Config     *infra.Config
	Logger     infra.Logger
	Limiter    *ratelimit.Limiter
	Cache      *cache.ResultCache
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher
	Adapters   *adapter.Loader
	Identity   identity.Provider
	Files      *storage.FileStore
	Generator  generator.Generator
	Pinger     interface {
		Ping(ctx context.Context) error
	}

	validate *validator.Validate
}

// Validator returns the shared request validator, building it on first use.
func (a *App) Validator() *validator.Validate {
	if a.validate == nil {
		a.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return a.validate
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
