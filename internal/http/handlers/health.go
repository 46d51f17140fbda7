package handlers

import (
	"net/http"
	"time"
)

// Health reports process liveness plus the state of the store and generator.
// A degraded store still answers 200: the service keeps accepting requests
// in degraded mode, it just stops memoizing and rate limiting.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	storeStatus := "ok"
	if a.Pinger != nil {
		if err := a.Pinger.Ping(r.Context()); err != nil {
			storeStatus = "unavailable"
		}
	}
	generatorReady := a.Generator != nil && a.Generator.IsReady()
	a.json(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"store":           storeStatus,
		"generator_ready": generatorReady,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
