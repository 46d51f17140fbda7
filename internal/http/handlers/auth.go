package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fluxserver/internal/domain"
	"fluxserver/internal/middleware"
)

const tokenTTL = 24 * time.Hour

type tokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

type tokenResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int64              `json:"expires_in"`
	UserInfo    domain.UserProfile `json:"user_info"`
}

// AuthToken exchanges an API key for a signed bearer token carrying the
// caller's profile.
func (a *App) AuthToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validator().Struct(req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "api_key required")
		return
	}
	profile, err := a.Identity.Lookup(r.Context(), req.APIKey)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}
		a.Logger.Error().Err(err).Msg("identity lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "identity lookup failed")
		return
	}
	token, err := middleware.SignToken(a.Config.JWTSecret, *profile, tokenTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(tokenTTL.Seconds()),
		UserInfo:    *profile,
	})
}
