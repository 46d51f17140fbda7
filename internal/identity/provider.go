// Package identity resolves API keys into user profiles. Profiles are
// consumed read-only by the orchestration core: the user identifier keys
// rate windows and task ownership, the rate limit caps admission.
package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fluxserver/internal/domain"
)

// Provider looks up the profile bound to an API key.
type Provider interface {
	// Lookup returns the profile for apiKey, or domain.ErrUnauthorized
	// when the key is unknown or revoked.
	Lookup(ctx context.Context, apiKey string) (*domain.UserProfile, error)
}

// StaticProvider serves profiles parsed from configuration. It backs
// development and test environments where no database is configured.
type StaticProvider struct {
	profiles map[string]domain.UserProfile
}

// DemoProfiles are the development fallback keys.
func DemoProfiles() map[string]domain.UserProfile {
	return map[string]domain.UserProfile{
		"flux-api-key-demo":    {UserID: "demo_user", Tier: "basic", RateLimit: 10},
		"flux-api-key-premium": {UserID: "premium_user", Tier: "premium", RateLimit: 100},
	}
}

// NewStaticProvider parses spec, a comma-separated list of
// key=userID:tier:limit entries. An empty spec yields the demo keys.
func NewStaticProvider(spec string) (*StaticProvider, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return &StaticProvider{profiles: DemoProfiles()}, nil
	}

	profiles := make(map[string]domain.UserProfile)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, rest, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("identity: malformed entry %q", entry)
		}
		parts := strings.Split(rest, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("identity: malformed profile in %q", entry)
		}
		limit, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("identity: rate limit in %q: %w", entry, err)
		}
		profiles[strings.TrimSpace(key)] = domain.UserProfile{
			UserID:    strings.TrimSpace(parts[0]),
			Tier:      strings.TrimSpace(parts[1]),
			RateLimit: limit,
		}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("identity: no profiles in %q", spec)
	}
	return &StaticProvider{profiles: profiles}, nil
}

func (p *StaticProvider) Lookup(ctx context.Context, apiKey string) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile, ok := p.profiles[apiKey]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	out := profile
	return &out, nil
}

var _ Provider = (*StaticProvider)(nil)
