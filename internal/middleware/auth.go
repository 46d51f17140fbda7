package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fluxserver/internal/domain"
)

// Claims is the token payload issued by the auth endpoint. The profile
// travels inside the token so request handling never needs a credential
// lookup.
type Claims struct {
	Tier      string `json:"tier"`
	RateLimit int    `json:"rate_limit"`
	jwt.RegisteredClaims
}

type userKey string

const profileKey userKey = "profile"

// SignToken mints an HS256 token carrying the user's profile, valid for ttl.
func SignToken(secret string, profile domain.UserProfile, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Tier:      profile.Tier,
		RateLimit: profile.RateLimit,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates an HS256 token, rejecting other
// signing methods.
func VerifyToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}

// AuthJWT requires a valid bearer token and stores the caller's profile on
// the request context.
func AuthJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			claims, err := VerifyToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			profile := domain.UserProfile{
				UserID:    claims.Subject,
				Tier:      claims.Tier,
				RateLimit: claims.RateLimit,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithProfile(r.Context(), profile)))
		})
	}
}

// ContextWithProfile attaches an authenticated profile to ctx.
func ContextWithProfile(ctx context.Context, profile domain.UserProfile) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

// ProfileFromContext returns the authenticated profile, if any.
func ProfileFromContext(ctx context.Context) (domain.UserProfile, bool) {
	p, ok := ctx.Value(profileKey).(domain.UserProfile)
	return p, ok
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	p, _ := ProfileFromContext(ctx)
	return p.UserID
}
