package domain

// UserProfile describes the caller as reported by the identity provider.
// The orchestration core only reads it: the tier label travels into issued
// tokens and RateLimit caps each rate window for the user.
type UserProfile struct {
	UserID    string `json:"user_id"`
	Tier      string `json:"tier"`
	RateLimit int    `json:"rate_limit"`
}
