// Command apikey provisions or updates an API key in the database-backed
// identity store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fluxserver/internal/identity"
	"fluxserver/internal/infra"
	"fluxserver/internal/sqlinline"
)

func main() {
	var (
		keyFlag   string
		userFlag  string
		tierFlag  string
		limitFlag int
	)

	flag.StringVar(&keyFlag, "key", "", "API key to create or update")
	flag.StringVar(&userFlag, "user", "", "user ID the key belongs to (UUID)")
	flag.StringVar(&tierFlag, "tier", "basic", "tier to assign (basic, premium)")
	flag.IntVar(&limitFlag, "limit", 10, "per-minute request ceiling for the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	userID := strings.TrimSpace(userFlag)
	tier := strings.TrimSpace(strings.ToLower(tierFlag))

	if key == "" || userID == "" {
		exitWithError(errors.New("-key and -user are required"))
	}
	switch tier {
	case "basic", "premium":
	default:
		exitWithError(fmt.Errorf("unsupported tier %q", tier))
	}
	if limitFlag <= 0 {
		exitWithError(errors.New("-limit must be positive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "apikey").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	if _, err := runner.Exec(ctx, sqlinline.QUpsertAPIKey, key, userID, tier, limitFlag); err != nil {
		exitWithError(fmt.Errorf("failed to upsert api key: %w", err))
	}

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelVerify()
	profile, err := identity.NewPostgresProvider(runner).Lookup(verifyCtx, key)
	if err != nil {
		exitWithError(fmt.Errorf("key written but lookup failed: %w", err))
	}

	fmt.Printf("api key %s -> user=%s tier=%s limit=%d\n", key, profile.UserID, profile.Tier, profile.RateLimit)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "apikey: %v\n", err)
	os.Exit(1)
}
