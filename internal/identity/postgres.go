package identity

import (
	"context"
	"fmt"

	"fluxserver/internal/domain"
	"fluxserver/internal/infra"
	"fluxserver/internal/sqlinline"
)

// PostgresProvider resolves API keys against the api_keys table.
type PostgresProvider struct {
	sql infra.SQLExecutor
}

// NewPostgresProvider wraps a SQL executor.
func NewPostgresProvider(sql infra.SQLExecutor) *PostgresProvider {
	return &PostgresProvider{sql: sql}
}

func (p *PostgresProvider) Lookup(ctx context.Context, apiKey string) (*domain.UserProfile, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QSelectAPIKeyProfile, apiKey)
	var profile domain.UserProfile
	if err := row.Scan(&profile.UserID, &profile.Tier, &profile.RateLimit); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("identity: lookup: %w", err)
	}
	return &profile, nil
}

var _ Provider = (*PostgresProvider)(nil)
