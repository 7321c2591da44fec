package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/devconnector/backend/internal/models"
)

// AuditStore appends authentication events to PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Migrate creates the auth_events table if it doesn't exist.
func (s *AuditStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auth_events (
			id          BIGSERIAL PRIMARY KEY,
			user_id     VARCHAR(24),
			email       VARCHAR(255) NOT NULL,
			kind        VARCHAR(32)  NOT NULL,
			remote_addr VARCHAR(64),
			created_at  TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS auth_events_email_idx ON auth_events (email, created_at DESC);
	`)
	return err
}

func (s *AuditStore) Record(ctx context.Context, ev models.AuthEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auth_events (user_id, email, kind, remote_addr, created_at)
		 VALUES (NULLIF($1, ''), $2, $3, $4, $5)`,
		ev.UserID, ev.Email, string(ev.Kind), ev.RemoteAddr, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record auth event: %w", err)
	}
	return nil
}
