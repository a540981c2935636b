package manufacturer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	id "provchain/pkg/domain"
	txcontext "provchain/pkg/platform/tx"
)

// Postgres persists the authorized manufacturer set. Authorization times are
// stored as integer epoch seconds.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Authorize adds the principal. ON CONFLICT DO NOTHING gives the set its
// idempotent, grow-only semantics at the storage layer.
func (s *Postgres) Authorize(ctx context.Context, principal id.Principal, now time.Time) error {
	query := `
		INSERT INTO authorized_manufacturers (principal, authorized_at)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, principal.String(), now.Unix())
	if err != nil {
		return fmt.Errorf("authorize manufacturer: %w", err)
	}
	return nil
}

// IsAuthorized reports membership via the primary key index.
func (s *Postgres) IsAuthorized(ctx context.Context, principal id.Principal) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM authorized_manufacturers WHERE principal = $1)`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, principal.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check manufacturer authorization: %w", err)
	}
	return exists, nil
}
