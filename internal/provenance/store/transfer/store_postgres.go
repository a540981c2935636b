package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provchain/internal/provenance/models"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
	txcontext "provchain/pkg/platform/tx"
)

// Postgres persists the append-only transfer ledger. The table carries no
// UPDATE or DELETE statements anywhere in this package, and the schema
// installs a trigger rejecting both, so append-only holds structurally
// rather than by convention.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append commits the transfer at the next sequence index for its product.
// Callers must hold the product's engine lock (or run inside the engine
// transaction) so the computed index cannot race.
func (s *Postgres) Append(ctx context.Context, t *models.Transfer) (int, error) {
	query := `
		INSERT INTO transfers (
			product_id, seq, from_owner, to_owner, transferred_at, location, additional_info
		)
		VALUES (
			$1,
			(SELECT COUNT(*) FROM transfers WHERE product_id = $1),
			$2, $3, $4, $5, $6
		)
		RETURNING seq
	`
	var seq int
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(t.ProductID),
		t.From.String(),
		t.To.String(),
		t.TransferredAt.Unix(),
		t.Location,
		t.AdditionalInfo,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append transfer: %w", err)
	}
	return seq, nil
}

// Count returns the number of committed transfers for a product.
func (s *Postgres) Count(ctx context.Context, productID id.ProductID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transfers WHERE product_id = $1`
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

// Get returns the transfer at the given sequence index.
func (s *Postgres) Get(ctx context.Context, productID id.ProductID, index int) (*models.Transfer, error) {
	query := `
		SELECT product_id, seq, from_owner, to_owner, transferred_at, location, additional_info
		FROM transfers
		WHERE product_id = $1 AND seq = $2
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID), index)
	t, err := scanTransfer(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// ListByProduct returns the full history in commit order in a single query.
func (s *Postgres) ListByProduct(ctx context.Context, productID id.ProductID) ([]*models.Transfer, error) {
	query := `
		SELECT product_id, seq, from_owner, to_owner, transferred_at, location, additional_info
		FROM transfers
		WHERE product_id = $1
		ORDER BY seq
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(productID))
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	transfers := []*models.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}

func scanTransfer(scan func(dest ...any) error) (*models.Transfer, error) {
	var (
		t             models.Transfer
		productUUID   uuid.UUID
		fromOwner     string
		toOwner       string
		transferredAt int64
	)
	err := scan(
		&productUUID,
		&t.Sequence,
		&fromOwner,
		&toOwner,
		&transferredAt,
		&t.Location,
		&t.AdditionalInfo,
	)
	if err != nil {
		return nil, err
	}
	t.ProductID = id.ProductID(productUUID)
	t.From = id.Principal(fromOwner)
	t.To = id.Principal(toOwner)
	t.TransferredAt = time.Unix(transferredAt, 0).UTC()
	return &t, nil
}
