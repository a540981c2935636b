package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"provchain/internal/provenance/models"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
	txcontext "provchain/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// Postgres persists product records. Timestamps are stored as integer epoch
// seconds per the persisted-state contract.
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

// Create inserts a new product record. A duplicate identifier surfaces as
// sentinel.ErrConflict via the primary key unique violation.
func (s *Postgres) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (
			product_id, product_name, manufacturer, manufacturing_date,
			batch_number, registered_by, registered_at, is_active, current_owner
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.Name,
		p.Manufacturer,
		p.ManufacturingDate,
		p.BatchNumber,
		p.RegisteredBy.String(),
		p.RegisteredAt.Unix(),
		p.IsActive,
		p.CurrentOwner.String(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// FindByID loads one product record.
func (s *Postgres) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	query := `
		SELECT product_id, product_name, manufacturer, manufacturing_date,
			   batch_number, registered_by, registered_at, is_active, current_owner
		FROM products
		WHERE product_id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID))

	var (
		p            models.Product
		productUUID  uuid.UUID
		registeredBy string
		currentOwner string
		registeredAt int64
	)
	err := row.Scan(
		&productUUID,
		&p.Name,
		&p.Manufacturer,
		&p.ManufacturingDate,
		&p.BatchNumber,
		&registeredBy,
		&registeredAt,
		&p.IsActive,
		&currentOwner,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p.ID = id.ProductID(productUUID)
	p.RegisteredBy = id.Principal(registeredBy)
	p.CurrentOwner = id.Principal(currentOwner)
	p.RegisteredAt = time.Unix(registeredAt, 0).UTC()
	return &p, nil
}

// UpdateOwner moves custody with a conditional UPDATE on the stored owner.
// A zero row count means either the product is gone or another transfer
// committed first; the follow-up existence check tells the two apart.
func (s *Postgres) UpdateOwner(ctx context.Context, productID id.ProductID, newOwner, expectedOwner id.Principal) error {
	query := `
		UPDATE products
		SET current_owner = $2
		WHERE product_id = $1 AND current_owner = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(productID), newOwner.String(), expectedOwner.String())
	if err != nil {
		return fmt.Errorf("update product owner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product owner: %w", err)
	}
	if affected == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1)`
		if err := s.execer(ctx).QueryRowContext(ctx, check, uuid.UUID(productID)).Scan(&exists); err != nil {
			return fmt.Errorf("update product owner: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
