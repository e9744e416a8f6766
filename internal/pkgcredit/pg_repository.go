package pkgcredit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool DB
}

func NewPgRepository(pool DB) *PgRepository {
	return &PgRepository{pool: pool}
}

const uniqueViolationCode = "23505"

// Helpers

func scanUsage(row pgx.Row) (*Usage, error) {
	var u Usage

	err := row.Scan(
		&u.ID,
		&u.CustomerPackageID,
		&u.ItemType,
		&u.ItemID,
		&u.TotalQuantity,
		&u.UsedQuantity,
		&u.RemainingQuantity,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUsageNotFound
		}
		return nil, err
	}
	return &u, nil
}

const usageColumns = `id, customer_package_id, item_type, item_id, total_quantity, used_quantity,
		       remaining_quantity, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDefinitionByID(ctx context.Context, id uuid.UUID) (*Definition, error) {
	var d Definition

	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, price, created_at, updated_at
		FROM packages
		WHERE id = $1
	`, id).Scan(&d.ID, &d.TenantID, &d.Name, &d.Price, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT item_type, item_id, quantity
		FROM package_items
		WHERE package_id = $1
		ORDER BY item_type, item_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load package items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ItemType, &it.ItemID, &it.Quantity); err != nil {
			return nil, err
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &d, nil
}

func (r *PgRepository) GetCustomerPackageByID(ctx context.Context, id uuid.UUID) (*CustomerPackage, error) {
	var cp CustomerPackage
	var expiresAt *time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, package_id, tenant_id, staff_id, status, assigned_at, expires_at
		FROM customer_packages
		WHERE id = $1
	`, id).Scan(&cp.ID, &cp.CustomerID, &cp.PackageID, &cp.TenantID, &cp.StaffID, &cp.Status, &cp.AssignedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerPackageNotFound
		}
		return nil, err
	}

	cp.ExpiresAt = expiresAt
	return &cp, nil
}

// CreateAssignment inserts everything in one transaction. The partial unique
// index on (customer_id, package_id) for active assignments turns a duplicate
// into ErrPackageAlreadyAssigned.
func (r *PgRepository) CreateAssignment(ctx context.Context, cp *CustomerPackage, usages []Usage, txn *Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assignment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO customer_packages (id, customer_id, package_id, tenant_id, staff_id, status, assigned_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, cp.ID, cp.CustomerID, cp.PackageID, cp.TenantID, cp.StaffID, cp.Status, cp.AssignedAt, cp.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrPackageAlreadyAssigned
		}
		return fmt.Errorf("insert customer package: %w", err)
	}

	for _, u := range usages {
		_, err = tx.Exec(ctx, `
			INSERT INTO package_usages (id, customer_package_id, item_type, item_id, total_quantity,
			                            used_quantity, remaining_quantity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, u.ID, u.CustomerPackageID, u.ItemType, u.ItemID, u.TotalQuantity, u.UsedQuantity, u.RemainingQuantity)
		if err != nil {
			return fmt.Errorf("insert package usage: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO package_transactions (id, tenant_id, customer_id, kind, reference_id, amount, payment_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, txn.ID, txn.TenantID, txn.CustomerID, txn.Kind, txn.ReferenceID, txn.Amount, txn.PaymentType)
	if err != nil {
		return fmt.Errorf("insert sale transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit assignment tx: %w", err)
	}

	return nil
}

func (r *PgRepository) GetUsageByID(ctx context.Context, id uuid.UUID) (*Usage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+usageColumns+`
		FROM package_usages
		WHERE id = $1
	`, id)
	return scanUsage(row)
}

func (r *PgRepository) FindUsageForItem(ctx context.Context, customerPackageID uuid.UUID, itemType string, itemID uuid.UUID) (*Usage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+usageColumns+`
		FROM package_usages
		WHERE customer_package_id = $1 AND item_type = $2 AND item_id = $3
	`, customerPackageID, itemType, itemID)
	return scanUsage(row)
}

// ConsumeUsage is a single conditional update: the WHERE clause is the
// compare of the compare-and-swap, so two concurrent callers can never drive
// remaining_quantity negative.
func (r *PgRepository) ConsumeUsage(ctx context.Context, usageID uuid.UUID) (*Usage, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE package_usages
		SET used_quantity = used_quantity + 1,
		    remaining_quantity = remaining_quantity - 1,
		    updated_at = now()
		WHERE id = $1
		  AND remaining_quantity > 0
		RETURNING `+usageColumns+`
	`, usageID)

	u, err := scanUsage(row)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUsageNotFound) {
		return nil, err
	}

	// No row updated: distinguish a missing row from an exhausted one.
	if _, getErr := r.GetUsageByID(ctx, usageID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInsufficientCredit
}

func (r *PgRepository) DeleteCustomerPackage(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM package_usages WHERE customer_package_id = $1`, id); err != nil {
		return fmt.Errorf("delete package usages: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM customer_packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerPackageNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	return nil
}
