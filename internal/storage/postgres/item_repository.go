package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bao99257/flashsale-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

const itemColumns = `id, program_id, product_id, original_price, flash_price, total_quantity, sold_quantity, max_per_user, is_active, created_at, updated_at`

func (r *ItemRepository) Create(ctx context.Context, item domain.Item) error {
	const stmt = `
INSERT INTO items (id, program_id, product_id, original_price, flash_price, total_quantity, sold_quantity, max_per_user, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, err := r.exec(ctx, stmt,
		item.ID,
		item.ProgramID,
		item.ProductID,
		item.OriginalPrice,
		item.FlashPrice,
		item.TotalQuantity,
		item.SoldQuantity,
		item.MaxPerUser,
		item.IsActive,
		item.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrItemAlreadyListed
		}
		if isForeignKeyViolation(err) {
			return domain.ErrProgramNotFound
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Update rewrites the administrative fields. The sold counter is left alone;
// it only moves through the allocation and release paths. The guard keeps a
// concurrent sale from pushing sold above the shrunk total.
func (r *ItemRepository) Update(ctx context.Context, item domain.Item) error {
	const stmt = `
UPDATE items
SET original_price = $2, flash_price = $3, total_quantity = $4, max_per_user = $5, is_active = $6, updated_at = $7
WHERE id = $1 AND sold_quantity <= $4`

	tag, err := r.exec(ctx, stmt,
		item.ID,
		item.OriginalPrice,
		item.FlashPrice,
		item.TotalQuantity,
		item.MaxPerUser,
		item.IsActive,
		item.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, item.ID); err != nil {
			return err
		}
		return domain.ErrStockBelowSold
	}
	return nil
}

func (r *ItemRepository) Get(ctx context.Context, id string) (domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.queryRow(ctx, query, id))
	if err != nil {
		if err == domain.ErrItemNotFound || err == domain.ErrInvalidID {
			return domain.Item{}, err
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *ItemRepository) ListByProgram(ctx context.Context, programID string) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE program_id = $1 ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate items: %w", rows.Err())
	}
	return items, nil
}

func (r *ItemRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	const stmt = `UPDATE items SET is_active = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, active, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set item active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) CountByProgram(ctx context.Context, programID string) (int, error) {
	const query = `SELECT COUNT(*) FROM items WHERE program_id = $1`

	var count int
	if err := r.queryRow(ctx, query, programID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var i domain.Item
	err := row.Scan(
		&i.ID, &i.ProgramID, &i.ProductID,
		&i.OriginalPrice, &i.FlashPrice,
		&i.TotalQuantity, &i.SoldQuantity, &i.MaxPerUser,
		&i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Item{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, err
	}
	return i, nil
}

func scanItemRows(rows pgx.Rows) (domain.Item, error) {
	var i domain.Item
	err := rows.Scan(
		&i.ID, &i.ProgramID, &i.ProductID,
		&i.OriginalPrice, &i.FlashPrice,
		&i.TotalQuantity, &i.SoldQuantity, &i.MaxPerUser,
		&i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func (r *ItemRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ItemRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ItemRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
