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

// ReservationRepository backs the allocation path. Every mutation happens
// inside WithTx while the item row is locked, so check-then-update on the
// sold counter and the quota record never interleaves for one item.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withRetry(ctx, r.pool, fn)
}

// GetItemForUpdate locks the item row for the duration of the transaction.
// This is the only serialization point; items lock independently.
func (r *ReservationRepository) GetItemForUpdate(ctx context.Context, itemID string) (domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	item, err := scanItem(r.queryRow(ctx, query, itemID))
	if err != nil {
		if err == domain.ErrItemNotFound || err == domain.ErrInvalidID {
			return domain.Item{}, err
		}
		return domain.Item{}, fmt.Errorf("get item for update: %w", err)
	}
	return item, nil
}

func (r *ReservationRepository) GetProgram(ctx context.Context, programID string) (domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`

	var p domain.Program
	err := r.queryRow(ctx, query, programID).
		Scan(&p.ID, &p.Name, &p.Description, &p.StartTime, &p.EndTime, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Program{}, domain.ErrProgramNotFound
		}
		return domain.Program{}, fmt.Errorf("get program: %w", err)
	}
	return p, nil
}

func (r *ReservationRepository) UserReservedUnits(ctx context.Context, itemID, userID string) (int, error) {
	const query = `SELECT COALESCE(SUM(units_reserved), 0) FROM user_quotas WHERE item_id = $1 AND user_id = $2`

	var units int
	if err := r.queryRow(ctx, query, itemID, userID).Scan(&units); err != nil {
		return 0, fmt.Errorf("user reserved units: %w", err)
	}
	return units, nil
}

// AddUserQuota adjusts the (item, user) quota record, creating it lazily on
// the first reservation.
func (r *ReservationRepository) AddUserQuota(ctx context.Context, itemID, userID string, delta int, now time.Time) error {
	const stmt = `
INSERT INTO user_quotas (item_id, user_id, units_reserved, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (item_id, user_id)
DO UPDATE SET units_reserved = user_quotas.units_reserved + $3, updated_at = $4`

	if _, err := r.exec(ctx, stmt, itemID, userID, delta, now); err != nil {
		return fmt.Errorf("add user quota: %w", err)
	}
	return nil
}

func (r *ReservationRepository) AddSold(ctx context.Context, itemID string, delta int, now time.Time) error {
	const stmt = `UPDATE items SET sold_quantity = sold_quantity + $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, itemID, delta, now)
	if err != nil {
		return fmt.Errorf("add sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ReservationRepository) CreateSession(ctx context.Context, session domain.PurchaseSession) error {
	const stmt = `
INSERT INTO purchase_sessions (id, item_id, user_id, quantity, unit_price, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		session.ID,
		session.ItemID,
		session.UserID,
		session.Quantity,
		session.UnitPrice,
		session.Status,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
