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

// SessionRepository backs confirm/release and the expiry sweep. State
// transitions lock the session row first, so whichever caller wins the lock
// applies the transition and everyone else observes the terminal state.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, item_id, user_id, quantity, unit_price, status, expires_at, created_at`

func (r *SessionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withRetry(ctx, r.pool, fn)
}

func (r *SessionRepository) GetSessionForUpdate(ctx context.Context, id string) (domain.PurchaseSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM purchase_sessions WHERE id = $1 FOR UPDATE`

	var s domain.PurchaseSession
	var status string
	err := r.queryRow(ctx, query, id).
		Scan(&s.ID, &s.ItemID, &s.UserID, &s.Quantity, &s.UnitPrice, &status, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.PurchaseSession{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.PurchaseSession{}, domain.ErrSessionNotFound
		}
		return domain.PurchaseSession{}, fmt.Errorf("get session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	return s, nil
}

func (r *SessionRepository) SetSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	const stmt = `UPDATE purchase_sessions SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// LockItem takes the item row lock before a compensating decrement so release
// serializes with concurrent reservations on the same item.
func (r *SessionRepository) LockItem(ctx context.Context, itemID string) error {
	const query = `SELECT id FROM items WHERE id = $1 FOR UPDATE`

	var id string
	if err := r.queryRow(ctx, query, itemID).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("lock item: %w", err)
	}
	return nil
}

func (r *SessionRepository) AddSold(ctx context.Context, itemID string, delta int, now time.Time) error {
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

func (r *SessionRepository) AddUserQuota(ctx context.Context, itemID, userID string, delta int, now time.Time) error {
	const stmt = `
INSERT INTO user_quotas (item_id, user_id, units_reserved, updated_at)
VALUES ($1, $2, GREATEST($3, 0), $4)
ON CONFLICT (item_id, user_id)
DO UPDATE SET units_reserved = GREATEST(user_quotas.units_reserved + $3, 0), updated_at = $4`

	if _, err := r.exec(ctx, stmt, itemID, userID, delta, now); err != nil {
		return fmt.Errorf("add user quota: %w", err)
	}
	return nil
}

// ListExpired returns ids of reserved sessions whose hold window has elapsed,
// oldest first, for the sweeper to release.
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM purchase_sessions
WHERE status = 'reserved' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", rows.Err())
	}
	return ids, nil
}

func (r *SessionRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *SessionRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *SessionRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
