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

type ProgramRepository struct {
	pool *pgxpool.Pool
}

func NewProgramRepository(pool *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{pool: pool}
}

const programColumns = `id, name, description, start_time, end_time, is_active, created_at, updated_at`

func (r *ProgramRepository) Create(ctx context.Context, program domain.Program) error {
	const stmt = `
INSERT INTO programs (id, name, description, start_time, end_time, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	_, err := r.exec(ctx, stmt,
		program.ID,
		program.Name,
		program.Description,
		program.StartTime,
		program.EndTime,
		program.IsActive,
		program.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

func (r *ProgramRepository) Update(ctx context.Context, program domain.Program) error {
	const stmt = `
UPDATE programs
SET name = $2, description = $3, start_time = $4, end_time = $5, is_active = $6, updated_at = $7
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		program.ID,
		program.Name,
		program.Description,
		program.StartTime,
		program.EndTime,
		program.IsActive,
		program.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgramNotFound
	}
	return nil
}

func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM programs WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgramNotFound
	}
	return nil
}

func (r *ProgramRepository) Get(ctx context.Context, id string) (domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`
	program, err := r.scanOne(r.queryRow(ctx, query, id))
	if err != nil {
		if err == domain.ErrProgramNotFound || err == domain.ErrInvalidID {
			return domain.Program{}, err
		}
		return domain.Program{}, fmt.Errorf("get program: %w", err)
	}
	return program, nil
}

func (r *ProgramRepository) List(ctx context.Context) ([]domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs ORDER BY start_time DESC`
	return r.queryMany(ctx, query)
}

// ListStartingBetween returns programs whose window opens inside [from, to),
// ordered by start time. Backs the today-timeline view.
func (r *ProgramRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Program, error) {
	query := `
SELECT ` + programColumns + `
FROM programs
WHERE start_time >= $1 AND start_time < $2
ORDER BY start_time ASC`
	return r.queryMany(ctx, query, from, to)
}

// ListActiveAt returns every activated program whose window contains the
// instant, ordered by start time so callers get a deterministic tie-break.
func (r *ProgramRepository) ListActiveAt(ctx context.Context, now time.Time) ([]domain.Program, error) {
	query := `
SELECT ` + programColumns + `
FROM programs
WHERE is_active AND start_time <= $1 AND end_time >= $1
ORDER BY start_time ASC`
	return r.queryMany(ctx, query, now)
}

func (r *ProgramRepository) NextUpcoming(ctx context.Context, now time.Time) (*domain.Program, error) {
	query := `
SELECT ` + programColumns + `
FROM programs
WHERE is_active AND start_time > $1
ORDER BY start_time ASC
LIMIT 1`

	program, err := r.scanOne(r.queryRow(ctx, query, now))
	if err != nil {
		if err == domain.ErrProgramNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("next upcoming: %w", err)
	}
	return &program, nil
}

func (r *ProgramRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	const stmt = `UPDATE programs SET is_active = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, active, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set program active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProgramNotFound
	}
	return nil
}

// HasSoldItems reports whether any item of the program has a nonzero sold
// counter; such programs may only be soft-deactivated.
func (r *ProgramRepository) HasSoldItems(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM items WHERE program_id = $1 AND sold_quantity > 0)`

	var sold bool
	if err := r.queryRow(ctx, query, id).Scan(&sold); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check sold items: %w", err)
	}
	return sold, nil
}

func (r *ProgramRepository) queryMany(ctx context.Context, query string, args ...any) ([]domain.Program, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		var p domain.Program
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.StartTime, &p.EndTime, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate programs: %w", rows.Err())
	}
	return programs, nil
}

func (r *ProgramRepository) scanOne(row pgx.Row) (domain.Program, error) {
	var p domain.Program
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.StartTime, &p.EndTime, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Program{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Program{}, domain.ErrProgramNotFound
		}
		return domain.Program{}, err
	}
	return p, nil
}

func (r *ProgramRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ProgramRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ProgramRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
