package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aap01152/hymnboard/internal/domain"
)

// hymnColumns must match the Scan order in scanHymn.
const hymnColumns = `id, number, title, author, created_at`

// HymnRepo implements domain.HymnRepository backed by PostgreSQL.
type HymnRepo struct {
	pool *pgxpool.Pool
}

// NewHymnRepo creates a HymnRepo from the shared connection pool.
func NewHymnRepo(pool *pgxpool.Pool) *HymnRepo {
	return &HymnRepo{pool: pool}
}

func scanHymn(row pgx.Row) (*domain.Hymn, error) {
	var h domain.Hymn
	err := row.Scan(&h.ID, &h.Number, &h.Title, &h.Author, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HymnRepo) Create(ctx context.Context, number int, title, author string) (*domain.Hymn, error) {
	hymn, err := scanHymn(r.pool.QueryRow(ctx, `
		INSERT INTO hymns (number, title, author)
		VALUES ($1, $2, $3)
		RETURNING `+hymnColumns,
		number, title, author))
	if err != nil {
		return nil, fmt.Errorf("failed to create hymn: %w", err)
	}
	return hymn, nil
}

func (r *HymnRepo) GetByID(ctx context.Context, hymnID uuid.UUID) (*domain.Hymn, error) {
	hymn, err := scanHymn(r.pool.QueryRow(ctx,
		`SELECT `+hymnColumns+` FROM hymns WHERE id = $1`, hymnID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHymnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hymn: %w", err)
	}
	return hymn, nil
}

func (r *HymnRepo) GetByIDs(ctx context.Context, hymnIDs []uuid.UUID) (map[uuid.UUID]domain.Hymn, error) {
	if len(hymnIDs) == 0 {
		return map[uuid.UUID]domain.Hymn{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+hymnColumns+` FROM hymns WHERE id = ANY($1)`, hymnIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get hymns: %w", err)
	}
	defer rows.Close()

	hymns := make(map[uuid.UUID]domain.Hymn, len(hymnIDs))
	for rows.Next() {
		hymn, err := scanHymn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hymn: %w", err)
		}
		hymns[hymn.ID] = *hymn
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hymns: %w", err)
	}
	return hymns, nil
}

func (r *HymnRepo) List(ctx context.Context) ([]domain.Hymn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+hymnColumns+` FROM hymns ORDER BY number, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hymns: %w", err)
	}
	defer rows.Close()

	var hymns []domain.Hymn
	for rows.Next() {
		hymn, err := scanHymn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hymn: %w", err)
		}
		hymns = append(hymns, *hymn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hymns: %w", err)
	}
	return hymns, nil
}

func (r *HymnRepo) Delete(ctx context.Context, hymnID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hymns WHERE id = $1`, hymnID)
	if err != nil {
		return fmt.Errorf("failed to delete hymn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHymnNotFound
	}
	return nil
}
