package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aap01152/hymnboard/internal/domain"
)

// serviceColumns must match the Scan order in scanService.
const serviceColumns = `id, title, service_date, active, notes, created_at, updated_at`

// entryColumns must match the Scan order in scanEntry.
const entryColumns = `id, service_id, hymn_id, position, added_at`

// ServiceRepo implements domain.ServiceRepository backed by PostgreSQL.
//
// Entry mutations take a row lock on the owning service so position shifts
// for the same service never interleave.
type ServiceRepo struct {
	pool *pgxpool.Pool
}

// NewServiceRepo creates a ServiceRepo from the shared connection pool.
func NewServiceRepo(pool *pgxpool.Pool) *ServiceRepo {
	return &ServiceRepo{pool: pool}
}

func scanService(row pgx.Row) (*domain.WorshipService, error) {
	var s domain.WorshipService
	err := row.Scan(&s.ID, &s.Title, &s.Date, &s.Active, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanEntry(row pgx.Row) (*domain.ServiceHymn, error) {
	var e domain.ServiceHymn
	err := row.Scan(&e.ID, &e.ServiceID, &e.HymnID, &e.Position, &e.AddedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// lockService takes a row lock on the service inside tx, serializing entry
// mutations per service. Returns domain.ErrServiceNotFound for unknown IDs.
func lockService(ctx context.Context, tx pgx.Tx, serviceID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM worship_services WHERE id = $1 FOR UPDATE`, serviceID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrServiceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock service: %w", err)
	}
	return nil
}

func touchService(ctx context.Context, tx pgx.Tx, serviceID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE worship_services SET updated_at = NOW() WHERE id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("failed to touch service: %w", err)
	}
	return nil
}

// CreateActive inserts a new active service and deactivates any prior active
// one in the same transaction, so no reader observes two active services.
func (r *ServiceRepo) CreateActive(ctx context.Context, title string, date time.Time) (*domain.WorshipService, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE worship_services SET active = FALSE, updated_at = NOW() WHERE active`); err != nil {
		return nil, fmt.Errorf("failed to deactivate services: %w", err)
	}

	service, err := scanService(tx.QueryRow(ctx, `
		INSERT INTO worship_services (title, service_date, active)
		VALUES ($1, $2, TRUE)
		RETURNING `+serviceColumns,
		title, date))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return service, nil
}

func (r *ServiceRepo) GetByID(ctx context.Context, serviceID uuid.UUID) (*domain.WorshipService, error) {
	service, err := scanService(r.pool.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM worship_services WHERE id = $1`, serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

func (r *ServiceRepo) GetActive(ctx context.Context) (*domain.WorshipService, error) {
	service, err := scanService(r.pool.QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM worship_services WHERE active LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveService
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active service: %w", err)
	}
	return service, nil
}

func (r *ServiceRepo) List(ctx context.Context, limit int) ([]domain.WorshipService, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceColumns+` FROM worship_services ORDER BY service_date DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []domain.WorshipService
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, *service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read services: %w", err)
	}
	return services, nil
}

func (r *ServiceRepo) UpdateDetails(ctx context.Context, serviceID uuid.UUID, title, notes string) (*domain.WorshipService, error) {
	service, err := scanService(r.pool.QueryRow(ctx, `
		UPDATE worship_services
		SET title = $1, notes = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+serviceColumns,
		title, notes, serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return service, nil
}

// SetActive activates the given service and deactivates all others in one
// transaction.
func (r *ServiceRepo) SetActive(ctx context.Context, serviceID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE worship_services SET active = TRUE, updated_at = NOW() WHERE id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("failed to activate service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE worship_services SET active = FALSE, updated_at = NOW() WHERE active AND id <> $1`, serviceID); err != nil {
		return fmt.Errorf("failed to deactivate services: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes the service; its entries go with it via ON DELETE CASCADE.
func (r *ServiceRepo) Delete(ctx context.Context, serviceID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM worship_services WHERE id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepo) ListEntries(ctx context.Context, serviceID uuid.UUID) ([]domain.ServiceHymn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM service_hymns WHERE service_id = $1 ORDER BY position`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ServiceHymn
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

// AppendEntry inserts the hymn at position max+1.
func (r *ServiceRepo) AppendEntry(ctx context.Context, serviceID, hymnID uuid.UUID) (*domain.ServiceHymn, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockService(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	entry, err := scanEntry(tx.QueryRow(ctx, `
		INSERT INTO service_hymns (service_id, hymn_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		FROM service_hymns
		WHERE service_id = $1
		RETURNING `+entryColumns,
		serviceID, hymnID))
	if err != nil {
		return nil, fmt.Errorf("failed to append entry: %w", err)
	}

	if err := touchService(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

// RemoveEntry deletes the matching entry and decrements the positions of all
// subsequent entries, keeping the sequence contiguous.
func (r *ServiceRepo) RemoveEntry(ctx context.Context, serviceID, hymnID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockService(ctx, tx, serviceID); err != nil {
		return err
	}

	var removed int
	err = tx.QueryRow(ctx, `
		DELETE FROM service_hymns
		WHERE service_id = $1 AND hymn_id = $2
		RETURNING position`,
		serviceID, hymnID).Scan(&removed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrHymnNotInService
	}
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE service_hymns
		SET position = position - 1
		WHERE service_id = $1 AND position > $2`,
		serviceID, removed); err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}

	if err := touchService(ctx, tx, serviceID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MoveEntry moves the entry at position from to position to, shifting the
// entries in between by one. Returns domain.ErrInvalidPosition when either
// index is outside the current sequence; nothing is mutated in that case.
func (r *ServiceRepo) MoveEntry(ctx context.Context, serviceID uuid.UUID, from, to int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockService(ctx, tx, serviceID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_hymns WHERE service_id = $1`, serviceID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if from < 1 || from > count || to < 1 || to > count {
		return domain.ErrInvalidPosition
	}
	if from == to {
		return tx.Commit(ctx)
	}

	var movedID uuid.UUID
	if err := tx.QueryRow(ctx,
		`SELECT id FROM service_hymns WHERE service_id = $1 AND position = $2`,
		serviceID, from).Scan(&movedID); err != nil {
		return fmt.Errorf("failed to find moved entry: %w", err)
	}

	if from < to {
		_, err = tx.Exec(ctx, `
			UPDATE service_hymns
			SET position = position - 1
			WHERE service_id = $1 AND position > $2 AND position <= $3`,
			serviceID, from, to)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE service_hymns
			SET position = position + 1
			WHERE service_id = $1 AND position >= $3 AND position < $2`,
			serviceID, from, to)
	}
	if err != nil {
		return fmt.Errorf("failed to shift positions: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE service_hymns SET position = $1 WHERE id = $2`, to, movedID); err != nil {
		return fmt.Errorf("failed to place moved entry: %w", err)
	}

	if err := touchService(ctx, tx, serviceID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClearEntries removes all entries of the service, leaving the service record
// intact.
func (r *ServiceRepo) ClearEntries(ctx context.Context, serviceID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockService(ctx, tx, serviceID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM service_hymns WHERE service_id = $1`, serviceID); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	if err := touchService(ctx, tx, serviceID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PruneOrphans deletes entries whose hymn no longer exists in the library and
// renumbers the remainder. Returns the number of entries pruned.
func (r *ServiceRepo) PruneOrphans(ctx context.Context, serviceID uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockService(ctx, tx, serviceID); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM service_hymns sh
		WHERE sh.service_id = $1
		  AND NOT EXISTS (SELECT 1 FROM hymns h WHERE h.id = sh.hymn_id)`,
		serviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orphaned entries: %w", err)
	}

	pruned := int(tag.RowsAffected())
	if pruned > 0 {
		if _, err := tx.Exec(ctx, `
			WITH ranked AS (
				SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS new_position
				FROM service_hymns
				WHERE service_id = $1
			)
			UPDATE service_hymns sh
			SET position = ranked.new_position
			FROM ranked
			WHERE sh.id = ranked.id AND sh.position <> ranked.new_position`,
			serviceID); err != nil {
			return 0, fmt.Errorf("failed to renumber entries: %w", err)
		}

		if err := touchService(ctx, tx, serviceID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return pruned, nil
}
