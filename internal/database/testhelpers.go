package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/aap01152/hymnboard/internal/domain"
)

// CreateTestHymn is a helper that creates a hymn with default values for testing.
func CreateTestHymn(t *testing.T, pool *pgxpool.Pool, number int, title string) *domain.Hymn {
	t.Helper()

	repo := NewHymnRepo(pool)
	hymn, err := repo.Create(context.Background(), number, title, "Trad.")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, hymn.ID)

	return hymn
}

// CreateTestService is a helper that creates an active service dated today.
func CreateTestService(t *testing.T, pool *pgxpool.Pool, title string) *domain.WorshipService {
	t.Helper()

	repo := NewServiceRepo(pool)
	service, err := repo.CreateActive(context.Background(), title, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, service.Active)

	return service
}

// AppendTestEntries appends the given hymns to the service in order.
func AppendTestEntries(t *testing.T, pool *pgxpool.Pool, serviceID uuid.UUID, hymns ...*domain.Hymn) []domain.ServiceHymn {
	t.Helper()

	repo := NewServiceRepo(pool)
	entries := make([]domain.ServiceHymn, 0, len(hymns))
	for _, h := range hymns {
		entry, err := repo.AppendEntry(context.Background(), serviceID, h.ID)
		require.NoError(t, err)
		entries = append(entries, *entry)
	}
	return entries
}
