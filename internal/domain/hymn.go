package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Hymn is a record in the hymn library. Service plans reference hymns by
// identifier only, never by embedded object.
type Hymn struct {
	ID        uuid.UUID
	Number    int
	Title     string
	Author    string
	CreatedAt time.Time
}

// HymnRepository abstracts hymn library persistence.
type HymnRepository interface {
	Create(ctx context.Context, number int, title, author string) (*Hymn, error)
	GetByID(ctx context.Context, hymnID uuid.UUID) (*Hymn, error)
	GetByIDs(ctx context.Context, hymnIDs []uuid.UUID) (map[uuid.UUID]Hymn, error)
	List(ctx context.Context) ([]Hymn, error)
	Delete(ctx context.Context, hymnID uuid.UUID) error
}
