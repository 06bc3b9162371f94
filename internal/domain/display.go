package domain

import (
	"context"

	"github.com/google/uuid"
)

// DisplaySnapshot is what the session manager hands to the external display:
// the ordered hymn identifiers of the current service. A zero-value snapshot
// blanks the display.
type DisplaySnapshot struct {
	ServiceID uuid.UUID   `json:"service_id"`
	Title     string      `json:"title"`
	HymnIDs   []uuid.UUID `json:"hymn_ids"`
}

// Blank reports whether the snapshot clears the display.
func (s DisplaySnapshot) Blank() bool {
	return s.ServiceID == uuid.Nil
}

// DisplayPublisher hands snapshots to the external rendering collaborator.
type DisplayPublisher interface {
	Publish(ctx context.Context, snapshot DisplaySnapshot) error
}
