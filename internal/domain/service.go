package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorshipService is a planned service for a given date. At most one service is
// active at any time; the planner enforces this, the store does not.
type WorshipService struct {
	ID        uuid.UUID
	Title     string
	Date      time.Time // civil date, time-of-day is meaningless
	Active    bool
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceHymn binds a hymn into a service at an explicit position. Positions
// are 1-based and contiguous within a service. HymnID is a by-identifier
// reference to the hymn library: deleting a hymn leaves the entry dangling
// until the next plan load prunes it.
type ServiceHymn struct {
	ID        uuid.UUID
	ServiceID uuid.UUID
	HymnID    uuid.UUID
	Position  int
	AddedAt   time.Time
}

// PlanEntry is a service entry with its hymn resolved from the library.
type PlanEntry struct {
	Entry ServiceHymn
	Hymn  Hymn
}

// ServicePlan is a service together with its ordered, resolved hymns.
type ServicePlan struct {
	Service WorshipService
	Entries []PlanEntry
}

// HymnIDs returns the ordered hymn identifiers of the plan.
func (p *ServicePlan) HymnIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.Entry.HymnID
	}
	return ids
}

// ServiceRepository abstracts worship service and entry persistence.
//
// Multi-row mutations (activation flips, position shifts) run in a single
// transaction so no reader ever observes a gap or a duplicate position.
type ServiceRepository interface {
	CreateActive(ctx context.Context, title string, date time.Time) (*WorshipService, error)
	GetByID(ctx context.Context, serviceID uuid.UUID) (*WorshipService, error)
	GetActive(ctx context.Context) (*WorshipService, error)
	List(ctx context.Context, limit int) ([]WorshipService, error)
	UpdateDetails(ctx context.Context, serviceID uuid.UUID, title, notes string) (*WorshipService, error)
	SetActive(ctx context.Context, serviceID uuid.UUID) error
	Delete(ctx context.Context, serviceID uuid.UUID) error

	ListEntries(ctx context.Context, serviceID uuid.UUID) ([]ServiceHymn, error)
	AppendEntry(ctx context.Context, serviceID, hymnID uuid.UUID) (*ServiceHymn, error)
	RemoveEntry(ctx context.Context, serviceID, hymnID uuid.UUID) error
	MoveEntry(ctx context.Context, serviceID uuid.UUID, from, to int) error
	ClearEntries(ctx context.Context, serviceID uuid.UUID) error
	PruneOrphans(ctx context.Context, serviceID uuid.UUID) (int, error)
}

// ServicePlanner is the operations layer contract - the session manager routes
// all mutations through here.
type ServicePlanner interface {
	CreateTodaysService(ctx context.Context) (*WorshipService, error)
	SetActiveService(ctx context.Context, serviceID uuid.UUID) error
	UpdateDetails(ctx context.Context, serviceID uuid.UUID, title, notes string) (*WorshipService, error)
	DeleteService(ctx context.Context, serviceID uuid.UUID) error

	AddHymn(ctx context.Context, serviceID, hymnID uuid.UUID) (*ServiceHymn, error)
	RemoveHymn(ctx context.Context, serviceID, hymnID uuid.UUID) error
	Reorder(ctx context.Context, serviceID uuid.UUID, from, to int) error
	Clear(ctx context.Context, serviceID uuid.UUID) error

	LoadActivePlan(ctx context.Context) (*ServicePlan, error)
	LoadPlan(ctx context.Context, serviceID uuid.UUID) (*ServicePlan, error)
}
