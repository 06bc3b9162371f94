package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/aap01152/hymnboard/internal/domain"
	"github.com/aap01152/hymnboard/internal/metrics"
)

// recentServicesLimit caps the service history listing.
const recentServicesLimit = 50

// Planner implements domain.ServicePlanner. It owns the ordering invariants:
// 1-based contiguous positions per service, no duplicate hymns per service,
// at most one active service.
type Planner struct {
	services domain.ServiceRepository
	hymns    domain.HymnRepository
	clock    clockwork.Clock
}

// New creates the planner.
func New(services domain.ServiceRepository, hymns domain.HymnRepository, clock clockwork.Clock) *Planner {
	return &Planner{
		services: services,
		hymns:    hymns,
		clock:    clock,
	}
}

// CreateTodaysService returns the active service if it is dated today, and
// otherwise creates a fresh active service for today. Any previously active
// service is deactivated in the same transaction as the insert.
func (p *Planner) CreateTodaysService(ctx context.Context) (*domain.WorshipService, error) {
	today := civilDate(p.clock.Now())

	active, err := p.services.GetActive(ctx)
	if err == nil && sameDay(active.Date, today) {
		return active, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNoActiveService) {
		metrics.RecordOp("create_todays_service", err)
		return nil, err
	}

	service, err := p.services.CreateActive(ctx, today.Format("January 2, 2006"), today)
	metrics.RecordOp("create_todays_service", err)
	if err != nil {
		return nil, err
	}
	slog.Info("created today's service", "service_id", service.ID.String(), "date", today.Format("2006-01-02"))
	return service, nil
}

// SetActiveService activates the given service and deactivates all others.
func (p *Planner) SetActiveService(ctx context.Context, serviceID uuid.UUID) error {
	err := p.services.SetActive(ctx, serviceID)
	metrics.RecordOp("set_active_service", err)
	return err
}

// UpdateDetails rewrites the service title and notes.
func (p *Planner) UpdateDetails(ctx context.Context, serviceID uuid.UUID, title, notes string) (*domain.WorshipService, error) {
	service, err := p.services.UpdateDetails(ctx, serviceID, title, notes)
	metrics.RecordOp("update_details", err)
	return service, err
}

// DeleteService removes the service and all its entries.
func (p *Planner) DeleteService(ctx context.Context, serviceID uuid.UUID) error {
	err := p.services.Delete(ctx, serviceID)
	metrics.RecordOp("delete_service", err)
	return err
}

// ListServices returns the most recent services, newest date first.
func (p *Planner) ListServices(ctx context.Context) ([]domain.WorshipService, error) {
	return p.services.List(ctx, recentServicesLimit)
}

// AddHymn appends the hymn at the end of the service. Adding a hymn that is
// already in the service is a no-op and returns the existing entry.
func (p *Planner) AddHymn(ctx context.Context, serviceID, hymnID uuid.UUID) (*domain.ServiceHymn, error) {
	if _, err := p.hymns.GetByID(ctx, hymnID); err != nil {
		metrics.RecordOp("add_hymn", err)
		return nil, err
	}

	entries, err := p.services.ListEntries(ctx, serviceID)
	if err != nil {
		metrics.RecordOp("add_hymn", err)
		return nil, err
	}
	for i := range entries {
		if entries[i].HymnID == hymnID {
			metrics.RecordOp("add_hymn", nil)
			return &entries[i], nil
		}
	}

	entry, err := p.services.AppendEntry(ctx, serviceID, hymnID)
	metrics.RecordOp("add_hymn", err)
	if err != nil {
		return nil, fmt.Errorf("failed to add hymn to service: %w", err)
	}
	return entry, nil
}

// RemoveHymn removes the hymn's entry and compacts the positions after it.
func (p *Planner) RemoveHymn(ctx context.Context, serviceID, hymnID uuid.UUID) error {
	err := p.services.RemoveEntry(ctx, serviceID, hymnID)
	metrics.RecordOp("remove_hymn", err)
	return err
}

// Reorder moves the entry at position from to position to. Out-of-bounds
// indices are rejected before anything is mutated.
func (p *Planner) Reorder(ctx context.Context, serviceID uuid.UUID, from, to int) error {
	if from < 1 || to < 1 {
		metrics.RecordOp("reorder", domain.ErrInvalidPosition)
		return domain.ErrInvalidPosition
	}
	err := p.services.MoveEntry(ctx, serviceID, from, to)
	metrics.RecordOp("reorder", err)
	return err
}

// Clear removes every entry of the service; the service record stays.
func (p *Planner) Clear(ctx context.Context, serviceID uuid.UUID) error {
	err := p.services.ClearEntries(ctx, serviceID)
	metrics.RecordOp("clear", err)
	return err
}

// LoadActivePlan loads the active service with its ordered hymns.
func (p *Planner) LoadActivePlan(ctx context.Context) (*domain.ServicePlan, error) {
	active, err := p.services.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return p.LoadPlan(ctx, active.ID)
}

// LoadPlan loads a service with its ordered hymns resolved from the library.
// Entries whose hymn has been deleted are pruned first; an entry that still
// fails to resolve is excluded from the plan rather than failing the load.
func (p *Planner) LoadPlan(ctx context.Context, serviceID uuid.UUID) (*domain.ServicePlan, error) {
	pruned, err := p.services.PruneOrphans(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		metrics.OrphanedEntriesPruned.Add(float64(pruned))
		slog.Info("pruned orphaned service entries", "service_id", serviceID.String(), "count", pruned)
	}

	service, err := p.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	entries, err := p.services.ListEntries(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.HymnID
	}
	hymns, err := p.hymns.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	plan := &domain.ServicePlan{Service: *service}
	for _, e := range entries {
		hymn, ok := hymns[e.HymnID]
		if !ok {
			// Deleted between prune and resolve; skip rather than fail.
			slog.Warn("excluding dangling entry from plan", "service_id", serviceID.String(), "hymn_id", e.HymnID.String())
			continue
		}
		plan.Entries = append(plan.Entries, domain.PlanEntry{Entry: e, Hymn: hymn})
	}
	return plan, nil
}

func civilDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
