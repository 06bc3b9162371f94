package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aap01152/hymnboard/internal/domain"
	"github.com/aap01152/hymnboard/internal/metrics"
)

// Manager holds the in-memory current-service view and keeps it consistent
// with the store across lifecycle transitions and display attach events.
//
// All mutations route through the planner and are followed by a reload, so the
// view never drifts from what is persisted. Title and notes edits are the one
// exception: they are buffered in memory and flushed on Background, matching
// the save-on-background discipline of the client.
type Manager struct {
	planner domain.ServicePlanner
	display domain.DisplayPublisher
	group   singleflight.Group

	mu           sync.Mutex
	current      *domain.ServicePlan
	attached     bool
	pendingTitle *string
	pendingNotes *string
}

// NewManager creates the session manager. display may be nil if no external
// display transport is configured.
func NewManager(planner domain.ServicePlanner, display domain.DisplayPublisher) *Manager {
	return &Manager{
		planner: planner,
		display: display,
	}
}

// Current returns the current service plan, or nil when no service is active.
func (m *Manager) Current() *domain.ServicePlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	out := *m.current
	out.Entries = append([]domain.PlanEntry(nil), m.current.Entries...)
	return &out
}

// Foreground flushes any buffered edits and reloads the current service from
// the store. Called when the app returns to the foreground.
func (m *Manager) Foreground(ctx context.Context) error {
	if err := m.flush(ctx); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Background flushes buffered title and notes edits to the store. Called when
// the app is about to be backgrounded; everything else is already persisted.
func (m *Manager) Background(ctx context.Context) error {
	return m.flush(ctx)
}

// Refresh reloads the active service plan from the store. Concurrent calls
// collapse into a single load. No active service is not an error; it simply
// empties the view.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	plan, err := m.planner.LoadActivePlan(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoActiveService) {
		return err
	}
	metrics.SessionRefreshesTotal.Inc()

	m.mu.Lock()
	m.current = plan
	// Buffered edits survive a reload until they are flushed.
	if plan != nil {
		if m.pendingTitle != nil {
			m.current.Service.Title = *m.pendingTitle
		}
		if m.pendingNotes != nil {
			m.current.Service.Notes = *m.pendingNotes
		}
	}
	m.mu.Unlock()

	m.publish(ctx)
	return nil
}

func (m *Manager) flush(ctx context.Context) error {
	m.mu.Lock()
	if m.current == nil || (m.pendingTitle == nil && m.pendingNotes == nil) {
		m.mu.Unlock()
		return nil
	}
	serviceID := m.current.Service.ID
	title := m.current.Service.Title
	notes := m.current.Service.Notes
	m.mu.Unlock()

	updated, err := m.planner.UpdateDetails(ctx, serviceID, title, notes)
	if err != nil {
		return err
	}
	metrics.SessionFlushesTotal.Inc()

	m.mu.Lock()
	m.pendingTitle, m.pendingNotes = nil, nil
	if m.current != nil && m.current.Service.ID == updated.ID {
		m.current.Service = *updated
	}
	m.mu.Unlock()
	return nil
}

// SetTitle buffers a title edit for the current service.
func (m *Manager) SetTitle(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.ErrNoCurrentService
	}
	m.current.Service.Title = title
	m.pendingTitle = &title
	return nil
}

// SetNotes buffers a notes edit for the current service.
func (m *Manager) SetNotes(notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.ErrNoCurrentService
	}
	m.current.Service.Notes = notes
	m.pendingNotes = &notes
	return nil
}

// StartTodaysService ensures an active service for today exists and loads it.
func (m *Manager) StartTodaysService(ctx context.Context) (*domain.ServicePlan, error) {
	if _, err := m.planner.CreateTodaysService(ctx); err != nil {
		return nil, err
	}
	if err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m.Current(), nil
}

// ActivateService makes the given service active and loads it.
func (m *Manager) ActivateService(ctx context.Context, serviceID uuid.UUID) error {
	if err := m.planner.SetActiveService(ctx, serviceID); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// AddHymn appends a hymn to the current service.
func (m *Manager) AddHymn(ctx context.Context, hymnID uuid.UUID) error {
	serviceID, err := m.currentServiceID()
	if err != nil {
		return err
	}
	if _, err := m.planner.AddHymn(ctx, serviceID, hymnID); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// RemoveHymn removes a hymn from the current service.
func (m *Manager) RemoveHymn(ctx context.Context, hymnID uuid.UUID) error {
	serviceID, err := m.currentServiceID()
	if err != nil {
		return err
	}
	if err := m.planner.RemoveHymn(ctx, serviceID, hymnID); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Reorder moves the entry at position from to position to in the current
// service.
func (m *Manager) Reorder(ctx context.Context, from, to int) error {
	serviceID, err := m.currentServiceID()
	if err != nil {
		return err
	}
	if err := m.planner.Reorder(ctx, serviceID, from, to); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Clear removes every hymn from the current service.
func (m *Manager) Clear(ctx context.Context) error {
	serviceID, err := m.currentServiceID()
	if err != nil {
		return err
	}
	if err := m.planner.Clear(ctx, serviceID); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// DisplayAttached marks the external display attached and hands it the
// current snapshot.
func (m *Manager) DisplayAttached(ctx context.Context) {
	m.mu.Lock()
	m.attached = true
	m.mu.Unlock()
	metrics.DisplayAttached.Set(1)
	slog.Info("external display attached")
	m.publish(ctx)
}

// DisplayDetached marks the external display detached and blanks it.
func (m *Manager) DisplayDetached(ctx context.Context) {
	m.mu.Lock()
	m.attached = false
	m.mu.Unlock()
	metrics.DisplayAttached.Set(0)
	slog.Info("external display detached")

	if m.display == nil {
		return
	}
	if err := m.display.Publish(ctx, domain.DisplaySnapshot{}); err != nil {
		metrics.DisplayPublishesTotal.WithLabelValues("error").Inc()
		slog.Error("failed to blank display", "error", err)
		return
	}
	metrics.DisplayPublishesTotal.WithLabelValues("success").Inc()
}

func (m *Manager) currentServiceID() (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return uuid.Nil, domain.ErrNoCurrentService
	}
	return m.current.Service.ID, nil
}

// publish hands the current snapshot to the display. Best effort: a failed
// publish is logged, never propagated, so a flaky display cannot fail an edit.
func (m *Manager) publish(ctx context.Context) {
	m.mu.Lock()
	attached := m.attached
	var snapshot domain.DisplaySnapshot
	if m.current != nil {
		snapshot = domain.DisplaySnapshot{
			ServiceID: m.current.Service.ID,
			Title:     m.current.Service.Title,
			HymnIDs:   m.current.HymnIDs(),
		}
	}
	m.mu.Unlock()

	if !attached || m.display == nil {
		return
	}
	if err := m.display.Publish(ctx, snapshot); err != nil {
		metrics.DisplayPublishesTotal.WithLabelValues("error").Inc()
		slog.Error("failed to publish display snapshot", "error", err)
		return
	}
	metrics.DisplayPublishesTotal.WithLabelValues("success").Inc()
}
