package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aap01152/hymnboard/internal/domain"
)

// --- Mock implementations ---

type mockPlanner struct {
	createTodaysServiceFn func(ctx context.Context) (*domain.WorshipService, error)
	setActiveServiceFn    func(ctx context.Context, serviceID uuid.UUID) error
	updateDetailsFn       func(ctx context.Context, serviceID uuid.UUID, title, notes string) (*domain.WorshipService, error)
	deleteServiceFn       func(ctx context.Context, serviceID uuid.UUID) error
	addHymnFn             func(ctx context.Context, serviceID, hymnID uuid.UUID) (*domain.ServiceHymn, error)
	removeHymnFn          func(ctx context.Context, serviceID, hymnID uuid.UUID) error
	reorderFn             func(ctx context.Context, serviceID uuid.UUID, from, to int) error
	clearFn               func(ctx context.Context, serviceID uuid.UUID) error
	loadActivePlanFn      func(ctx context.Context) (*domain.ServicePlan, error)
	loadPlanFn            func(ctx context.Context, serviceID uuid.UUID) (*domain.ServicePlan, error)
}

func (m *mockPlanner) CreateTodaysService(ctx context.Context) (*domain.WorshipService, error) {
	if m.createTodaysServiceFn != nil {
		return m.createTodaysServiceFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPlanner) SetActiveService(ctx context.Context, serviceID uuid.UUID) error {
	if m.setActiveServiceFn != nil {
		return m.setActiveServiceFn(ctx, serviceID)
	}
	return nil
}

func (m *mockPlanner) UpdateDetails(ctx context.Context, serviceID uuid.UUID, title, notes string) (*domain.WorshipService, error) {
	if m.updateDetailsFn != nil {
		return m.updateDetailsFn(ctx, serviceID, title, notes)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPlanner) DeleteService(ctx context.Context, serviceID uuid.UUID) error {
	if m.deleteServiceFn != nil {
		return m.deleteServiceFn(ctx, serviceID)
	}
	return nil
}

func (m *mockPlanner) AddHymn(ctx context.Context, serviceID, hymnID uuid.UUID) (*domain.ServiceHymn, error) {
	if m.addHymnFn != nil {
		return m.addHymnFn(ctx, serviceID, hymnID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPlanner) RemoveHymn(ctx context.Context, serviceID, hymnID uuid.UUID) error {
	if m.removeHymnFn != nil {
		return m.removeHymnFn(ctx, serviceID, hymnID)
	}
	return nil
}

func (m *mockPlanner) Reorder(ctx context.Context, serviceID uuid.UUID, from, to int) error {
	if m.reorderFn != nil {
		return m.reorderFn(ctx, serviceID, from, to)
	}
	return nil
}

func (m *mockPlanner) Clear(ctx context.Context, serviceID uuid.UUID) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, serviceID)
	}
	return nil
}

func (m *mockPlanner) LoadActivePlan(ctx context.Context) (*domain.ServicePlan, error) {
	if m.loadActivePlanFn != nil {
		return m.loadActivePlanFn(ctx)
	}
	return nil, domain.ErrNoActiveService
}

func (m *mockPlanner) LoadPlan(ctx context.Context, serviceID uuid.UUID) (*domain.ServicePlan, error) {
	if m.loadPlanFn != nil {
		return m.loadPlanFn(ctx, serviceID)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockDisplay struct {
	mu        sync.Mutex
	published []domain.DisplaySnapshot
	err       error
}

func (m *mockDisplay) Publish(_ context.Context, snapshot domain.DisplaySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, snapshot)
	return nil
}

func (m *mockDisplay) last(t *testing.T) domain.DisplaySnapshot {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.published)
	return m.published[len(m.published)-1]
}

func (m *mockDisplay) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// --- Helpers ---

func testPlan(hymnIDs ...uuid.UUID) *domain.ServicePlan {
	plan := &domain.ServicePlan{
		Service: domain.WorshipService{
			ID:     uuid.New(),
			Title:  "Sunday Morning",
			Date:   time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC),
			Active: true,
		},
	}
	for i, id := range hymnIDs {
		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Entry: domain.ServiceHymn{
				ID: uuid.New(), ServiceID: plan.Service.ID, HymnID: id, Position: i + 1,
			},
			Hymn: domain.Hymn{ID: id, Number: i + 1},
		})
	}
	return plan
}

// --- Tests ---

func TestRefresh_LoadsActivePlan(t *testing.T) {
	plan := testPlan(uuid.New(), uuid.New())
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	m := NewManager(planner, nil)

	require.NoError(t, m.Refresh(context.Background()))

	current := m.Current()
	require.NotNil(t, current)
	assert.Equal(t, plan.Service.ID, current.Service.ID)
	assert.Len(t, current.Entries, 2)
}

func TestRefresh_NoActiveService_EmptiesView(t *testing.T) {
	plan := testPlan()
	calls := 0
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			calls++
			if calls == 1 {
				return plan, nil
			}
			return nil, domain.ErrNoActiveService
		},
	}
	m := NewManager(planner, nil)

	require.NoError(t, m.Refresh(context.Background()))
	require.NotNil(t, m.Current())

	require.NoError(t, m.Refresh(context.Background()))
	assert.Nil(t, m.Current())
}

func TestRefresh_StoreError(t *testing.T) {
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	m := NewManager(planner, nil)

	err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, m.Current())
}

func TestAddHymn_NoCurrentService(t *testing.T) {
	m := NewManager(&mockPlanner{}, nil)

	err := m.AddHymn(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNoCurrentService)
}

func TestAddHymn_MutatesThenReloads(t *testing.T) {
	hymnID := uuid.New()
	var added []uuid.UUID
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			return testPlan(added...), nil
		},
		addHymnFn: func(_ context.Context, serviceID, id uuid.UUID) (*domain.ServiceHymn, error) {
			added = append(added, id)
			return &domain.ServiceHymn{ID: uuid.New(), ServiceID: serviceID, HymnID: id, Position: len(added)}, nil
		},
	}
	m := NewManager(planner, nil)
	require.NoError(t, m.Refresh(context.Background()))

	require.NoError(t, m.AddHymn(context.Background(), hymnID))

	current := m.Current()
	require.NotNil(t, current)
	require.Len(t, current.Entries, 1)
	assert.Equal(t, hymnID, current.Entries[0].Entry.HymnID)
}

func TestReorder_InvalidPositionPropagates(t *testing.T) {
	plan := testPlan(uuid.New())
	reloads := 0
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			reloads++
			return plan, nil
		},
		reorderFn: func(context.Context, uuid.UUID, int, int) error {
			return domain.ErrInvalidPosition
		},
	}
	m := NewManager(planner, nil)
	require.NoError(t, m.Refresh(context.Background()))
	reloadsBefore := reloads

	err := m.Reorder(context.Background(), 1, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
	// Failed mutation does not trigger a reload.
	assert.Equal(t, reloadsBefore, reloads)
}

func TestSetTitle_BufferedUntilBackground(t *testing.T) {
	plan := testPlan()
	var flushedTitle, flushedNotes string
	flushes := 0
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
		updateDetailsFn: func(_ context.Context, serviceID uuid.UUID, title, notes string) (*domain.WorshipService, error) {
			flushes++
			flushedTitle, flushedNotes = title, notes
			updated := plan.Service
			updated.Title, updated.Notes = title, notes
			return &updated, nil
		},
	}
	m := NewManager(planner, nil)
	require.NoError(t, m.Refresh(context.Background()))

	require.NoError(t, m.SetTitle("Easter Vigil"))
	require.NoError(t, m.SetNotes("candles"))
	assert.Zero(t, flushes, "edits must not hit the store before backgrounding")
	assert.Equal(t, "Easter Vigil", m.Current().Service.Title)

	require.NoError(t, m.Background(context.Background()))
	assert.Equal(t, 1, flushes)
	assert.Equal(t, "Easter Vigil", flushedTitle)
	assert.Equal(t, "candles", flushedNotes)

	// Nothing pending, second background is a no-op.
	require.NoError(t, m.Background(context.Background()))
	assert.Equal(t, 1, flushes)
}

func TestSetTitle_NoCurrentService(t *testing.T) {
	m := NewManager(&mockPlanner{}, nil)
	assert.ErrorIs(t, m.SetTitle("x"), domain.ErrNoCurrentService)
	assert.ErrorIs(t, m.SetNotes("y"), domain.ErrNoCurrentService)
}

func TestForeground_FlushesThenReloads(t *testing.T) {
	plan := testPlan()
	var order []string
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			order = append(order, "load")
			return plan, nil
		},
		updateDetailsFn: func(_ context.Context, _ uuid.UUID, title, notes string) (*domain.WorshipService, error) {
			order = append(order, "flush")
			updated := plan.Service
			updated.Title, updated.Notes = title, notes
			return &updated, nil
		},
	}
	m := NewManager(planner, nil)
	require.NoError(t, m.Refresh(context.Background()))
	require.NoError(t, m.SetTitle("Edited"))
	order = nil

	require.NoError(t, m.Foreground(context.Background()))
	assert.Equal(t, []string{"flush", "load"}, order)
}

func TestDisplayAttached_PublishesSnapshot(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	plan := testPlan(a, b)
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	display := &mockDisplay{}
	m := NewManager(planner, display)
	require.NoError(t, m.Refresh(context.Background()))
	assert.Zero(t, display.count(), "nothing published while detached")

	m.DisplayAttached(context.Background())

	snapshot := display.last(t)
	assert.Equal(t, plan.Service.ID, snapshot.ServiceID)
	assert.Equal(t, []uuid.UUID{a, b}, snapshot.HymnIDs)
	assert.False(t, snapshot.Blank())
}

func TestDisplayDetached_PublishesBlank(t *testing.T) {
	plan := testPlan(uuid.New())
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	display := &mockDisplay{}
	m := NewManager(planner, display)
	require.NoError(t, m.Refresh(context.Background()))
	m.DisplayAttached(context.Background())

	m.DisplayDetached(context.Background())

	assert.True(t, display.last(t).Blank())
}

func TestMutation_RepublishesWhileAttached(t *testing.T) {
	hymnID := uuid.New()
	var added []uuid.UUID
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) {
			return testPlan(added...), nil
		},
		addHymnFn: func(_ context.Context, serviceID, id uuid.UUID) (*domain.ServiceHymn, error) {
			added = append(added, id)
			return &domain.ServiceHymn{ID: uuid.New(), ServiceID: serviceID, HymnID: id, Position: len(added)}, nil
		},
	}
	display := &mockDisplay{}
	m := NewManager(planner, display)
	require.NoError(t, m.Refresh(context.Background()))
	m.DisplayAttached(context.Background())
	countAfterAttach := display.count()

	require.NoError(t, m.AddHymn(context.Background(), hymnID))

	assert.Greater(t, display.count(), countAfterAttach)
	assert.Equal(t, []uuid.UUID{hymnID}, display.last(t).HymnIDs)
}

func TestPublishFailure_DoesNotFailOperation(t *testing.T) {
	plan := testPlan(uuid.New())
	planner := &mockPlanner{
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	display := &mockDisplay{err: fmt.Errorf("display unreachable")}
	m := NewManager(planner, display)

	require.NoError(t, m.Refresh(context.Background()))
	m.DisplayAttached(context.Background())

	// The view is still intact despite the failed publish.
	require.NotNil(t, m.Current())
}

func TestStartTodaysService(t *testing.T) {
	plan := testPlan()
	planner := &mockPlanner{
		createTodaysServiceFn: func(context.Context) (*domain.WorshipService, error) {
			s := plan.Service
			return &s, nil
		},
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	m := NewManager(planner, nil)

	loaded, err := m.StartTodaysService(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, plan.Service.ID, loaded.Service.ID)
}

func TestActivateService(t *testing.T) {
	plan := testPlan(uuid.New())
	var activated uuid.UUID
	planner := &mockPlanner{
		setActiveServiceFn: func(_ context.Context, serviceID uuid.UUID) error {
			activated = serviceID
			return nil
		},
		loadActivePlanFn: func(context.Context) (*domain.ServicePlan, error) { return plan, nil },
	}
	m := NewManager(planner, nil)

	require.NoError(t, m.ActivateService(context.Background(), plan.Service.ID))
	assert.Equal(t, plan.Service.ID, activated)
	require.NotNil(t, m.Current())
}
