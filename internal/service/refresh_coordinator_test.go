package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type staticUsers struct {
	users []models.User
	err   error
}

func (s staticUsers) ListAll(ctx context.Context) ([]models.User, error) {
	return s.users, s.err
}

type gatedCall struct {
	entered chan struct{}
	release chan struct{}
	result  []models.Request
}

// gatedRequests blocks the n-th List call until its gate is released.
type gatedRequests struct {
	mu    sync.Mutex
	calls []*gatedCall
	next  int
}

func (g *gatedRequests) add(result []models.Request) *gatedCall {
	call := &gatedCall{entered: make(chan struct{}), release: make(chan struct{}), result: result}
	g.calls = append(g.calls, call)
	return call
}

func (g *gatedRequests) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	g.mu.Lock()
	call := g.calls[g.next]
	g.next++
	g.mu.Unlock()

	close(call.entered)
	<-call.release
	return call.result, nil
}

func newBoardFixture() (*memoryRequests, *memoryEvents, *RefreshCoordinator) {
	events := &memoryEvents{}
	requests := newMemoryRequests(events)
	c := NewRefreshCoordinator(RefreshCoordinatorParams{
		Requests: requests,
		Events:   events,
		Users:    staticUsers{users: []models.User{{ID: "u-ana", FullName: "Ana"}}},
		Metrics:  NewMetricsService(),
	})
	c.now = fixedClock(time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC))
	return requests, events, c
}

func TestRefreshCoordinatorPublishesProjection(t *testing.T) {
	requests, events, c := newBoardFixture()
	ctx := context.Background()
	advisor := "u-ana"
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r1 := requests.put(models.Request{Client: "ACME", Product: "Flyer", AdvisorID: &advisor, CreatedAt: created})
	r2 := requests.put(models.Request{Client: "Globex", Product: "Banner", CreatedAt: created})
	require.NoError(t, events.Append(ctx, &models.StatusEvent{RequestID: r1.ID, Status: models.StatusPending, Timestamp: created, UserID: &advisor}))
	require.NoError(t, events.Append(ctx, &models.StatusEvent{RequestID: r1.ID, Status: models.StatusInProduction, Timestamp: created.Add(time.Hour)}))

	snap, stale, err := c.Refresh(ctx, models.BoardQuery{Window: WindowToday})
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, uint64(1), snap.Generation)
	require.Len(t, snap.Requests, 2)

	byID := map[string]models.RequestView{}
	for _, v := range snap.Requests {
		byID[v.ID] = v
	}
	assert.Equal(t, models.StatusInProduction, byID[r1.ID].Status)
	assert.Equal(t, "Ana", byID[r1.ID].AdvisorName)
	assert.Equal(t, models.StatusPending, byID[r2.ID].Status)

	require.Len(t, snap.Audit, 2)
	assert.Equal(t, "Cambio de estado: En Producción", snap.Audit[0].Action)
	assert.Equal(t, "Usuario", snap.Audit[0].User)
	assert.Equal(t, "Solicitud creada", snap.Audit[1].Action)
	assert.Equal(t, "Ana", snap.Audit[1].User)
	assert.Equal(t, r1.DisplayFolio(), snap.Audit[1].Folio)
}

func TestRefreshCoordinatorWindowAndFilters(t *testing.T) {
	requests, events, c := newBoardFixture()
	ctx := context.Background()
	today := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	requests.put(models.Request{Client: "ACME", Product: "Flyer", CreatedAt: today})
	old := requests.put(models.Request{Client: "Initech", Product: "Logo", CreatedAt: today.AddDate(0, -2, 0)})
	require.NoError(t, events.Append(ctx, &models.StatusEvent{RequestID: old.ID, Status: models.StatusDelivered, Timestamp: today}))

	snap, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowToday})
	require.NoError(t, err)
	assert.Len(t, snap.Requests, 1)

	snap, _, err = c.Refresh(ctx, models.BoardQuery{Window: WindowAll, Search: "inte"})
	require.NoError(t, err)
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "Initech", snap.Requests[0].Client)

	snap, _, err = c.Refresh(ctx, models.BoardQuery{Window: WindowAll, Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "ACME", snap.Requests[0].Client)

	_, _, err = c.Refresh(ctx, models.BoardQuery{Window: "yesterday"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRefreshCoordinatorLaterIssuedRefreshWins(t *testing.T) {
	gated := &gatedRequests{}
	first := gated.add([]models.Request{{ID: "r1", Folio: 1, Client: "stale data"}})
	second := gated.add([]models.Request{{ID: "r1", Folio: 1, Client: "fresh data"}})
	c := NewRefreshCoordinator(RefreshCoordinatorParams{
		Requests: gated,
		Events:   &memoryEvents{},
		Users:    staticUsers{},
		Metrics:  NewMetricsService(),
	})

	type outcome struct {
		snap  models.BoardSnapshot
		stale bool
		err   error
	}
	results := make(chan outcome, 2)
	run := func() {
		snap, stale, err := c.Refresh(context.Background(), models.BoardQuery{Window: WindowAll})
		results <- outcome{snap, stale, err}
	}

	go run()
	<-first.entered
	go run()
	<-second.entered

	close(second.release)
	fresh := <-results
	require.NoError(t, fresh.err)
	assert.False(t, fresh.stale)
	assert.Equal(t, "fresh data", fresh.snap.Requests[0].Client)

	close(first.release)
	late := <-results
	require.NoError(t, late.err)
	assert.True(t, late.stale)
	assert.Equal(t, "fresh data", late.snap.Requests[0].Client)

	final := c.Snapshot()
	assert.Equal(t, uint64(2), final.Generation)
	assert.Equal(t, "fresh data", final.Requests[0].Client)
}

func TestRefreshCoordinatorFetchFailureKeepsPreviousSet(t *testing.T) {
	requests, _, c := newBoardFixture()
	ctx := context.Background()
	requests.put(models.Request{Client: "ACME", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)})

	published, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.NoError(t, err)

	requests.listErr = errors.New("connection reset")
	snap, stale, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrFetchFailed))
	assert.False(t, stale)
	assert.Equal(t, published, snap)
	assert.Equal(t, published, c.Snapshot())
}

func TestRefreshCoordinatorSpeculateAndRevert(t *testing.T) {
	requests, _, c := newBoardFixture()
	ctx := context.Background()
	req := requests.put(models.Request{Client: "ACME", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)})
	published, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.NoError(t, err)

	revert := c.Speculate(req.ID, models.StatusDelivered)
	visible := c.Snapshot()
	assert.True(t, visible.Speculative)
	assert.Equal(t, models.StatusDelivered, visible.Requests[0].Status)
	assert.Equal(t, models.StatusPending, published.Requests[0].Status, "published set must not be mutated")

	revert()
	assert.Equal(t, published, c.Snapshot())
}

func TestRefreshCoordinatorRefreshReplacesSpeculation(t *testing.T) {
	requests, _, c := newBoardFixture()
	ctx := context.Background()
	req := requests.put(models.Request{Client: "ACME", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)})
	_, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.NoError(t, err)

	revert := c.Speculate(req.ID, models.StatusDelivered)
	refreshed, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.NoError(t, err)
	assert.False(t, c.Snapshot().Speculative)

	revert()
	assert.Equal(t, refreshed, c.Snapshot())
}

func TestRefreshCoordinatorsPerUser(t *testing.T) {
	registry := NewRefreshCoordinators(RefreshCoordinatorParams{})
	a := registry.For("u1")
	assert.Same(t, a, registry.For("u1"))
	assert.NotSame(t, a, registry.For("u2"))
	registry.Forget("u1")
	assert.NotSame(t, a, registry.For("u1"))
}

func TestParseWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)

	r, err := ParseWindow("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *r.From)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), *r.To)

	r, err = ParseWindow("month", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *r.From)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), *r.To)

	r, err = ParseWindow("Año", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *r.To)

	r, err = ParseWindow("2025-02-03", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), *r.From)

	r, err = ParseWindow("all", now)
	require.NoError(t, err)
	assert.Nil(t, r.From)
	assert.Nil(t, r.To)
}

func TestRefreshCoordinatorSpeculateByFolioAndReload(t *testing.T) {
	requests, events, c := newBoardFixture()
	ctx := context.Background()
	req := requests.put(models.Request{Client: "ACME", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)})
	_, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll, Search: "acme"})
	require.NoError(t, err)

	c.Speculate(req.DisplayFolio(), models.StatusInProduction)
	assert.Equal(t, models.StatusInProduction, c.Snapshot().Requests[0].Status)

	require.NoError(t, events.Append(ctx, &models.StatusEvent{
		RequestID: req.ID, Status: models.StatusInProduction, Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}))
	reloaded, stale, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.False(t, reloaded.Speculative)
	require.Len(t, reloaded.Requests, 1)
	assert.Equal(t, models.StatusInProduction, reloaded.Requests[0].Status)
	assert.Equal(t, uint64(2), reloaded.Generation)
}

func TestRefreshCoordinatorProjectsNewestEventOfLongHistory(t *testing.T) {
	events := &memoryEvents{}
	requests := newMemoryRequests(events)
	c := NewRefreshCoordinator(RefreshCoordinatorParams{
		Requests:   requests,
		Events:     events,
		Users:      staticUsers{},
		AuditLimit: 2,
	})
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r1 := requests.put(models.Request{Client: "ACME", CreatedAt: created})
	r2 := requests.put(models.Request{Client: "Globex", CreatedAt: created})
	require.NoError(t, events.Append(ctx, &models.StatusEvent{RequestID: r2.ID, Status: models.StatusCorrection, Timestamp: created}))
	for i, status := range []models.RequestStatus{models.StatusPending, models.StatusInProduction, models.StatusDelivered} {
		require.NoError(t, events.Append(ctx, &models.StatusEvent{
			RequestID: r1.ID, Status: status, Timestamp: created.Add(time.Duration(i+1) * time.Hour),
		}))
	}

	snap, _, err := c.Refresh(ctx, models.BoardQuery{Window: WindowAll})
	require.NoError(t, err)
	byID := map[string]models.RequestView{}
	for _, v := range snap.Requests {
		byID[v.ID] = v
	}
	assert.Equal(t, models.StatusDelivered, byID[r1.ID].Status)
	assert.Equal(t, models.StatusCorrection, byID[r2.ID].Status)

	require.Len(t, snap.Audit, 2)
	assert.Equal(t, models.StatusDelivered, snap.Audit[0].Status)
	assert.Equal(t, models.StatusInProduction, snap.Audit[1].Status)
	assert.Equal(t, r1.DisplayFolio(), snap.Audit[0].Folio)
}

func TestRefreshCoordinatorsEvictIdleSessions(t *testing.T) {
	registry := NewRefreshCoordinators(RefreshCoordinatorParams{IdleTTL: 10 * time.Minute})
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	idle := registry.For("u1")
	registry.For("u2")
	assert.Equal(t, 2, registry.Len())

	now = now.Add(5 * time.Minute)
	registry.For("u2")
	assert.Equal(t, 2, registry.Len())

	now = now.Add(6 * time.Minute)
	registry.For("u2")
	assert.Equal(t, 1, registry.Len())
	assert.NotSame(t, idle, registry.For("u1"))
}
