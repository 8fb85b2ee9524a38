package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

const (
	defaultBoardAuditLimit = 200
	defaultSessionIdleTTL  = 30 * time.Minute
)

type boardRequestReader interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
}

type boardEventReader interface {
	LatestFor(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error)
	ListRecent(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditRow, error)
}

type boardUserReader interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// RefreshCoordinatorParams groups the read-path collaborators.
type RefreshCoordinatorParams struct {
	Requests   boardRequestReader
	Events     boardEventReader
	Users      boardUserReader
	AuditLimit uint64
	// IdleTTL bounds how long RefreshCoordinators keeps an unused session.
	IdleTTL time.Duration
	Metrics *MetricsService
	Logger  *zap.Logger
}

// RefreshCoordinator owns one session's working set. Each Refresh takes a
// sequence number when it starts and only the most recently started one may
// publish; earlier ones are discarded when they finish.
type RefreshCoordinator struct {
	requests   boardRequestReader
	events     boardEventReader
	users      boardUserReader
	auditLimit uint64
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	requested atomic.Uint64
	lastUsed  atomic.Int64

	mu          sync.RWMutex
	published   models.BoardSnapshot
	speculative *models.BoardSnapshot
	lastQuery   models.BoardQuery
}

// NewRefreshCoordinator constructs a coordinator with an empty published set.
func NewRefreshCoordinator(params RefreshCoordinatorParams) *RefreshCoordinator {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := params.AuditLimit
	if limit == 0 {
		limit = defaultBoardAuditLimit
	}
	return &RefreshCoordinator{
		requests:   params.Requests,
		events:     params.Events,
		users:      params.Users,
		auditLimit: limit,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Refresh fetches requests, events and users, projects statuses and publishes
// the result. stale is true when a later refresh started before this one
// finished; the returned snapshot is then the currently visible one. On a
// fetch failure the previous working set stays published.
func (c *RefreshCoordinator) Refresh(ctx context.Context, query models.BoardQuery) (snapshot models.BoardSnapshot, stale bool, err error) {
	seq := c.requested.Add(1)
	start := time.Now()
	c.mu.Lock()
	c.lastQuery = query
	c.mu.Unlock()

	next, err := c.load(ctx, query)
	if err != nil {
		c.metrics.RecordRefresh("failed", time.Since(start))
		c.logger.Warn("board refresh failed", zap.Uint64("generation", seq), zap.Error(err))
		if appErrors.Is(err, appErrors.ErrValidation) {
			return c.Snapshot(), false, err
		}
		return c.Snapshot(), false, appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "failed to load dashboard data")
	}
	next.Generation = seq

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.requested.Load() {
		c.metrics.RecordRefresh("stale", time.Since(start))
		c.logger.Debug("discarding stale board refresh", zap.Uint64("generation", seq), zap.Uint64("latest", c.requested.Load()))
		return c.visibleLocked(), true, nil
	}
	c.published = next
	c.speculative = nil
	c.metrics.RecordRefresh("published", time.Since(start))
	return next, false, nil
}

// Reload repeats the most recent refresh query. The transition path uses it to
// replace a confirmed speculation with fetched state.
func (c *RefreshCoordinator) Reload(ctx context.Context) (models.BoardSnapshot, bool, error) {
	c.mu.RLock()
	query := c.lastQuery
	c.mu.RUnlock()
	return c.Refresh(ctx, query)
}

// Snapshot returns the visible working set: the speculative copy when one is
// pending, the published one otherwise.
func (c *RefreshCoordinator) Snapshot() models.BoardSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visibleLocked()
}

// Speculate shows status on a copy of the visible set before the change is
// confirmed. ref is the request id or its folio. The returned revert restores
// the pre-speculative set unless a refresh has published since.
func (c *RefreshCoordinator) Speculate(ref string, status models.RequestStatus) (revert func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.speculative
	next := cloneSnapshot(c.visibleLocked())
	next.Speculative = true
	folio, byFolio := models.ParseFolio(ref)
	for i := range next.Requests {
		view := &next.Requests[i]
		if view.ID == ref || (byFolio && view.Folio == folio) {
			view.Status = status
		}
	}
	c.speculative = &next
	mine := c.speculative

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.speculative == mine {
			c.speculative = previous
		}
	}
}

func (c *RefreshCoordinator) visibleLocked() models.BoardSnapshot {
	if c.speculative != nil {
		return *c.speculative
	}
	return c.published
}

func (c *RefreshCoordinator) load(ctx context.Context, query models.BoardQuery) (models.BoardSnapshot, error) {
	now := c.now()
	window, err := ParseWindow(query.Window, now)
	if err != nil {
		return models.BoardSnapshot{}, err
	}

	users, err := c.users.ListAll(ctx)
	if err != nil {
		return models.BoardSnapshot{}, err
	}
	requests, err := c.requests.List(ctx, models.RequestFilter{CreatedFrom: window.From, CreatedTo: window.To})
	if err != nil {
		return models.BoardSnapshot{}, err
	}
	ids := make([]string, len(requests))
	folios := make(map[string]string, len(requests))
	for i, req := range requests {
		ids[i] = req.ID
		folios[req.ID] = req.DisplayFolio()
	}
	latest, err := c.events.LatestFor(ctx, ids)
	if err != nil {
		return models.BoardSnapshot{}, err
	}
	recent, err := c.events.ListRecent(ctx, c.auditLimit, nil)
	if err != nil {
		return models.BoardSnapshot{}, err
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	views := filterViews(Project(requests, LatestEvents(latest), names), query)

	return models.BoardSnapshot{
		Requests:    views,
		Audit:       auditEntries(recent, folios, names),
		RefreshedAt: now.UTC(),
	}, nil
}

func filterViews(views []models.RequestView, query models.BoardQuery) []models.RequestView {
	if query.Search == "" && query.Status == "" && query.Advisor == "" {
		return views
	}
	filtered := make([]models.RequestView, 0, len(views))
	for _, view := range views {
		if query.Status != "" && view.Status != query.Status {
			continue
		}
		if query.Advisor != "" && (view.AdvisorID == nil || *view.AdvisorID != query.Advisor) {
			continue
		}
		if query.Search != "" && !matchesSearch(query.Search, view) {
			continue
		}
		filtered = append(filtered, view)
	}
	return filtered
}

func matchesSearch(term string, view models.RequestView) bool {
	for _, field := range []string{view.DisplayFolio, view.Client, view.Product} {
		if fuzzy.MatchNormalizedFold(term, field) {
			return true
		}
	}
	return false
}

func cloneSnapshot(src models.BoardSnapshot) models.BoardSnapshot {
	dst := src
	dst.Requests = append([]models.RequestView(nil), src.Requests...)
	dst.Audit = append([]models.AuditEntry(nil), src.Audit...)
	return dst
}

// RefreshCoordinators hands out one coordinator per user session. Sessions
// unused for longer than IdleTTL are dropped on the next lookup.
type RefreshCoordinators struct {
	params    RefreshCoordinatorParams
	idleTTL   time.Duration
	now       func() time.Time
	mu        sync.Mutex
	byUser    map[string]*RefreshCoordinator
	lastSweep time.Time
}

// NewRefreshCoordinators constructs the registry.
func NewRefreshCoordinators(params RefreshCoordinatorParams) *RefreshCoordinators {
	ttl := params.IdleTTL
	if ttl <= 0 {
		ttl = defaultSessionIdleTTL
	}
	return &RefreshCoordinators{
		params:  params,
		idleTTL: ttl,
		now:     time.Now,
		byUser:  make(map[string]*RefreshCoordinator),
	}
}

// For returns the coordinator of userID, creating it on first use.
func (r *RefreshCoordinators) For(userID string) *RefreshCoordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictIdleLocked(now)
	c, ok := r.byUser[userID]
	if !ok {
		c = NewRefreshCoordinator(r.params)
		r.byUser[userID] = c
	}
	c.lastUsed.Store(now.UnixNano())
	return c
}

// Forget drops the working set of userID.
func (r *RefreshCoordinators) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}

// Len reports how many sessions are held.
func (r *RefreshCoordinators) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// evictIdleLocked runs at most once per minute.
func (r *RefreshCoordinators) evictIdleLocked(now time.Time) {
	if now.Sub(r.lastSweep) < time.Minute {
		return
	}
	r.lastSweep = now
	cutoff := now.Add(-r.idleTTL).UnixNano()
	for userID, c := range r.byUser {
		if c.lastUsed.Load() < cutoff {
			delete(r.byUser, userID)
		}
	}
}
