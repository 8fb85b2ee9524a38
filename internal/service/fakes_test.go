package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/BladexZN/dashboard-c/internal/models"
)

// memoryRequests is an in-memory request table.
type memoryRequests struct {
	mu        sync.Mutex
	rows      map[string]*models.Request
	nextFolio int64
	events    *memoryEvents

	createErr    error
	completedErr error
	listErr      error
	deleteErr    error
}

func newMemoryRequests(events *memoryEvents) *memoryRequests {
	return &memoryRequests{rows: map[string]*models.Request{}, events: events}
}

func (m *memoryRequests) put(req models.Request) *models.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Folio == 0 {
		m.nextFolio++
		req.Folio = m.nextFolio
	} else if req.Folio > m.nextFolio {
		m.nextFolio = req.Folio
	}
	stored := req
	m.rows[req.ID] = &stored
	return &stored
}

func (m *memoryRequests) get(id string) models.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memoryRequests) GetByID(ctx context.Context, id string) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (m *memoryRequests) GetByFolio(ctx context.Context, folio int64) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.rows {
		if req.Folio == folio {
			copied := *req
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryRequests) CreateWithInitialEvent(ctx context.Context, req *models.Request, event *models.StatusEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	stored := m.put(*req)
	*req = *stored
	event.RequestID = req.ID
	return m.events.Append(ctx, event)
}

func (m *memoryRequests) SetCompletedAt(ctx context.Context, id string, completedAt time.Time) error {
	if m.completedErr != nil {
		return m.completedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	ts := completedAt
	req.CompletedAt = &ts
	return nil
}

func (m *memoryRequests) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Request
	for _, req := range m.rows {
		if req.IsDeleted != filter.Deleted {
			continue
		}
		if filter.CreatedFrom != nil && req.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && !req.CreatedAt.Before(*filter.CreatedTo) {
			continue
		}
		if filter.AdvisorID != "" && (req.AdvisorID == nil || *req.AdvisorID != filter.AdvisorID) {
			continue
		}
		result = append(result, *req)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Folio > result[j].Folio })
	return result, nil
}

func (m *memoryRequests) ListTrash(ctx context.Context, limit int) ([]models.TrashItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.TrashItem
	for _, req := range m.rows {
		if req.IsDeleted {
			items = append(items, models.TrashItem{Request: *req})
		}
	}
	return items, nil
}

func (m *memoryRequests) UpdateFields(ctx context.Context, id string, upd models.RequestFieldUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok || req.IsDeleted {
		return sql.ErrNoRows
	}
	if upd.Client != nil {
		req.Client = *upd.Client
	}
	if upd.Product != nil {
		req.Product = *upd.Product
	}
	if upd.Type != nil {
		req.Type = *upd.Type
	}
	if upd.Priority != nil {
		req.Priority = *upd.Priority
	}
	if upd.Description != nil {
		req.Description = *upd.Description
	}
	if upd.Brief != nil {
		req.Brief = *upd.Brief
	}
	if upd.Links != nil {
		req.Links = pq.StringArray(upd.Links)
	}
	if upd.AdvisorID != nil {
		advisor := *upd.AdvisorID
		req.AdvisorID = &advisor
	}
	if upd.BoardNumber != nil {
		board := *upd.BoardNumber
		req.BoardNumber = &board
	}
	return nil
}

func (m *memoryRequests) SetAttachments(ctx context.Context, id string, attachments models.Attachments, finalDesign *models.FinalDesign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok || req.IsDeleted {
		return sql.ErrNoRows
	}
	req.Attachments = attachments
	req.FinalDesign = finalDesign
	return nil
}

func (m *memoryRequests) SoftDelete(ctx context.Context, id string, deletedBy *string, deletedAt time.Time) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok || req.IsDeleted {
		return sql.ErrNoRows
	}
	ts := deletedAt
	req.IsDeleted = true
	req.DeletedAt = &ts
	req.DeletedBy = deletedBy
	req.Attachments = models.Attachments{}
	req.Links = pq.StringArray{}
	req.FinalDesign = nil
	return nil
}

func (m *memoryRequests) Restore(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok || !req.IsDeleted {
		return sql.ErrNoRows
	}
	req.IsDeleted = false
	req.DeletedAt = nil
	req.DeletedBy = nil
	return nil
}

func (m *memoryRequests) ListArchivable(ctx context.Context, cutoff time.Time) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Request
	for _, req := range m.rows {
		if !req.IsDeleted && req.CompletedAt != nil && req.CompletedAt.Before(cutoff) {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CompletedAt.Before(*result[j].CompletedAt) })
	return result, nil
}

func (m *memoryRequests) ArchiveMany(ctx context.Context, ids []string, archivedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		req, ok := m.rows[id]
		if !ok || req.IsDeleted {
			continue
		}
		ts := archivedAt
		req.IsDeleted = true
		req.DeletedAt = &ts
		req.DeletedBy = nil
		n++
	}
	return n, nil
}

// memoryEvents is an in-memory append-only event log.
type memoryEvents struct {
	mu        sync.Mutex
	events    []models.StatusEvent
	seq       int64
	appendErr error
	listErr   error
}

func (m *memoryEvents) Append(ctx context.Context, event *models.StatusEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m.seq++
	event.Seq = m.seq
	m.events = append(m.events, *event)
	return nil
}

func (m *memoryEvents) ListFor(ctx context.Context, requestID string) ([]models.StatusEvent, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.StatusEvent
	for _, e := range m.events {
		if e.RequestID == requestID {
			result = append(result, e)
		}
	}
	sortEvents(result)
	return result, nil
}

func (m *memoryEvents) LatestFor(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error) {
	history, err := m.ListForRequests(ctx, requestIDs)
	if err != nil {
		return nil, err
	}
	var result []models.StatusEvent
	for _, e := range LatestEvents(history) {
		result = append(result, e)
	}
	return result, nil
}

func (m *memoryEvents) ListForRequests(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	wanted := make(map[string]bool, len(requestIDs))
	for _, id := range requestIDs {
		wanted[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.StatusEvent
	for _, e := range m.events {
		if wanted[e.RequestID] {
			result = append(result, e)
		}
	}
	sortEvents(result)
	return result, nil
}

func (m *memoryEvents) ListRecent(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events := append([]models.StatusEvent(nil), m.events...)
	sortEvents(events)
	var rows []models.AuditRow
	for i := len(events) - 1; i >= 0; i-- {
		if before != nil && !events[i].Timestamp.Before(*before) {
			continue
		}
		rows = append(rows, models.AuditRow{StatusEvent: events[i]})
		if limit > 0 && uint64(len(rows)) == limit {
			break
		}
	}
	return rows, nil
}

func (m *memoryEvents) CountFor(ctx context.Context, requestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.RequestID == requestID {
			count++
		}
	}
	return count, nil
}

func (m *memoryEvents) snapshot() []models.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StatusEvent(nil), m.events...)
}

func sortEvents(events []models.StatusEvent) {
	sort.SliceStable(events, func(i, j int) bool { return eventAfter(events[j], events[i]) })
}

type dispatchRecorder struct {
	mu          sync.Mutex
	created     []models.Request
	transitions []TransitionContext
}

func (d *dispatchRecorder) RequestCreated(ctx context.Context, req models.Request, actorID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, req)
}

func (d *dispatchRecorder) StatusChanged(ctx context.Context, tc TransitionContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transitions = append(d.transitions, tc)
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
