package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/export"
)

const (
	unknownFolio = "Desconocido"
	unknownUser  = "Usuario"
)

type auditEventReader interface {
	ListRecent(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditRow, error)
}

// AuditService renders the status event log for the audit screen.
type AuditService struct {
	events auditEventReader
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(events auditEventReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{events: events, logger: logger}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditEntry, error) {
	rows, err := s.events.ListRecent(ctx, limit, before)
	if err != nil {
		return nil, internalError(err, "failed to load audit log")
	}
	return auditEntries(rows, nil, nil), nil
}

// Export renders the audit log as a downloadable dataset.
func (s *AuditService) Export(ctx context.Context, format string, limit uint64) ([]byte, export.Exporter, error) {
	exporter, err := exporterFor(format)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.List(ctx, limit, nil)
	if err != nil {
		return nil, nil, err
	}
	dataset := export.Dataset{
		Title:   "Bitácora digital",
		Headers: []string{"Fecha", "Folio", "Usuario", "Estado", "Acción"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, []string{
			entry.Timestamp.Format(time.RFC3339), entry.Folio, entry.User, string(entry.Status), entry.Action,
		})
	}
	content, err := exporter.Render(dataset)
	if err != nil {
		return nil, nil, internalError(err, "failed to render audit export")
	}
	return content, exporter, nil
}

// auditEntries renders joined rows. folios and names, keyed by request and
// user id, fill in what the join left empty.
func auditEntries(rows []models.AuditRow, folios, names map[string]string) []models.AuditEntry {
	entries := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		folio := folios[row.RequestID]
		if row.Folio != nil {
			folio = models.FormatFolio(*row.Folio)
		}
		user := names[derefString(row.UserID)]
		if row.UserName != nil {
			user = *row.UserName
		}
		entries = append(entries, auditEntry(row.StatusEvent, folio, user))
	}
	return entries
}

func auditEntry(event models.StatusEvent, folio, user string) models.AuditEntry {
	if folio == "" {
		folio = unknownFolio
	}
	if user == "" {
		user = unknownUser
	}
	return models.AuditEntry{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Folio:     folio,
		RequestID: event.RequestID,
		User:      user,
		Status:    event.Status,
		Action:    auditAction(event),
	}
}

func auditAction(event models.StatusEvent) string {
	if event.Status == models.StatusPending && (event.Note == nil || *event.Note == "" || *event.Note == models.CreationNote) {
		return "Solicitud creada"
	}
	return "Cambio de estado: " + string(event.Status)
}
