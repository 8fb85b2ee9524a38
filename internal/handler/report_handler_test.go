package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/export"
)

type reportServiceMock struct {
	window string
	format string
}

func (m *reportServiceMock) Summary(ctx context.Context, window string) (*models.ReportSummary, error) {
	m.window = window
	return &models.ReportSummary{Window: "month", Counts: models.DashboardCounts{Total: 4, Completed: 1}}, nil
}

func (m *reportServiceMock) Export(ctx context.Context, window, format string) ([]byte, string, export.Exporter, error) {
	m.window, m.format = window, format
	return []byte("Folio,Cliente\n#REQ-1,Acme\n"), "reporte_detallado_2025-06-01.csv", export.NewCSVExporter(), nil
}

type auditServiceMock struct {
	before *time.Time
	limit  uint64
}

func (m *auditServiceMock) List(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditEntry, error) {
	m.limit, m.before = limit, before
	return []models.AuditEntry{{Folio: "#REQ-1", User: "Ana", Action: "Solicitud creada"}}, nil
}

func (m *auditServiceMock) Export(ctx context.Context, format string, limit uint64) ([]byte, export.Exporter, error) {
	return []byte("x"), export.NewXLSXExporter(), nil
}

func TestReportHandlerSummary(t *testing.T) {
	svc := &reportServiceMock{}
	handler := NewReportHandler(svc, true)

	c, w := newGinContext(http.MethodGet, "/reports/summary?window=month", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "month", svc.window)
	var summary models.ReportSummary
	decodeEnvelope(t, w, &summary)
	assert.Equal(t, 4, summary.Counts.Total)
}

func TestReportHandlerExport(t *testing.T) {
	svc := &reportServiceMock{}
	handler := NewReportHandler(svc, true)

	c, w := newGinContext(http.MethodGet, "/reports/export?window=all&format=csv", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "all", svc.window)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reporte_detallado_2025-06-01.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "#REQ-1,Acme")
}

func TestReportHandlerDisabled(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{}, false)

	c, w := newGinContext(http.MethodGet, "/reports/summary", nil)
	handler.Summary(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodGet, "/reports/export", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditHandlerList(t *testing.T) {
	svc := &auditServiceMock{}
	handler := NewAuditHandler(svc)

	c, w := newGinContext(http.MethodGet, "/audit?limit=50&before=2025-06-01T10:00:00Z", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(50), svc.limit)
	require.NotNil(t, svc.before)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), svc.before.UTC())

	c, w = newGinContext(http.MethodGet, "/audit?before=yesterday", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerExport(t *testing.T) {
	handler := NewAuditHandler(&auditServiceMock{})
	handler.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }

	c, w := newGinContext(http.MethodGet, "/audit/export?format=xlsx", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="bitacora_2025-06-01.xlsx"`, w.Header().Get("Content-Disposition"))
}
