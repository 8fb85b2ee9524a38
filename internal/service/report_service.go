package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
	"github.com/BladexZN/dashboard-c/pkg/export"
)

const (
	reportGroupLimit   = 5
	quickDeliveryHours = 24
	unassignedAdvisor  = "Sin Asignar"
	unnamedProduct     = "Sin servicio"
)

type reportEventReader interface {
	ListForRequests(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error)
}

// ReportServiceParams bundles the report service dependencies.
type ReportServiceParams struct {
	Requests boardRequestReader
	Events   reportEventReader
	Users    boardUserReader
	Logger   *zap.Logger
}

// ReportService derives lifecycle metrics from requests and their status events.
type ReportService struct {
	requests boardRequestReader
	events   reportEventReader
	users    boardUserReader
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(params ReportServiceParams) *ReportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		requests: params.Requests,
		events:   params.Events,
		users:    params.Users,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary computes counts, KPIs and per-request metrics for the window.
func (s *ReportService) Summary(ctx context.Context, window string) (*models.ReportSummary, error) {
	now := s.now()
	span, err := ParseWindow(window, now)
	if err != nil {
		return nil, err
	}

	requests, err := s.requests.List(ctx, models.RequestFilter{CreatedFrom: span.From, CreatedTo: span.To})
	if err != nil {
		return nil, internalError(err, "failed to load requests")
	}
	ids := make([]string, len(requests))
	for i, req := range requests {
		ids[i] = req.ID
	}
	events, err := s.events.ListForRequests(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load status events")
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load users")
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	byRequest := make(map[string][]models.StatusEvent, len(requests))
	for _, event := range events {
		byRequest[event.RequestID] = append(byRequest[event.RequestID], event)
	}

	views := Project(requests, LatestEvents(events), names)
	metrics := make([]models.RequestMetrics, 0, len(views))
	for _, view := range views {
		metrics = append(metrics, requestMetrics(view, byRequest[view.ID]))
	}

	if window == "" {
		window = WindowToday
	}
	return &models.ReportSummary{
		Window:      window,
		Counts:      CountByStatus(views),
		KPIs:        reportKPIs(metrics),
		ByAdvisor:   groupStats(metrics, func(m models.RequestMetrics) string { return m.Advisor }),
		ByProduct:   groupStats(metrics, func(m models.RequestMetrics) string { return productName(m.Product) }),
		Requests:    metrics,
		GeneratedAt: now.UTC(),
	}, nil
}

// Export renders the detailed report table. The filename carries the export date.
func (s *ReportService) Export(ctx context.Context, window, format string) ([]byte, string, export.Exporter, error) {
	exporter, err := exporterFor(format)
	if err != nil {
		return nil, "", nil, err
	}
	summary, err := s.Summary(ctx, window)
	if err != nil {
		return nil, "", nil, err
	}

	dataset := export.Dataset{
		Title:   "Reporte detallado",
		Headers: []string{"Folio", "Cliente", "Servicio", "Tipo", "Asesor", "Estado Actual", "Fecha Creación", "Tiempo a Entrega (h)", "Correcciones"},
	}
	for _, m := range summary.Requests {
		delivery := ""
		if m.HoursToDelivery != nil && *m.HoursToDelivery > 0 {
			delivery = strconv.FormatFloat(*m.HoursToDelivery, 'f', 1, 64)
		}
		dataset.Rows = append(dataset.Rows, []string{
			m.Folio, m.Client, m.Product, string(m.Type), m.Advisor, string(m.Status),
			m.CreatedAt.Format("2006-01-02 15:04"), delivery, strconv.Itoa(m.Corrections),
		})
	}

	content, err := exporter.Render(dataset)
	if err != nil {
		return nil, "", nil, internalError(err, "failed to render report")
	}
	filename := fmt.Sprintf("reporte_detallado_%s.%s", summary.GeneratedAt.Format("2006-01-02"), exporter.Extension())
	s.logger.Sugar().Infow("report exported", "window", summary.Window, "format", exporter.Extension(), "rows", len(dataset.Rows))
	return content, filename, exporter, nil
}

func exporterFor(format string) (export.Exporter, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv, pdf or xlsx")
	}
	return exporter, nil
}

func requestMetrics(view models.RequestView, events []models.StatusEvent) models.RequestMetrics {
	ordered := append([]models.StatusEvent(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool { return eventAfter(ordered[j], ordered[i]) })

	advisor := view.AdvisorName
	if advisor == "" {
		advisor = unassignedAdvisor
	}
	m := models.RequestMetrics{
		RequestID: view.ID,
		Folio:     view.DisplayFolio,
		Client:    view.Client,
		Product:   view.Product,
		Type:      view.Type,
		Advisor:   advisor,
		Status:    view.Status,
		CreatedAt: view.CreatedAt,
	}
	for _, event := range ordered {
		switch event.Status {
		case models.StatusInProduction:
			if m.HoursToProduction == nil {
				h := hoursBetween(view.CreatedAt, event.Timestamp)
				m.HoursToProduction = &h
			}
		case models.StatusDelivered:
			if m.HoursToDelivery == nil {
				h := hoursBetween(view.CreatedAt, event.Timestamp)
				m.HoursToDelivery = &h
			}
		case models.StatusCorrection:
			m.Corrections++
		}
	}
	return m
}

func reportKPIs(metrics []models.RequestMetrics) models.ReportKPIs {
	var kpis models.ReportKPIs
	if len(metrics) == 0 {
		return kpis
	}
	var (
		prodSum, deliverySum         float64
		prodCount, deliveryCount     int
		quick, corrected, correction int
	)
	for _, m := range metrics {
		if m.HoursToProduction != nil {
			prodSum += *m.HoursToProduction
			prodCount++
		}
		if m.HoursToDelivery != nil {
			deliverySum += *m.HoursToDelivery
			deliveryCount++
			if *m.HoursToDelivery <= quickDeliveryHours {
				quick++
			}
		}
		if m.Corrections > 0 {
			corrected++
		}
		correction += m.Corrections
	}
	kpis.AvgHoursToProduction = average(prodSum, prodCount)
	kpis.AvgHoursToDelivery = average(deliverySum, deliveryCount)
	kpis.DeliveredWithin24h = percent(quick, deliveryCount)
	kpis.WithCorrections = percent(corrected, len(metrics))
	kpis.AvgCorrections = average(float64(correction), len(metrics))
	return kpis
}

func groupStats(metrics []models.RequestMetrics, key func(models.RequestMetrics) string) []models.GroupStats {
	type acc struct {
		total, corrected, delivered int
		deliverySum                 float64
	}
	groups := make(map[string]*acc)
	for _, m := range metrics {
		name := key(m)
		g, ok := groups[name]
		if !ok {
			g = &acc{}
			groups[name] = g
		}
		g.total++
		if m.Corrections > 0 {
			g.corrected++
		}
		if m.HoursToDelivery != nil {
			g.delivered++
			g.deliverySum += *m.HoursToDelivery
		}
	}

	stats := make([]models.GroupStats, 0, len(groups))
	for name, g := range groups {
		stats = append(stats, models.GroupStats{
			Name:               name,
			Total:              g.total,
			WithCorrectionsPct: percent(g.corrected, g.total),
			AvgHoursToDelivery: average(g.deliverySum, g.delivered),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		return stats[i].Name < stats[j].Name
	})
	if len(stats) > reportGroupLimit {
		stats = stats[:reportGroupLimit]
	}
	return stats
}

func productName(product string) string {
	if product == "" {
		return unnamedProduct
	}
	return product
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
