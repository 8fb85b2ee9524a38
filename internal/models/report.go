package models

import "time"

// DashboardCounts are the headline board counters.
type DashboardCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Production int `json:"production"`
	Completed  int `json:"completed"`
}

// RequestMetrics are lifecycle timings derived from one request's events.
type RequestMetrics struct {
	RequestID         string        `json:"request_id"`
	Folio             string        `json:"folio"`
	Client            string        `json:"client"`
	Product           string        `json:"product"`
	Type              RequestType   `json:"type"`
	Advisor           string        `json:"advisor"`
	Status            RequestStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	HoursToProduction *float64      `json:"hours_to_production,omitempty"`
	HoursToDelivery   *float64      `json:"hours_to_delivery,omitempty"`
	Corrections       int           `json:"corrections"`
}

// ReportKPIs aggregate RequestMetrics.
type ReportKPIs struct {
	AvgHoursToProduction float64 `json:"avg_hours_to_production"`
	AvgHoursToDelivery   float64 `json:"avg_hours_to_delivery"`
	DeliveredWithin24h   float64 `json:"delivered_within_24h_pct"`
	WithCorrections      float64 `json:"with_corrections_pct"`
	AvgCorrections       float64 `json:"avg_corrections"`
}

// GroupStats aggregates requests sharing an advisor or a product.
type GroupStats struct {
	Name               string  `json:"name"`
	Total              int     `json:"total"`
	WithCorrectionsPct float64 `json:"with_corrections_pct"`
	AvgHoursToDelivery float64 `json:"avg_hours_to_delivery"`
}

// ReportSummary is the reports screen payload.
type ReportSummary struct {
	Window      string           `json:"window"`
	Counts      DashboardCounts  `json:"counts"`
	KPIs        ReportKPIs       `json:"kpis"`
	ByAdvisor   []GroupStats     `json:"by_advisor"`
	ByProduct   []GroupStats     `json:"by_product"`
	Requests    []RequestMetrics `json:"requests"`
	GeneratedAt time.Time        `json:"generated_at"`
}
