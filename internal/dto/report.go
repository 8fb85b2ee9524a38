package dto

// ReportQuery captures GET /reports/summary and /reports/export params.
type ReportQuery struct {
	Window string `form:"window"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}
