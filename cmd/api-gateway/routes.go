package main

import (
	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/handler"
	internalmiddleware "github.com/BladexZN/dashboard-c/internal/middleware"
	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/internal/service"
)

type routeHandlers struct {
	auth          *handler.AuthHandler
	board         *handler.BoardHandler
	requests      *handler.RequestHandler
	attachments   *handler.AttachmentHandler
	audit         *handler.AuditHandler
	notifications *handler.NotificationHandler
	settings      *handler.SettingsHandler
	reports       *handler.ReportHandler
	users         *handler.UserHandler
	archive       *handler.ArchiveHandler
	metrics       *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, h routeHandlers, auth *service.AuthService) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/cross-login", h.auth.CrossLogin)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(auth))

	management := internalmiddleware.RequireRoles(models.RoleProducer, models.RoleDirector)
	directors := internalmiddleware.RequireRoles(models.RoleDirector)

	secured.GET("/auth/me", h.auth.Me)
	secured.PUT("/auth/me", h.auth.UpdateMe)

	secured.GET("/requests/board", h.board.Board)
	secured.GET("/requests/trash", management, h.requests.Trash)
	secured.POST("/requests", h.requests.Create)
	secured.GET("/requests/:ref", h.requests.Get)
	secured.PUT("/requests/:ref", h.requests.Update)
	secured.DELETE("/requests/:ref", management, h.requests.Delete)
	secured.POST("/requests/:ref/restore", management, h.requests.Restore)
	secured.GET("/requests/:ref/events", h.requests.Events)
	secured.POST("/requests/:ref/status", h.requests.Transition)
	secured.POST("/requests/:ref/attachments", h.attachments.Upload)
	secured.DELETE("/requests/:ref/attachments/:attachmentId", h.attachments.Remove)
	secured.GET("/requests/:ref/attachments/:attachmentId/link", h.attachments.Link)
	secured.GET("/attachments/download", h.attachments.Download)

	secured.GET("/audit", management, h.audit.List)
	secured.GET("/audit/export", management, h.audit.Export)

	secured.GET("/notifications", h.notifications.List)
	secured.GET("/notifications/unread-count", h.notifications.UnreadCount)
	secured.POST("/notifications/:id/read", h.notifications.MarkRead)
	secured.POST("/notifications/read-all", h.notifications.MarkAllRead)

	secured.GET("/settings", h.settings.List)
	secured.PUT("/settings/:key", h.settings.Update)

	secured.GET("/reports/summary", management, h.reports.Summary)
	secured.GET("/reports/export", management, h.reports.Export)

	secured.GET("/users", h.users.List)
	secured.POST("/users", directors, h.users.Create)
	secured.PUT("/users/:id/active", directors, h.users.SetActive)

	secured.POST("/archive/sweep", directors, h.archive.Sweep)
}
