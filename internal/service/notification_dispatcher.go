package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/pkg/crosssystem"
	"github.com/BladexZN/dashboard-c/pkg/jobs"
)

// JobTypeCrossSystemNotify identifies queued outbound notifications.
const JobTypeCrossSystemNotify = "cross_system_notify"

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateMany(ctx context.Context, items []models.Notification) error
}

type dispatcherUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error)
}

type notificationSettingsReader interface {
	Get(ctx context.Context, userID string) (models.NotificationSettings, error)
}

type crossSystemNotifier interface {
	Enabled() bool
	Notify(ctx context.Context, payload crosssystem.Payload) (crosssystem.Result, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TransitionContext describes one committed status change.
type TransitionContext struct {
	Request  models.Request
	Previous models.RequestStatus
	Status   models.RequestStatus
	ActorID  string
}

// NotificationDispatcherParams groups the dispatcher's collaborators.
type NotificationDispatcherParams struct {
	Notifications notificationWriter
	Users         dispatcherUserReader
	Settings      notificationSettingsReader
	CrossSystem   crossSystemNotifier
	Metrics       *MetricsService
	Logger        *zap.Logger
	OriginTag     string
}

// NotificationDispatcher turns request creation and status changes into inbox
// entries and outbound calls. Every failure is logged and swallowed.
type NotificationDispatcher struct {
	notifications notificationWriter
	users         dispatcherUserReader
	settings      notificationSettingsReader
	cross         crossSystemNotifier
	queue         jobEnqueuer
	metrics       *MetricsService
	logger        *zap.Logger
	originTag     string
	now           func() time.Time
}

// NewNotificationDispatcher constructs a dispatcher. Without a queue, outbound
// calls run inline.
func NewNotificationDispatcher(params NotificationDispatcherParams) *NotificationDispatcher {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := params.OriginTag
	if origin == "" {
		origin = "design"
	}
	return &NotificationDispatcher{
		notifications: params.Notifications,
		users:         params.Users,
		settings:      params.Settings,
		cross:         params.CrossSystem,
		metrics:       params.Metrics,
		logger:        logger,
		originTag:     origin,
		now:           time.Now,
	}
}

// UseQueue routes outbound calls through q.
func (d *NotificationDispatcher) UseQueue(q jobEnqueuer) {
	d.queue = q
}

// RequestCreated notifies every active producer and director about a new request.
func (d *NotificationDispatcher) RequestCreated(ctx context.Context, req models.Request, actorID string) {
	if !d.settingsFor(ctx, actorID).NotifyProduction {
		return
	}

	recipients, err := d.users.ListActiveByRoles(ctx, models.ProductionRoles)
	if err != nil {
		d.logger.Warn("failed to resolve production recipients", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	now := d.now().UTC()
	message := fmt.Sprintf("%s - %s - %s", req.DisplayFolio(), req.Client, req.Product)
	items := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		items = append(items, models.Notification{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			RequestID: req.ID,
			Title:     "Nueva solicitud",
			Message:   message,
			Category:  models.NotificationRequestCreated,
			CreatedAt: now,
		})
	}
	if err := d.notifications.CreateMany(ctx, items); err != nil {
		d.logger.Warn("failed to create production notifications", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	d.metrics.RecordNotifications(models.NotificationRequestCreated, len(items))
}

// StatusChanged fans out a committed transition.
func (d *NotificationDispatcher) StatusChanged(ctx context.Context, tc TransitionContext) {
	req := tc.Request

	if tc.Status == models.StatusDelivered && req.AdvisorID != nil && *req.AdvisorID != "" {
		if d.settingsFor(ctx, tc.ActorID).NotifyAdvisor {
			d.notifyAdvisor(ctx, req)
		}
	}

	if (tc.Status == models.StatusCorrection || tc.Status == models.StatusDelivered) && req.CreatedByUserID != nil {
		d.notifyOrigin(ctx, req, tc.Status)
	}
}

// DeliverCrossSystem is the queue handler for outbound notifications.
func (d *NotificationDispatcher) DeliverCrossSystem(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(crosssystem.Payload)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	return d.send(ctx, payload)
}

func (d *NotificationDispatcher) notifyAdvisor(ctx context.Context, req models.Request) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    *req.AdvisorID,
		RequestID: req.ID,
		Title:     "Solicitud entregada",
		Message:   fmt.Sprintf("%s ha sido entregada.", req.DisplayFolio()),
		Category:  models.NotificationRequestDelivered,
		CreatedAt: d.now().UTC(),
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		d.logger.Warn("failed to create advisor notification", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	d.metrics.RecordNotifications(models.NotificationRequestDelivered, 1)
}

func (d *NotificationDispatcher) notifyOrigin(ctx context.Context, req models.Request, status models.RequestStatus) {
	if d.cross == nil || !d.cross.Enabled() {
		return
	}
	creator, err := d.users.FindByID(ctx, *req.CreatedByUserID)
	if err != nil || creator.Email == "" {
		d.logger.Warn("cross-system notification skipped, creator not resolvable",
			zap.String("request_id", req.ID), zap.String("creator_id", *req.CreatedByUserID), zap.Error(err))
		return
	}

	kind := crosssystem.TypeReady
	if status == models.StatusCorrection {
		kind = crosssystem.TypeCorrection
	}
	payload := crosssystem.Payload{
		UserEmail:       creator.Email,
		RequestID:       req.DisplayFolio(),
		RequestUUID:     req.ID,
		Type:            kind,
		ProductName:     req.Product,
		DashboardSource: d.originTag,
	}

	if d.queue == nil {
		_ = d.send(ctx, payload)
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeCrossSystemNotify, Payload: payload}
	if err := d.queue.Enqueue(job); err != nil {
		d.metrics.RecordCrossSystem(false)
		d.logger.Warn("failed to enqueue cross-system notification", zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (d *NotificationDispatcher) send(ctx context.Context, payload crosssystem.Payload) error {
	result, err := d.cross.Notify(ctx, payload)
	if err != nil {
		d.logger.Warn("cross-system notification failed",
			zap.String("request_uuid", payload.RequestUUID), zap.String("type", payload.Type), zap.Error(err))
		var statusErr *crosssystem.StatusError
		if errors.Is(err, crosssystem.ErrDisabled) || (errors.As(err, &statusErr) && !statusErr.Retryable()) {
			d.metrics.RecordCrossSystem(false)
			return jobs.Permanent(err)
		}
		if d.queue == nil {
			d.metrics.RecordCrossSystem(false)
		}
		return err
	}
	if result.RecipientMissing() {
		d.logger.Info("cross-system recipient not found", zap.String("request_uuid", payload.RequestUUID), zap.String("message", result.Message))
	}
	d.metrics.RecordCrossSystem(true)
	return nil
}

// CrossSystemGaveUp records a queued notification dropped after its retries.
func (d *NotificationDispatcher) CrossSystemGaveUp(job jobs.Job, err error) {
	if jobs.IsPermanent(err) {
		return
	}
	d.metrics.RecordCrossSystem(false)
}

func (d *NotificationDispatcher) settingsFor(ctx context.Context, userID string) models.NotificationSettings {
	enabled := models.NotificationSettings{NotifyProduction: true, NotifyAdvisor: true}
	if d.settings == nil || userID == "" {
		return enabled
	}
	settings, err := d.settings.Get(ctx, userID)
	if err != nil {
		d.logger.Warn("failed to read notification settings, using defaults", zap.String("user_id", userID), zap.Error(err))
		return enabled
	}
	return settings
}
