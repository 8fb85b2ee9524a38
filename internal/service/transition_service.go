package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type transitionRequestStore interface {
	requestFinder
	CreateWithInitialEvent(ctx context.Context, req *models.Request, event *models.StatusEvent) error
	SetCompletedAt(ctx context.Context, id string, completedAt time.Time) error
}

type transitionEventStore interface {
	Append(ctx context.Context, event *models.StatusEvent) error
	ListFor(ctx context.Context, requestID string) ([]models.StatusEvent, error)
}

type transitionDispatcher interface {
	RequestCreated(ctx context.Context, req models.Request, actorID string)
	StatusChanged(ctx context.Context, tc TransitionContext)
}

// TransitionServiceParams groups the transition service's collaborators.
type TransitionServiceParams struct {
	Requests   transitionRequestStore
	Events     transitionEventStore
	Dispatcher transitionDispatcher
	Validator  *validator.Validate
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// TransitionService is the only writer of the status event log.
type TransitionService struct {
	requests   transitionRequestStore
	events     transitionEventStore
	dispatcher transitionDispatcher
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewTransitionService constructs the service.
func NewTransitionService(params TransitionServiceParams) *TransitionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &TransitionService{
		requests:   params.Requests,
		events:     params.Events,
		dispatcher: params.Dispatcher,
		validator:  validate,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Create stores a new request together with its first Pendiente event and
// notifies production.
func (s *TransitionService) Create(ctx context.Context, payload dto.CreateRequestRequest, actor *models.JWTClaims) (*models.RequestView, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	now := s.now().UTC()
	req := &models.Request{
		Client:          strings.TrimSpace(payload.Client),
		Product:         strings.TrimSpace(payload.Product),
		Type:            payload.Type,
		Priority:        payload.Priority,
		Description:     payload.Description,
		Brief:           payload.Brief,
		Links:           pq.StringArray(payload.Links),
		Attachments:     models.Attachments{},
		AdvisorID:       payload.AdvisorID,
		BoardNumber:     payload.BoardNumber,
		CreatedByUserID: payload.CreatedByUserID,
		CreatedAt:       now,
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Links == nil {
		req.Links = pq.StringArray{}
	}

	note := models.CreationNote
	event := &models.StatusEvent{
		Status:    models.StatusPending,
		UserID:    userIDPtr(actor),
		Timestamp: now,
		Note:      &note,
	}
	if err := s.requests.CreateWithInitialEvent(ctx, req, event); err != nil {
		s.metrics.RecordTransition(models.StatusPending, "failed")
		return nil, appErrors.Wrap(err, appErrors.ErrTransitionFailed.Code, appErrors.ErrTransitionFailed.Status, "failed to create request")
	}
	s.metrics.RecordTransition(models.StatusPending, "applied")

	s.logger.Sugar().Infow("request created", "request_id", req.ID, "folio", req.DisplayFolio(), "actor", derefString(userIDPtr(actor)))

	if s.dispatcher != nil {
		s.dispatcher.RequestCreated(ctx, *req, derefString(userIDPtr(actor)))
	}

	ts := event.Timestamp
	return &models.RequestView{
		Request:      *req,
		DisplayFolio: req.DisplayFolio(),
		Status:       models.StatusPending,
		StatusAt:     &ts,
	}, nil
}

// Transition moves a request to a new status. A request already at the target
// status reports Changed=false and appends nothing. Once the event is
// appended, the completed_at stamp and notifications are best-effort.
func (s *TransitionService) Transition(ctx context.Context, ref string, payload dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if !payload.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}

	history, err := s.events.ListFor(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "failed to load status history")
	}
	previous := CurrentStatus(history)

	result := &dto.TransitionResult{
		RequestID:      req.ID,
		Folio:          req.DisplayFolio(),
		PreviousStatus: previous,
		Status:         payload.Status,
	}
	if previous == payload.Status {
		s.metrics.RecordTransition(payload.Status, "noop")
		return result, nil
	}

	now := s.now().UTC()
	event := &models.StatusEvent{
		RequestID: req.ID,
		Status:    payload.Status,
		UserID:    userIDPtr(actor),
		Timestamp: now,
		Note:      payload.Note,
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.metrics.RecordTransition(payload.Status, "failed")
		s.logger.Warn("status transition rejected", zap.String("request_id", req.ID), zap.String("status", string(payload.Status)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrTransitionFailed.Code, appErrors.ErrTransitionFailed.Status, "failed to record status change")
	}
	s.metrics.RecordTransition(payload.Status, "applied")
	result.Changed = true
	result.Event = event

	if payload.Status == models.StatusDelivered {
		if err := s.requests.SetCompletedAt(ctx, req.ID, now); err != nil {
			s.logger.Warn("failed to stamp completed_at", zap.String("request_id", req.ID), zap.Error(err))
		} else {
			req.CompletedAt = &now
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.StatusChanged(ctx, TransitionContext{
			Request:  *req,
			Previous: previous,
			Status:   payload.Status,
			ActorID:  derefString(userIDPtr(actor)),
		})
	}

	s.logger.Sugar().Infow("status changed", "request_id", req.ID, "folio", result.Folio, "from", previous, "to", payload.Status)
	return result, nil
}
