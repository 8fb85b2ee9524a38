package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type requestServiceStub struct {
	view       *models.RequestView
	err        error
	trash      []models.TrashItem
	deletedRef string
	deletedBy  string
}

func (s *requestServiceStub) Get(ctx context.Context, ref string) (*models.RequestView, error) {
	return s.view, s.err
}

func (s *requestServiceStub) Events(ctx context.Context, ref string) ([]models.StatusEvent, error) {
	return nil, s.err
}

func (s *requestServiceStub) Update(ctx context.Context, ref string, payload dto.UpdateRequestRequest) (*models.RequestView, error) {
	return s.view, s.err
}

func (s *requestServiceStub) SoftDelete(ctx context.Context, ref string, actor *models.JWTClaims) error {
	s.deletedRef = ref
	if actor != nil {
		s.deletedBy = actor.UserID
	}
	return s.err
}

func (s *requestServiceStub) Restore(ctx context.Context, ref string) (*models.RequestView, error) {
	return s.view, s.err
}

func (s *requestServiceStub) Trash(ctx context.Context, limit int) ([]models.TrashItem, error) {
	return s.trash, s.err
}

type transitionServiceStub struct {
	created *models.RequestView
	result  *dto.TransitionResult
	err     error
	actor   *models.JWTClaims
}

func (s *transitionServiceStub) Create(ctx context.Context, payload dto.CreateRequestRequest, actor *models.JWTClaims) (*models.RequestView, error) {
	s.actor = actor
	return s.created, s.err
}

func (s *transitionServiceStub) Transition(ctx context.Context, ref string, payload dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	s.actor = actor
	return s.result, s.err
}

func TestRequestHandlerTransitionConfirmsAndReloads(t *testing.T) {
	registry := sessionRegistry{"u1": {snapshot: models.BoardSnapshot{Generation: 7}}}
	transitions := &transitionServiceStub{result: &dto.TransitionResult{
		RequestID: "r1", Folio: "#REQ-5", PreviousStatus: models.StatusPending, Status: models.StatusInProduction, Changed: true,
	}}
	handler := NewRequestHandler(&requestServiceStub{}, transitions, registry.lookup)

	body, _ := json.Marshal(dto.TransitionRequest{Status: models.StatusInProduction})
	c, w := newGinContext(http.MethodPost, "/requests/%23REQ-5/status", body)
	c.AddParam("ref", "#REQ-5")
	asUser(c, "u1", models.RoleProducer)
	handler.Transition(c)

	require.Equal(t, http.StatusOK, w.Code)
	session := registry["u1"]
	assert.Equal(t, []models.RequestStatus{models.StatusInProduction}, session.speculated)
	assert.Equal(t, 1, session.reloaded)
	assert.Zero(t, session.reverted)
	assert.Equal(t, "7", w.Header().Get("X-Refresh-Generation"))
	assert.Equal(t, "u1", transitions.actor.UserID)

	var result dto.TransitionResult
	decodeEnvelope(t, w, &result)
	assert.True(t, result.Changed)
	assert.Equal(t, models.StatusPending, result.PreviousStatus)
}

func TestRequestHandlerTransitionRevertsOnFailure(t *testing.T) {
	registry := sessionRegistry{}
	transitions := &transitionServiceStub{err: appErrors.Wrap(errors.New("insert failed"), appErrors.ErrTransitionFailed.Code, appErrors.ErrTransitionFailed.Status, "failed to record status change")}
	handler := NewRequestHandler(&requestServiceStub{}, transitions, registry.lookup)

	body, _ := json.Marshal(dto.TransitionRequest{Status: models.StatusDelivered})
	c, w := newGinContext(http.MethodPost, "/requests/r1/status", body)
	c.AddParam("ref", "r1")
	asUser(c, "u1", models.RoleProducer)
	handler.Transition(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	session := registry["u1"]
	assert.Equal(t, 1, session.reverted)
	assert.Zero(t, session.reloaded)

	envelope := decodeEnvelope(t, w, nil)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "TRANSITION_FAILED", envelope.Error.Code)
}

func TestRequestHandlerTransitionRejectsBadPayload(t *testing.T) {
	registry := sessionRegistry{}
	handler := NewRequestHandler(&requestServiceStub{}, &transitionServiceStub{}, registry.lookup)

	c, w := newGinContext(http.MethodPost, "/requests/r1/status", []byte(`{"status":`))
	c.AddParam("ref", "r1")
	asUser(c, "u1", models.RoleProducer)
	handler.Transition(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, registry)
}

func TestRequestHandlerCreate(t *testing.T) {
	transitions := &transitionServiceStub{created: &models.RequestView{Request: models.Request{ID: "r9", Folio: 9}, DisplayFolio: "#REQ-9", Status: models.StatusPending}}
	handler := NewRequestHandler(&requestServiceStub{}, transitions, sessionRegistry{}.lookup)

	body, _ := json.Marshal(dto.CreateRequestRequest{Client: "Acme", Product: "Logo", Type: models.RequestTypeNew})
	c, w := newGinContext(http.MethodPost, "/requests", body)
	asUser(c, "u1", models.RoleAdvisor)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var view models.RequestView
	decodeEnvelope(t, w, &view)
	assert.Equal(t, "#REQ-9", view.DisplayFolio)
	assert.Equal(t, models.StatusPending, view.Status)
}

func TestRequestHandlerGetNotFound(t *testing.T) {
	handler := NewRequestHandler(&requestServiceStub{err: appErrors.Clone(appErrors.ErrNotFound, "request not found")}, &transitionServiceStub{}, sessionRegistry{}.lookup)

	c, w := newGinContext(http.MethodGet, "/requests/%23REQ-404", nil)
	c.AddParam("ref", "#REQ-404")
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestHandlerDeleteAndTrash(t *testing.T) {
	requests := &requestServiceStub{}
	handler := NewRequestHandler(requests, &transitionServiceStub{}, sessionRegistry{}.lookup)

	c, w := newGinContext(http.MethodDelete, "/requests/r1", nil)
	c.AddParam("ref", "r1")
	asUser(c, "u2", models.RoleDirector)
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "r1", requests.deletedRef)
	assert.Equal(t, "u2", requests.deletedBy)

	c, w = newGinContext(http.MethodGet, "/requests/trash", nil)
	handler.Trash(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
