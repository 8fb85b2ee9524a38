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
	"github.com/BladexZN/dashboard-c/internal/service"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type authServiceMock struct {
	crossToken string
	err        error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600, User: models.UserInfo{ID: "u1", Email: req.Email}}, nil
}

func (m *authServiceMock) CrossLogin(ctx context.Context, req models.CrossLoginRequest) (*models.LoginResponse, error) {
	m.crossToken = req.Token
	return &models.LoginResponse{AccessToken: "local", User: models.UserInfo{ID: "u9", Role: models.RoleDesigner}}, m.err
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, FullName: "Ana"}, nil
}

func (m *authServiceMock) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.UserInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.UserInfo{ID: userID, Email: req.Email, FullName: req.FullName}, nil
}

type inboxServiceMock struct {
	markedID string
	markErr  error
}

func (m *inboxServiceMock) Inbox(ctx context.Context, userID string) (*models.Inbox, error) {
	return &models.Inbox{Items: []models.Notification{{ID: "n1", UserID: userID}}, UnreadCount: 1}, nil
}

func (m *inboxServiceMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	return 4, nil
}

func (m *inboxServiceMock) MarkRead(ctx context.Context, id, userID string) error {
	m.markedID = id
	return m.markErr
}

func (m *inboxServiceMock) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return 3, nil
}

type settingsServiceMock struct {
	key   string
	value bool
}

func (m *settingsServiceMock) List(ctx context.Context, userID string) ([]dto.SettingItem, error) {
	return []dto.SettingItem{{Key: "notify_production", Value: true}}, nil
}

func (m *settingsServiceMock) Set(ctx context.Context, userID, key string, value bool) (*dto.SettingItem, error) {
	m.key, m.value = key, value
	return &dto.SettingItem{Key: key, Value: value}, nil
}

type userServiceMock struct {
	query  dto.UserQuery
	active *bool
}

func (m *userServiceMock) List(ctx context.Context, query dto.UserQuery) ([]models.UserInfo, error) {
	m.query = query
	return []models.UserInfo{{ID: "a1", FullName: "Luis", Role: models.RoleAdvisor, Active: true}}, nil
}

func (m *userServiceMock) Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "new", Email: req.Email, Role: req.Role, Active: true}, nil
}

func (m *userServiceMock) SetActive(ctx context.Context, id string, active bool, actor *models.JWTClaims) error {
	m.active = &active
	return nil
}

func TestAuthHandlerLogin(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})
	body, _ := json.Marshal(models.LoginRequest{Email: "ana@example.com", Password: "secret"})

	c, w := newGinContext(http.MethodPost, "/auth/login", body)
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	var res models.LoginResponse
	decodeEnvelope(t, w, &res)
	assert.Equal(t, "token", res.AccessToken)
	assert.Equal(t, "ana@example.com", res.User.Email)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})
	body, _ := json.Marshal(models.LoginRequest{Email: "ana@example.com", Password: "nope"})

	c, w := newGinContext(http.MethodPost, "/auth/login", body)
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerCrossLogin(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/cross-login", []byte(`{"token":"master.jwt"}`))
	handler.CrossLogin(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "master.jwt", svc.crossToken)
}

func TestAuthHandlerMeAndUpdate(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	asUser(c, "u1", models.RoleProducer)
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "email already in use")
	body, _ := json.Marshal(dto.UpdateProfileRequest{Email: "luis@example.com", FullName: "Ana"})
	c, w = newGinContext(http.MethodPut, "/auth/me", body)
	asUser(c, "u1", models.RoleProducer)
	handler.UpdateMe(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNotificationHandler(t *testing.T) {
	svc := &inboxServiceMock{}
	handler := NewNotificationHandler(svc)

	c, w := newGinContext(http.MethodGet, "/notifications", nil)
	asUser(c, "u1", models.RoleProducer)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox models.Inbox
	decodeEnvelope(t, w, &inbox)
	assert.Equal(t, 1, inbox.UnreadCount)

	c, w = newGinContext(http.MethodGet, "/notifications/unread-count", nil)
	asUser(c, "u1", models.RoleProducer)
	handler.UnreadCount(c)
	assert.JSONEq(t, `{"data":{"unread_count":4}}`, w.Body.String())

	c, w = newGinContext(http.MethodPost, "/notifications/read-all", nil)
	asUser(c, "u1", models.RoleProducer)
	handler.MarkAllRead(c)
	assert.JSONEq(t, `{"data":{"updated":3}}`, w.Body.String())

	svc.markErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, w = newGinContext(http.MethodPost, "/notifications/n2/read", nil)
	c.AddParam("id", "n2")
	asUser(c, "u1", models.RoleProducer)
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "n2", svc.markedID)
}

func TestSettingsHandlerUpdate(t *testing.T) {
	svc := &settingsServiceMock{}
	handler := NewSettingsHandler(svc)

	c, w := newGinContext(http.MethodPut, "/settings/notify_advisor", []byte(`{"value":false}`))
	c.AddParam("key", "notify_advisor")
	asUser(c, "u1", models.RoleProducer)
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "notify_advisor", svc.key)
	assert.False(t, svc.value)

	c, w = newGinContext(http.MethodPut, "/settings/notify_advisor", []byte(`{}`))
	c.AddParam("key", "notify_advisor")
	asUser(c, "u1", models.RoleProducer)
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler(t *testing.T) {
	svc := &userServiceMock{}
	handler := NewUserHandler(svc)

	c, w := newGinContext(http.MethodGet, "/users?role=Asesor&include_inactive=true", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdvisor, svc.query.Role)
	assert.True(t, svc.query.IncludeInactive)

	c, w = newGinContext(http.MethodPut, "/users/a1/active", []byte(`{"active":false}`))
	c.AddParam("id", "a1")
	asUser(c, "d1", models.RoleDirector)
	handler.SetActive(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, svc.active)
	assert.False(t, *svc.active)

	body, _ := json.Marshal(dto.CreateUserRequest{Email: "new@example.com", FullName: "Nuevo", Role: models.RoleAdvisor, Password: "supersecret"})
	c, w = newGinContext(http.MethodPost, "/users", body)
	asUser(c, "d1", models.RoleDirector)
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","redis":"connection refused"}}`, w.Body.String())

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerHealthAndScrape(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordTransition(models.StatusDelivered, "applied")
	metrics.RecordTransition(models.StatusDelivered, "failed")
	handler := NewMetricsHandler(metrics, nil)

	c, w := newGinContext(http.MethodGet, "/health", nil)
	handler.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status  string               `json:"status"`
		Metrics models.SystemMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(2), body.Metrics.Transitions)
	assert.Equal(t, uint64(1), body.Metrics.TransitionFailures)

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dashboard_status_transitions_total{outcome="failed",status="Entregado"} 1`)
}
