package crosssystem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNotify(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"Notification sent"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL, Token: "token-1", Timeout: time.Second}, nil)
	res, err := client.Notify(context.Background(), Payload{
		UserEmail:       "ana@example.com",
		RequestID:       "#REQ-12",
		RequestUUID:     "8f7e",
		Type:            TypeReady,
		ProductName:     "Logo",
		DashboardSource: "design",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Acknowledged)
	assert.False(t, res.RecipientMissing())
	assert.Equal(t, "#REQ-12", got.RequestID)
	assert.Equal(t, "ready", got.Type)
	assert.Equal(t, "design", got.DashboardSource)
}

func TestClientNotifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing required fields"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{URL: srv.URL}, nil).Notify(context.Background(), Payload{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.False(t, statusErr.Retryable())
	assert.True(t, (&StatusError{StatusCode: 503}).Retryable())
}

func TestClientDisabled(t *testing.T) {
	client := NewClient(Config{}, nil)
	assert.False(t, client.Enabled())
	_, err := client.Notify(context.Background(), Payload{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestClientRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL, RatePerSecond: 0.001, Burst: 1}, nil)
	_, err := client.Notify(context.Background(), Payload{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Notify(ctx, Payload{})
	assert.Error(t, err)
}

func TestClientAcknowledgementBodies(t *testing.T) {
	cases := map[string]struct {
		body    string
		missing bool
	}{
		"empty body":        {body: "", missing: false},
		"whitespace body":   {body: " \n", missing: false},
		"no success flag":   {body: `{"message":"queued"}`, missing: false},
		"unknown recipient": {body: `{"success":false,"message":"User not found"}`, missing: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res, err := NewClient(Config{URL: srv.URL}, nil).Notify(context.Background(), Payload{})
			require.NoError(t, err)
			assert.Equal(t, tc.missing, res.RecipientMissing())
		})
	}
}
