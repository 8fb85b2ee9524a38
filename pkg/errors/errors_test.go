package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("transition: %w", Clone(ErrTransitionFailed, "request 12 not updated"))
	got := FromError(wrapped)
	assert.Equal(t, ErrTransitionFailed.Code, got.Code)
	assert.Equal(t, http.StatusServiceUnavailable, got.Status)
	assert.Equal(t, "request 12 not updated", got.Message)

	plain := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.ErrorIs(t, plain, sql.ErrConnDone)

	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "request not found")
	assert.Equal(t, "request not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, ErrNotFound.Message, Clone(ErrNotFound, "").Message)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(sql.ErrNoRows, ErrNotFound.Code, ErrNotFound.Status, "user not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
	assert.Equal(t, "user not found: sql: no rows in result set", err.Error())
}
