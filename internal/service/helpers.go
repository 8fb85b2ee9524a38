package service

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// isUUID reports whether ref looks like an internal identifier rather than a folio.
func isUUID(ref string) bool {
	_, err := uuid.Parse(strings.TrimSpace(ref))
	return err == nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, message)
}
