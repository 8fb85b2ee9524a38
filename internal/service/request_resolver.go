package service

import (
	"context"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type requestFinder interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
	GetByFolio(ctx context.Context, folio int64) (*models.Request, error)
}

// resolveRequest accepts an internal id, a numeric folio or "#REQ-n".
func resolveRequest(ctx context.Context, finder requestFinder, ref string) (*models.Request, error) {
	var (
		req *models.Request
		err error
	)
	switch {
	case isUUID(ref):
		req, err = finder.GetByID(ctx, ref)
	default:
		folio, ok := models.ParseFolio(ref)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request reference")
		}
		req, err = finder.GetByFolio(ctx, folio)
	}
	if err != nil {
		return nil, notFoundOr(err, "request not found", "failed to load request")
	}
	return req, nil
}

// resolveActiveRequest is resolveRequest restricted to requests outside the trash.
func resolveActiveRequest(ctx context.Context, finder requestFinder, ref string) (*models.Request, error) {
	req, err := resolveRequest(ctx, finder, ref)
	if err != nil {
		return nil, err
	}
	if req.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	return req, nil
}
