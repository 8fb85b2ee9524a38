package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type requestStore interface {
	requestFinder
	UpdateFields(ctx context.Context, id string, upd models.RequestFieldUpdate) error
	SetAttachments(ctx context.Context, id string, attachments models.Attachments, finalDesign *models.FinalDesign) error
	SoftDelete(ctx context.Context, id string, deletedBy *string, deletedAt time.Time) error
	Restore(ctx context.Context, id string) error
	ListTrash(ctx context.Context, limit int) ([]models.TrashItem, error)
}

type requestEventReader interface {
	ListFor(ctx context.Context, requestID string) ([]models.StatusEvent, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Remove(ctx context.Context, keys ...string) error
	KeyFromURL(url string) (string, bool)
}

type downloadSigner interface {
	Generate(ownerID, key string) (string, time.Time, error)
	Parse(token string) (ownerID, key string, expiresAt time.Time, err error)
}

// RequestServiceParams groups the request service's collaborators.
type RequestServiceParams struct {
	Requests     requestStore
	Events       requestEventReader
	Objects      objectStore
	Signer       downloadSigner
	Validator    *validator.Validate
	Logger       *zap.Logger
	MaxFileSize  int64
	AllowedMIMEs []string
}

// RequestService handles request reads, field edits, trash and attachments.
// It never writes the status event log.
type RequestService struct {
	requests     requestStore
	events       requestEventReader
	objects      objectStore
	signer       downloadSigner
	validator    *validator.Validate
	logger       *zap.Logger
	maxFileSize  int64
	allowedMIMEs []string
	now          func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(params RequestServiceParams) *RequestService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	maxSize := params.MaxFileSize
	if maxSize <= 0 {
		maxSize = 20 * 1024 * 1024
	}
	return &RequestService{
		requests:     params.Requests,
		events:       params.Events,
		objects:      params.Objects,
		signer:       params.Signer,
		validator:    validate,
		logger:       logger,
		maxFileSize:  maxSize,
		allowedMIMEs: params.AllowedMIMEs,
		now:          time.Now,
	}
}

// Get returns a request, deleted or not, with its projected status.
func (s *RequestService) Get(ctx context.Context, ref string) (*models.RequestView, error) {
	req, err := resolveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, req)
}

// Events returns the status history of a request, oldest first.
func (s *RequestService) Events(ctx context.Context, ref string) ([]models.StatusEvent, error) {
	req, err := resolveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListFor(ctx, req.ID)
	if err != nil {
		return nil, internalError(err, "failed to load status history")
	}
	return events, nil
}

// Update applies field edits.
func (s *RequestService) Update(ctx context.Context, ref string, payload dto.UpdateRequestRequest) (*models.RequestView, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}

	upd := models.RequestFieldUpdate{
		Client:      trimmedPtr(payload.Client),
		Product:     trimmedPtr(payload.Product),
		Type:        payload.Type,
		Priority:    payload.Priority,
		Description: payload.Description,
		Brief:       payload.Brief,
		Links:       payload.Links,
		AdvisorID:   payload.AdvisorID,
		BoardNumber: payload.BoardNumber,
	}
	if err := s.requests.UpdateFields(ctx, req.ID, upd); err != nil {
		return nil, notFoundOr(err, "request not found", "failed to update request")
	}
	return s.Get(ctx, req.ID)
}

// SoftDelete removes the request's stored files, then flags it deleted and
// clears its attachment, link and final design references.
func (s *RequestService) SoftDelete(ctx context.Context, ref string, actor *models.JWTClaims) error {
	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return err
	}

	if keys := s.objectKeys(req); len(keys) > 0 {
		if err := s.objects.Remove(ctx, keys...); err != nil {
			s.logger.Warn("failed to remove request files", zap.String("request_id", req.ID), zap.Strings("keys", keys), zap.Error(err))
		}
	}

	if err := s.requests.SoftDelete(ctx, req.ID, userIDPtr(actor), s.now().UTC()); err != nil {
		return notFoundOr(err, "request not found", "failed to delete request")
	}
	s.logger.Sugar().Infow("request moved to trash", "request_id", req.ID, "folio", req.DisplayFolio(), "actor", derefString(userIDPtr(actor)))
	return nil
}

// Restore brings a request back from the trash.
func (s *RequestService) Restore(ctx context.Context, ref string) (*models.RequestView, error) {
	req, err := resolveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}
	if !req.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is not in the trash")
	}
	if err := s.requests.Restore(ctx, req.ID); err != nil {
		return nil, notFoundOr(err, "request not found", "failed to restore request")
	}
	return s.Get(ctx, req.ID)
}

// Trash lists deleted requests, most recently deleted first.
func (s *RequestService) Trash(ctx context.Context, limit int) ([]models.TrashItem, error) {
	items, err := s.requests.ListTrash(ctx, limit)
	if err != nil {
		return nil, internalError(err, "failed to load trash")
	}
	return items, nil
}

// AddAttachment stores an uploaded file and references it from the request.
// A final upload replaces the current final design.
func (s *RequestService) AddAttachment(ctx context.Context, ref string, upload dto.AttachmentUpload) (*models.Attachment, error) {
	if len(upload.Content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(upload.Content)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxFileSize))
	}
	mtype := mimetype.Detect(upload.Content)
	if len(s.allowedMIMEs) > 0 && !mimetype.EqualsAny(mtype.String(), s.allowedMIMEs...) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type "+mtype.String()+" is not allowed")
	}

	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := sanitizeFileName(upload.Name, mtype.Extension())
	key := fmt.Sprintf("%s/%s-%s", req.ID, id, name)
	url, err := s.objects.Put(ctx, key, bytes.NewReader(upload.Content))
	if err != nil {
		return nil, internalError(err, "failed to store file")
	}

	attachment := models.Attachment{
		ID:         id,
		Name:       name,
		URL:        url,
		Size:       int64(len(upload.Content)),
		Type:       mtype.String(),
		UploadedAt: s.now().UTC(),
	}

	attachments := append(models.Attachments{}, req.Attachments...)
	finalDesign := req.FinalDesign
	var replaced *models.FinalDesign
	if upload.Final {
		replaced = finalDesign
		fd := models.FinalDesign(attachment)
		finalDesign = &fd
	} else {
		attachments = append(attachments, attachment)
	}

	if err := s.requests.SetAttachments(ctx, req.ID, attachments, finalDesign); err != nil {
		if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, notFoundOr(err, "request not found", "failed to save attachment")
	}

	if replaced != nil {
		s.removeObject(ctx, req.ID, replaced.URL)
	}
	return &attachment, nil
}

// RemoveAttachment drops the reference first and then deletes the file.
func (s *RequestService) RemoveAttachment(ctx context.Context, ref, attachmentID string) error {
	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return err
	}

	var (
		removedURL  string
		attachments = make(models.Attachments, 0, len(req.Attachments))
		finalDesign = req.FinalDesign
	)
	for _, a := range req.Attachments {
		if a.ID == attachmentID {
			removedURL = a.URL
			continue
		}
		attachments = append(attachments, a)
	}
	if removedURL == "" && finalDesign != nil && finalDesign.ID == attachmentID {
		removedURL = finalDesign.URL
		finalDesign = nil
	}
	if removedURL == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}

	if err := s.requests.SetAttachments(ctx, req.ID, attachments, finalDesign); err != nil {
		return notFoundOr(err, "request not found", "failed to remove attachment")
	}
	s.removeObject(ctx, req.ID, removedURL)
	return nil
}

// DownloadToken issues a signed token for one attachment of a request.
func (s *RequestService) DownloadToken(ctx context.Context, ref, attachmentID string, actor *models.JWTClaims) (*dto.DownloadLink, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing user")
	}
	req, err := resolveActiveRequest(ctx, s.requests, ref)
	if err != nil {
		return nil, err
	}
	url := ""
	for _, a := range req.Attachments {
		if a.ID == attachmentID {
			url = a.URL
		}
	}
	if url == "" && req.FinalDesign != nil && req.FinalDesign.ID == attachmentID {
		url = req.FinalDesign.URL
	}
	key, ok := s.objects.KeyFromURL(url)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	token, expiresAt, err := s.signer.Generate(actor.UserID, key)
	if err != nil {
		return nil, internalError(err, "failed to sign download")
	}
	return &dto.DownloadLink{Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a download token for actor and returns the object key.
func (s *RequestService) ResolveDownload(token string, actor *models.JWTClaims) (string, error) {
	ownerID, key, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	if actor == nil || actor.UserID != ownerID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "download token belongs to another user")
	}
	return key, nil
}

func (s *RequestService) view(ctx context.Context, req *models.Request) (*models.RequestView, error) {
	events, err := s.events.ListFor(ctx, req.ID)
	if err != nil {
		return nil, internalError(err, "failed to load status history")
	}
	view := &models.RequestView{
		Request:      *req,
		DisplayFolio: req.DisplayFolio(),
		Status:       CurrentStatus(events),
	}
	if latest, ok := LatestEvent(events); ok {
		ts := latest.Timestamp
		view.StatusAt = &ts
	}
	return view, nil
}

func (s *RequestService) objectKeys(req *models.Request) []string {
	var keys []string
	for _, a := range req.Attachments {
		if key, ok := s.objects.KeyFromURL(a.URL); ok {
			keys = append(keys, key)
		}
	}
	if req.FinalDesign != nil {
		if key, ok := s.objects.KeyFromURL(req.FinalDesign.URL); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *RequestService) removeObject(ctx context.Context, requestID, url string) {
	key, ok := s.objects.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.objects.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to remove file", zap.String("request_id", requestID), zap.String("key", key), zap.Error(err))
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFileName(name, ext string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file" + ext
	}
	if len(base) > 120 {
		base = base[len(base)-120:]
	}
	return base
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
