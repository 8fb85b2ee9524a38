package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

type attachmentServiceStub struct {
	upload     dto.AttachmentUpload
	uploadRef  string
	key        string
	resolveErr error
}

func (s *attachmentServiceStub) AddAttachment(ctx context.Context, ref string, upload dto.AttachmentUpload) (*models.Attachment, error) {
	s.uploadRef = ref
	s.upload = upload
	return &models.Attachment{ID: "a1", Name: upload.Name, Size: int64(len(upload.Content))}, nil
}

func (s *attachmentServiceStub) RemoveAttachment(ctx context.Context, ref, attachmentID string) error {
	if attachmentID != "a1" {
		return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	return nil
}

func (s *attachmentServiceStub) DownloadToken(ctx context.Context, ref, attachmentID string, actor *models.JWTClaims) (*dto.DownloadLink, error) {
	return &dto.DownloadLink{Token: "tok+en/1", ExpiresAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}, nil
}

func (s *attachmentServiceStub) ResolveDownload(token string, actor *models.JWTClaims) (string, error) {
	return s.key, s.resolveErr
}

type dirOpener string

func (d dirOpener) Open(key string) (*os.File, error) {
	return os.Open(filepath.Join(string(d), filepath.FromSlash(key)))
}

func TestAttachmentHandlerUpload(t *testing.T) {
	svc := &attachmentServiceStub{}
	handler := NewAttachmentHandler(svc, dirOpener(t.TempDir()), "/api/v1/attachments/download")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "brief.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 content"))
	require.NoError(t, writer.WriteField("final", "true"))
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/requests/r1/attachments", body.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.AddParam("ref", "r1")
	handler.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "r1", svc.uploadRef)
	assert.Equal(t, "brief.pdf", svc.upload.Name)
	assert.True(t, svc.upload.Final)
	assert.Equal(t, []byte("%PDF-1.4 content"), svc.upload.Content)
}

func TestAttachmentHandlerUploadRequiresFile(t *testing.T) {
	handler := NewAttachmentHandler(&attachmentServiceStub{}, dirOpener(t.TempDir()), "/download")

	c, w := newGinContext(http.MethodPost, "/requests/r1/attachments", nil)
	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachmentHandlerLinkBuildsDownloadURL(t *testing.T) {
	handler := NewAttachmentHandler(&attachmentServiceStub{}, dirOpener(t.TempDir()), "/api/v1/attachments/download")

	c, w := newGinContext(http.MethodGet, "/requests/r1/attachments/a1/link", nil)
	c.AddParam("ref", "r1")
	c.AddParam("attachmentId", "a1")
	asUser(c, "u1", models.RoleDesigner)
	handler.Link(c)

	require.Equal(t, http.StatusOK, w.Code)
	var link dto.DownloadLink
	decodeEnvelope(t, w, &link)
	assert.Equal(t, "/api/v1/attachments/download?token=tok%2Ben%2F1", link.URL)
}

func TestAttachmentHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "r1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r1", "a1-logo.txt"), []byte("final art"), 0o644))

	svc := &attachmentServiceStub{key: "r1/a1-logo.txt"}
	handler := NewAttachmentHandler(svc, dirOpener(dir), "/download")

	c, w := newGinContext(http.MethodGet, "/attachments/download?token=abc", nil)
	asUser(c, "u1", models.RoleDesigner)
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "final art", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "a1-logo.txt")

	svc.resolveErr = appErrors.Clone(appErrors.ErrForbidden, "download token belongs to another user")
	c, w = newGinContext(http.MethodGet, "/attachments/download?token=abc", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newGinContext(http.MethodGet, "/attachments/download", nil)
	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachmentHandlerRemove(t *testing.T) {
	handler := NewAttachmentHandler(&attachmentServiceStub{}, dirOpener(t.TempDir()), "/download")

	c, w := newGinContext(http.MethodDelete, "/requests/r1/attachments/zz", nil)
	c.AddParam("ref", "r1")
	c.AddParam("attachmentId", "zz")
	handler.Remove(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
