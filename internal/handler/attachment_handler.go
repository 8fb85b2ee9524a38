package handler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

type attachmentService interface {
	AddAttachment(ctx context.Context, ref string, upload dto.AttachmentUpload) (*models.Attachment, error)
	RemoveAttachment(ctx context.Context, ref, attachmentID string) error
	DownloadToken(ctx context.Context, ref, attachmentID string, actor *models.JWTClaims) (*dto.DownloadLink, error)
	ResolveDownload(token string, actor *models.JWTClaims) (string, error)
}

type fileOpener interface {
	Open(key string) (*os.File, error)
}

// AttachmentHandler serves uploads, removals and signed downloads.
type AttachmentHandler struct {
	service      attachmentService
	files        fileOpener
	downloadPath string
}

// NewAttachmentHandler constructs the handler. downloadPath is the public path
// of the Download route, used to build signed links.
func NewAttachmentHandler(svc attachmentService, files fileOpener, downloadPath string) *AttachmentHandler {
	return &AttachmentHandler{service: svc, files: files, downloadPath: downloadPath}
}

// Upload godoc
// @Summary Upload attachment
// @Description Stores a file for the request. Set final=true to replace the final design.
// @Tags Attachments
// @Accept mpfd
// @Produce json
// @Param ref path string true "Request id or folio"
// @Param file formData file true "File"
// @Param final formData bool false "Upload as final design"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{ref}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, bindingError(err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, bindingError(err, "failed to read upload"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, bindingError(err, "failed to read upload"))
		return
	}

	final, _ := strconv.ParseBool(c.PostForm("final"))
	attachment, err := h.service.AddAttachment(c.Request.Context(), c.Param("ref"), dto.AttachmentUpload{
		Name:    header.Filename,
		Size:    header.Size,
		Content: content,
		Final:   final,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// Remove godoc
// @Summary Remove attachment
// @Tags Attachments
// @Param ref path string true "Request id or folio"
// @Param attachmentId path string true "Attachment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref}/attachments/{attachmentId} [delete]
func (h *AttachmentHandler) Remove(c *gin.Context) {
	if err := h.service.RemoveAttachment(c.Request.Context(), c.Param("ref"), c.Param("attachmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Link godoc
// @Summary Signed download link
// @Tags Attachments
// @Produce json
// @Param ref path string true "Request id or folio"
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{ref}/attachments/{attachmentId}/link [get]
func (h *AttachmentHandler) Link(c *gin.Context) {
	link, err := h.service.DownloadToken(c.Request.Context(), c.Param("ref"), c.Param("attachmentId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	link.URL = h.downloadPath + "?token=" + url.QueryEscape(link.Token)
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download attachment
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	key, err := h.service.ResolveDownload(token, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.files.Open(key)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file not found"))
		return
	}
	name := file.Name()
	_ = file.Close()
	c.FileAttachment(name, path.Base(key))
}
