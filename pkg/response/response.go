package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/models"
	appErrors "github.com/BladexZN/dashboard-c/pkg/errors"
)

// GenerationHeader carries the board snapshot generation.
const GenerationHeader = "X-Refresh-Generation"

// SnapshotMeta describes the board working set a response was built from.
// Stale is set when the caller's refresh was superseded by a later one.
type SnapshotMeta struct {
	Generation uint64
	Stale      bool
}

func (s SnapshotMeta) apply(c *gin.Context, meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		meta = make(map[string]interface{}, 2)
	}
	meta["generation"] = s.Generation
	meta["stale"] = s.Stale
	c.Header(GenerationHeader, strconv.FormatUint(s.Generation, 10))
	return meta
}

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Snapshot sends a 200 response stamped with the board generation, both as
// the GenerationHeader and in meta.
func Snapshot(c *gin.Context, data interface{}, snapshot SnapshotMeta, meta map[string]interface{}) {
	JSON(c, http.StatusOK, data, nil, snapshot.apply(c, meta))
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
