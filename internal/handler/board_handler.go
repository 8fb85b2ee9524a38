package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/BladexZN/dashboard-c/internal/dto"
	"github.com/BladexZN/dashboard-c/internal/middleware"
	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/internal/service"
	"github.com/BladexZN/dashboard-c/pkg/response"
)

// BoardSession is one user's working set on the board.
type BoardSession interface {
	Refresh(ctx context.Context, query models.BoardQuery) (models.BoardSnapshot, bool, error)
	Reload(ctx context.Context) (models.BoardSnapshot, bool, error)
	Speculate(ref string, status models.RequestStatus) func()
}

// NewSessionLookup adapts the per-user coordinator registry for handlers.
func NewSessionLookup(coords *service.RefreshCoordinators) func(userID string) BoardSession {
	return func(userID string) BoardSession { return coords.For(userID) }
}

// BoardHandler serves the production board read path.
type BoardHandler struct {
	sessions func(userID string) BoardSession
}

// NewBoardHandler constructs the handler.
func NewBoardHandler(sessions func(userID string) BoardSession) *BoardHandler {
	return &BoardHandler{sessions: sessions}
}

// Board godoc
// @Summary Production board
// @Description Refreshes the caller's working set and returns the published snapshot
// @Tags Board
// @Produce json
// @Param window query string false "today|month|year|YYYY-MM-DD|all"
// @Param search query string false "Fuzzy search over folio, client and product"
// @Param status query string false "Status filter"
// @Param advisor query string false "Advisor id filter"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /requests/board [get]
func (h *BoardHandler) Board(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.BoardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindingError(err, "invalid board query"))
		return
	}

	snapshot, stale, err := h.sessions(claims.UserID).Refresh(c.Request.Context(), models.BoardQuery{
		Window:  query.Window,
		Search:  query.Search,
		Status:  query.Status,
		Advisor: query.Advisor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Snapshot(c, dto.BoardResponse{
		Snapshot: snapshot,
		Counts:   service.CountByStatus(snapshot.Requests),
		Stale:    stale,
	}, response.SnapshotMeta{Generation: snapshot.Generation, Stale: stale}, middleware.ExtractMeta(c))
}
