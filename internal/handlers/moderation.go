package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"squeakyknees/internal/middleware"
	"squeakyknees/internal/models"
	"squeakyknees/internal/moderation"
)

type ModerationService interface {
	Moderate(ctx context.Context, id int64, action moderation.Action, actor models.Viewer) (*models.Comment, error)
	ModerateBulk(ctx context.Context, ids []int64, action moderation.Action, actor models.Viewer) (moderation.BulkResult, error)
	Queue(ctx context.Context, actor models.Viewer, limit int) ([]*models.Comment, error)
	Delete(ctx context.Context, id int64, actor models.Viewer) (int64, error)
}

type ModerationHandler struct {
	svc ModerationService
}

func NewModerationHandler(svc ModerationService) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

// Queue lists pending comments, newest first.
func (h *ModerationHandler) Queue(c *gin.Context) {
	pending, err := h.svc.Queue(c.Request.Context(), middleware.CurrentViewer(c), queryLimit(c, 50))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": pending, "count": len(pending)})
}

// Act handles POST /:cid/:action.
func (h *ModerationHandler) Act(c *gin.Context) {
	id, ok := paramID(c, "cid")
	if !ok {
		return
	}
	action, err := moderation.ParseAction(c.Param("action"))
	if err != nil {
		RespondError(c, err)
		return
	}

	comment, err := h.svc.Moderate(c.Request.Context(), id, action, middleware.CurrentViewer(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

type bulkRequest struct {
	IDs    []ID   `json:"ids" binding:"required,min=1,max=500"`
	Action string `json:"action" binding:"required"`
}

type skippedItem struct {
	ID     ID     `json:"id"`
	Reason string `json:"reason"`
}

func (h *ModerationHandler) Bulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	action, err := moderation.ParseAction(req.Action)
	if err != nil {
		RespondError(c, err)
		return
	}

	ids := make([]int64, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = int64(id)
	}

	res, err := h.svc.ModerateBulk(c.Request.Context(), ids, action, middleware.CurrentViewer(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	skipped := make([]skippedItem, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, skippedItem{ID: ID(s.CommentID), Reason: s.Err.Error()})
	}
	changed := res.Changed
	if changed == nil {
		changed = []*models.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "skipped": skipped})
}

// Delete removes a comment and all of its replies.
func (h *ModerationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "cid")
	if !ok {
		return
	}

	n, err := h.svc.Delete(c.Request.Context(), id, middleware.CurrentViewer(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
