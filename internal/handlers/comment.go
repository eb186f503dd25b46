package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/middleware"
	"squeakyknees/internal/models"
	"squeakyknees/internal/ratelimit"
	"squeakyknees/internal/sanitize"
	"squeakyknees/internal/services"
)

type CommentService interface {
	Submit(ctx context.Context, in services.SubmitInput) (*models.Comment, error)
	List(ctx context.Context, pageID int64, viewer models.Viewer) ([]*comments.Node, error)
	RateLimitInfo(ctx context.Context, author models.Viewer, clientAddr string) (ratelimit.Info, error)
}

type PageLookup interface {
	Page(ctx context.Context, id int64) (*models.Page, error)
}

type CommentHandler struct {
	svc        CommentService
	pages      PageLookup
	trustProxy bool
}

func NewCommentHandler(svc CommentService, pages PageLookup, trustProxy bool) *CommentHandler {
	return &CommentHandler{svc: svc, pages: pages, trustProxy: trustProxy}
}

type createCommentRequest struct {
	ParentID *ID            `json:"parent_id"`
	Blocks   json.RawMessage `json:"blocks"`
	// Text is the fallback body for clients without a block editor.
	Text   string `json:"text"`
	Format string `json:"format"`
}

// List returns the comment forest of a page as the current viewer sees it.
func (h *CommentHandler) List(c *gin.Context) {
	pageID, ok := h.page(c)
	if !ok {
		return
	}

	forest, err := h.svc.List(c.Request.Context(), pageID, middleware.CurrentViewer(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	count := 0
	comments.Walk(forest, func(*comments.Node) { count++ })
	c.JSON(http.StatusOK, gin.H{"comments": forest, "count": count})
}

func (h *CommentHandler) Create(c *gin.Context) {
	pageID, ok := h.page(c)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	blocks, err := req.rawBlocks()
	if err != nil {
		RespondError(c, err)
		return
	}

	in := services.SubmitInput{
		PageID:     pageID,
		Author:     middleware.CurrentViewer(c),
		Blocks:     blocks,
		ClientAddr: h.clientAddr(c),
	}
	if req.ParentID != nil {
		pid := int64(*req.ParentID)
		in.ParentID = &pid
	}

	comment, err := h.svc.Submit(c.Request.Context(), in)
	if err != nil {
		// don't leak tree structure to the caller
		if errors.Is(err, comments.ErrNotFound) || errors.Is(err, comments.ErrCrossPageParent) {
			badRequest(c, "unable to post comment")
			return
		}
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"comment": comment,
		"message": "Your comment has been submitted and is awaiting moderation.",
	})
}

// RateLimit reports the comment allowance left for the caller.
func (h *CommentHandler) RateLimit(c *gin.Context) {
	info, err := h.svc.RateLimitInfo(c.Request.Context(), middleware.CurrentViewer(c), h.clientAddr(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"remaining":        info.Remaining,
		"reset_in_seconds": int(math.Ceil(info.ResetIn.Seconds())),
	})
}

func (h *CommentHandler) page(c *gin.Context) (int64, bool) {
	pageID, ok := paramID(c, "pid")
	if !ok {
		return 0, false
	}
	if h.pages != nil {
		if _, err := h.pages.Page(c.Request.Context(), pageID); err != nil {
			RespondError(c, err)
			return 0, false
		}
	}
	return pageID, true
}

func (h *CommentHandler) clientAddr(c *gin.Context) string {
	return ratelimit.ClientAddress(c.Request.RemoteAddr, c.GetHeader("X-Forwarded-For"), h.trustProxy)
}

func (r *createCommentRequest) rawBlocks() ([]sanitize.RawBlock, error) {
	if len(r.Blocks) > 0 && string(r.Blocks) != "null" {
		return sanitize.ParseRawBlocks(r.Blocks)
	}
	if strings.EqualFold(r.Format, "plain") {
		return sanitize.FromPlainText(r.Text), nil
	}
	return sanitize.FromMarkdown(r.Text), nil
}
