package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"squeakyknees/internal/middleware"
	"squeakyknees/internal/services"
)

type NotificationHandler struct {
	inbox services.Inbox
}

func NewNotificationHandler(inbox services.Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	notifications, err := h.inbox.List(c.Request.Context(), user.ID, queryLimit(c, 50))
	if err != nil {
		RespondError(c, err)
		return
	}
	unread, err := h.inbox.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), user.ID, uint(id)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	n, err := h.inbox.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
