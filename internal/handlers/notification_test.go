package handlers_test

import (
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"squeakyknees/internal/handlers"
	"squeakyknees/internal/middleware"
	"squeakyknees/internal/models"
)

var _ = Describe("NotificationHandler", func() {
	var (
		router *gin.Engine
		inbox  *memInbox
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(asUser())

		inbox = &memInbox{items: []models.Notification{
			{ID: 1, UserID: 1, Type: models.NotificationTypeCommentPage, Reason: "New comment on: Knee Day"},
			{ID: 2, UserID: 1, Type: models.NotificationTypeCommentPage, Reason: "New comment on: Knee Day"},
			{ID: 3, UserID: 2, Type: models.NotificationTypeCommentApproved, Reason: "approved"},
		}}
		h := handlers.NewNotificationHandler(inbox)

		g := router.Group("/api/notifications", middleware.AuthRequired())
		g.GET("", h.List)
		g.POST("/read-all", h.ReadAll)
		g.POST("/:id/read", h.Read)
	})

	It("lists only the caller's notifications", func() {
		w := do(router, http.MethodGet, "/api/notifications", "1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		resp := decode(w)
		Expect(resp["notifications"]).To(HaveLen(2))
		Expect(resp["unread"]).To(BeEquivalentTo(2))

		w = do(router, http.MethodGet, "/api/notifications", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("marks one or all as read", func() {
		w := do(router, http.MethodPost, "/api/notifications/1/read", "1", nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = do(router, http.MethodPost, "/api/notifications/3/read", "1", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(router, http.MethodPost, "/api/notifications/x/read", "1", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(router, http.MethodPost, "/api/notifications/read-all", "1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["marked"]).To(BeEquivalentTo(1))
	})
})
