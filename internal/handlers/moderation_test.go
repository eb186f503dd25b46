package handlers_test

import (
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"squeakyknees/internal/handlers"
	"squeakyknees/internal/middleware"
)

var _ = Describe("ModerationHandler", func() {
	var (
		router   *gin.Engine
		notifier *countingNotifier
		ids      []string
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(asUser())

		notifier = &countingNotifier{}
		svc := newCommentService(notifier)
		c := handlers.NewCommentHandler(svc, directory{}, false)
		h := handlers.NewModerationHandler(svc)

		router.GET("/api/pages/:pid/comments", c.List)
		router.POST("/api/pages/:pid/comments", middleware.AuthRequired(), c.Create)

		// no StaffRequired here: the service must refuse non-staff on its own
		mod := router.Group("/api/moderation/comments")
		mod.GET("", h.Queue)
		mod.POST("/bulk", h.Bulk)
		mod.POST("/:cid/:action", h.Act)
		mod.DELETE("/:cid", h.Delete)

		ids = nil
		for i := 0; i < 3; i++ {
			w := do(router, http.MethodPost, "/api/pages/10/comments", "2", textBody("hello"))
			Expect(w.Code).To(Equal(http.StatusCreated))
			ids = append(ids, decode(w)["comment"].(map[string]any)["id"].(string))
		}
	})

	It("lists the pending queue for staff only", func() {
		w := do(router, http.MethodGet, "/api/moderation/comments", "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["count"]).To(BeEquivalentTo(3))

		w = do(router, http.MethodGet, "/api/moderation/comments", "2", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("approves, rejects and reports conflicts", func() {
		w := do(router, http.MethodPost, "/api/moderation/comments/"+ids[0]+"/approve", "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["comment"].(map[string]any)["status"]).To(Equal("APPROVED"))
		Expect(notifier.approved).To(Equal(1))

		w = do(router, http.MethodPost, "/api/moderation/comments/"+ids[0]+"/approve", "3", nil)
		Expect(w.Code).To(Equal(http.StatusConflict))
		resp := decode(w)
		Expect(resp["already_in_state"]).To(BeTrue())
		Expect(notifier.approved).To(Equal(1))

		w = do(router, http.MethodPost, "/api/moderation/comments/"+ids[1]+"/reject", "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(notifier.approved).To(Equal(1))

		w = do(router, http.MethodPost, "/api/moderation/comments/"+ids[1]+"/approve", "3", nil)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(decode(w)["already_in_state"]).To(BeFalse())
	})

	It("refuses non-staff and unknown actions", func() {
		w := do(router, http.MethodPost, "/api/moderation/comments/"+ids[0]+"/approve", "2", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = do(router, http.MethodPost, "/api/moderation/comments/"+ids[0]+"/publish", "3", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(router, http.MethodPost, "/api/moderation/comments/123/approve", "3", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("bulk approves and skips resolved items", func() {
		w := do(router, http.MethodPost, "/api/moderation/comments/"+ids[0]+"/reject", "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(router, http.MethodPost, "/api/moderation/comments/bulk", "3", map[string]any{
			"ids":    []string{ids[0], ids[1], ids[2]},
			"action": "approve",
		})
		Expect(w.Code).To(Equal(http.StatusOK))
		resp := decode(w)
		Expect(resp["changed"]).To(HaveLen(2))
		Expect(resp["skipped"]).To(HaveLen(1))
		Expect(notifier.approved).To(Equal(2))

		w = do(router, http.MethodPost, "/api/moderation/comments/bulk", "3", map[string]any{"ids": []string{}, "action": "approve"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("deletes a comment with its replies", func() {
		body := textBody("reply")
		body["parent_id"] = ids[0]
		w := do(router, http.MethodPost, "/api/pages/10/comments", "2", body)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(router, http.MethodDelete, "/api/moderation/comments/"+ids[0], "2", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = do(router, http.MethodDelete, "/api/moderation/comments/"+ids[0], "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["deleted"]).To(BeEquivalentTo(2))

		w = do(router, http.MethodGet, "/api/pages/10/comments", "3", nil)
		Expect(decode(w)["count"]).To(BeEquivalentTo(2))

		w = do(router, http.MethodDelete, "/api/moderation/comments/"+ids[0], "3", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
