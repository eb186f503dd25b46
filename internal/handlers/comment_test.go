package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/handlers"
	"squeakyknees/internal/middleware"
	"squeakyknees/internal/models"
	"squeakyknees/internal/ratelimit"
	"squeakyknees/internal/services"
)

type failingCommentService struct{}

func (failingCommentService) Submit(context.Context, services.SubmitInput) (*models.Comment, error) {
	return nil, errors.New("connection reset")
}

func (failingCommentService) List(context.Context, int64, models.Viewer) ([]*comments.Node, error) {
	return nil, errors.New("connection reset")
}

func (failingCommentService) RateLimitInfo(context.Context, models.Viewer, string) (ratelimit.Info, error) {
	return ratelimit.Info{}, nil
}

func do(router *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:5555"
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

func textBody(html string) map[string]any {
	return map[string]any{"blocks": []map[string]any{{"type": "text", "html": html}}}
}

var _ = Describe("CommentHandler", func() {
	var (
		router   *gin.Engine
		notifier *countingNotifier
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(asUser())

		notifier = &countingNotifier{}
		svc := newCommentService(notifier)
		h := handlers.NewCommentHandler(svc, directory{}, false)
		m := handlers.NewModerationHandler(svc)

		router.GET("/api/pages/:pid/comments", h.List)
		router.POST("/api/pages/:pid/comments", middleware.AuthRequired(), h.Create)
		router.GET("/api/pages/:pid/comments/rate-limit", h.RateLimit)
		router.POST("/api/moderation/comments/:cid/:action", middleware.StaffRequired(), m.Act)
	})

	It("creates a pending comment and hides it from anonymous readers", func() {
		w := do(router, http.MethodPost, "/api/pages/10/comments", "2", textBody(`<p>hello<script>x()</script></p>`))
		Expect(w.Code).To(Equal(http.StatusCreated))

		c := decode(w)["comment"].(map[string]any)
		Expect(c["status"]).To(Equal("PENDING"))
		Expect(c["content"]).To(Equal([]any{map[string]any{"type": "text", "html": "<p>hello</p>"}}))
		Expect(notifier.owner).To(Equal(1))

		w = do(router, http.MethodGet, "/api/pages/10/comments", "", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["count"]).To(BeEquivalentTo(0))

		w = do(router, http.MethodGet, "/api/pages/10/comments", "2", nil)
		Expect(decode(w)["count"]).To(BeEquivalentTo(1))
	})

	It("nests replies and shows them after approval", func() {
		w := do(router, http.MethodPost, "/api/pages/10/comments", "2", textBody("hello"))
		Expect(w.Code).To(Equal(http.StatusCreated))
		topID := decode(w)["comment"].(map[string]any)["id"].(string)

		w = do(router, http.MethodPost, "/api/pages/10/comments", "2", map[string]any{
			"parent_id": topID,
			"text":      "a **reply**",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(notifier.owner).To(Equal(1))

		w = do(router, http.MethodPost, "/api/moderation/comments/"+topID+"/approve", "3", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(notifier.approved).To(Equal(1))

		w = do(router, http.MethodGet, "/api/pages/10/comments", "", nil)
		forest := decode(w)["comments"].([]any)
		Expect(forest).To(HaveLen(1))
		Expect(forest[0].(map[string]any)["replies"]).To(BeEmpty())

		w = do(router, http.MethodGet, "/api/pages/10/comments", "3", nil)
		forest = decode(w)["comments"].([]any)
		replies := forest[0].(map[string]any)["replies"].([]any)
		Expect(replies).To(HaveLen(1))
		reply := replies[0].(map[string]any)
		Expect(reply["depth"]).To(BeEquivalentTo(1))
		Expect(reply["parent_id"]).To(Equal(topID))
	})

	It("reports validation failures with their reason", func() {
		w := do(router, http.MethodPost, "/api/pages/10/comments", "2", map[string]any{
			"blocks": []map[string]any{{"type": "code", "code": strings.Repeat("x", 10001)}},
		})
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(decode(w)["reason"]).To(Equal("TOO_LONG"))

		w = do(router, http.MethodPost, "/api/pages/10/comments", "2", map[string]any{
			"blocks": []map[string]any{{"type": "video", "url": "x"}},
		})
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(decode(w)["reason"]).To(Equal("MALFORMED"))

		w = do(router, http.MethodPost, "/api/pages/10/comments", "2", map[string]any{"text": "   "})
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(decode(w)["reason"]).To(Equal("EMPTY"))

		w = do(router, http.MethodPost, "/api/pages/10/comments", "2", `{"blocks": [`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("hides tree structure behind a generic error", func() {
		w := do(router, http.MethodPost, "/api/pages/20/comments", "2", textBody("elsewhere"))
		Expect(w.Code).To(Equal(http.StatusCreated))
		otherID := decode(w)["comment"].(map[string]any)["id"].(string)

		for _, parent := range []string{otherID, "999"} {
			body := textBody("hello")
			body["parent_id"] = parent
			w = do(router, http.MethodPost, "/api/pages/10/comments", "2", body)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["error"]).To(Equal("unable to post comment"))
		}
	})

	It("rate limits the eleventh submission", func() {
		for i := 0; i < 10; i++ {
			w := do(router, http.MethodPost, "/api/pages/10/comments", "2", textBody(fmt.Sprintf("comment %d", i)))
			Expect(w.Code).To(Equal(http.StatusCreated))
		}

		w := do(router, http.MethodPost, "/api/pages/10/comments", "2", textBody("one more"))
		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(w.Header().Get("Retry-After")).To(Equal("3600"))
		Expect(decode(w)["error"]).To(Equal("please try again later"))

		w = do(router, http.MethodGet, "/api/pages/10/comments/rate-limit", "2", nil)
		Expect(decode(w)["remaining"]).To(BeEquivalentTo(0))
	})

	It("requires a session to post and an existing page", func() {
		w := do(router, http.MethodPost, "/api/pages/10/comments", "", textBody("hello"))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))

		w = do(router, http.MethodGet, "/api/pages/404/comments", "", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(router, http.MethodGet, "/api/pages/abc/comments", "", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 500 with a trace id when the service fails", func() {
		r := gin.New()
		h := handlers.NewCommentHandler(failingCommentService{}, nil, false)
		r.GET("/api/pages/:pid/comments", h.List)

		w := do(r, http.MethodGet, "/api/pages/10/comments", "", nil)
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(decode(w)["trace_id"]).NotTo(BeEmpty())
	})
})
