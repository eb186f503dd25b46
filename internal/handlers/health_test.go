package handlers_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"squeakyknees/internal/handlers"
)

var _ = Describe("HealthHandler", func() {
	It("reports 503 when a check fails", func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		h := handlers.NewHealthHandler(map[string]handlers.Check{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		router.GET("/healthz", h.Health)

		w := do(router, http.MethodGet, "/healthz", "", nil)
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		checks := decode(w)["checks"].(map[string]any)
		Expect(checks["database"]).To(Equal("ok"))
		Expect(checks["redis"]).To(Equal("connection refused"))
	})
})
