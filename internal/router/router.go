package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"squeakyknees/internal/handlers"
	"squeakyknees/internal/middleware"
)

const sessionName = "squeakyknees_session"

type Handlers struct {
	Comments      *handlers.CommentHandler
	Moderation    *handlers.ModerationHandler
	Notifications *handlers.NotificationHandler
	Health        *handlers.HealthHandler
}

type Options struct {
	ServiceName   string
	SessionSecret string
	Production    bool
	Users         middleware.UserLookup
	Unread        middleware.UnreadCounter
}

// New builds the engine. Order matters: OTel creates the span, Recovery
// catches panics, Logger logs with trace context.
func New(opts Options, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.SecurityHeaders(opts.Production))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   opts.Production,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(opts.Users, opts.Unread))

	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/healthz", h.Health.Health)

	api := r.Group("/api")

	// Public routes
	api.GET("/pages/:pid/comments", h.Comments.List)                 // comment forest of a page
	api.GET("/pages/:pid/comments/rate-limit", h.Comments.RateLimit) // remaining comment attempts

	// Protected routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/pages/:pid/comments", h.Comments.Create) // submit a comment

		authorized.GET("/notifications", h.Notifications.List)              // my notifications
		authorized.POST("/notifications/:id/read", h.Notifications.Read)    // mark one as read
		authorized.POST("/notifications/read-all", h.Notifications.ReadAll) // mark all as read
	}

	// Moderation routes
	moderation := api.Group("/moderation/comments")
	moderation.Use(middleware.StaffRequired())
	{
		moderation.GET("", h.Moderation.Queue)             // pending queue
		moderation.POST("/bulk", h.Moderation.Bulk)        // bulk approve/reject
		moderation.POST("/:cid/:action", h.Moderation.Act) // approve / reject
		moderation.DELETE("/:cid", h.Moderation.Delete)    // delete a comment and its replies
	}
}
