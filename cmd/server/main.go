package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"squeakyknees/internal/comments"
	"squeakyknees/internal/config"
	"squeakyknees/internal/db"
	"squeakyknees/internal/handlers"
	"squeakyknees/internal/idgen"
	"squeakyknees/internal/logger"
	"squeakyknees/internal/moderation"
	"squeakyknees/internal/ratelimit"
	"squeakyknees/internal/router"
	"squeakyknees/internal/sanitize"
	"squeakyknees/internal/services"
)

const memoryStoreCapacity = 100_000

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger.Setup(cfg)
	slog.InfoContext(ctx, "squeakyknees starting", "env", cfg.Environment, "port", cfg.Port)

	if cfg.IsProduction() {
		if cfg.SessionSecret == "secret_key_change_me" {
			slog.ErrorContext(ctx, "SESSION_SECRET must be set in production")
			os.Exit(1)
		}
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	counters, closeCounters := counterStore(ctx, cfg)
	defer closeCounters()

	ids, err := idgen.New(cfg.NodeID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	repo := comments.NewGormRepository(gdb)
	directory, err := services.NewCachedDirectory(services.NewGormDirectory(gdb), 1024, time.Minute)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create directory cache", "error", err)
		os.Exit(1)
	}
	inbox := services.NewInboxNotifier(gdb)

	notifier := services.MultiNotifier{inbox}
	var mail *services.MailNotifier
	if cfg.Mail.ResendAPIKey != "" {
		notifier = append(notifier, services.NewResendNotifier(cfg))
		slog.InfoContext(ctx, "email notifications via resend")
	} else {
		mail = services.NewMailNotifier(cfg)
		notifier = append(notifier, mail)
	}

	svc := services.NewCommentService(
		ratelimit.NewLimiter(counters),
		sanitize.New(),
		comments.NewTree(repo, comments.WithIDGenerator(ids)),
		moderation.NewWorkflow(repo),
		directory,
		notifier,
	)

	engine := router.New(router.Options{
		ServiceName:   "squeakyknees",
		SessionSecret: cfg.SessionSecret,
		Production:    cfg.IsProduction(),
		Users:         directory,
		Unread:        inbox,
	}, router.Handlers{
		Comments:      handlers.NewCommentHandler(svc, directory, cfg.TrustProxy),
		Moderation:    handlers.NewModerationHandler(svc),
		Notifications: handlers.NewNotificationHandler(inbox),
		Health:        handlers.NewHealthHandler(healthChecks(gdb, counters)),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	if mail != nil {
		mail.Wait()
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// counterStore prefers Redis so limits hold across instances. Outside
// production an unreachable Redis falls back to process memory.
func counterStore(ctx context.Context, cfg *config.Config) (ratelimit.CounterStore, func()) {
	client, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err == nil {
		slog.InfoContext(ctx, "redis connected, rate limits are shared")
		return ratelimit.NewRedisStore(client), func() { _ = client.Close() }
	}

	if cfg.IsProduction() {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.WarnContext(ctx, "redis unavailable, using in-memory rate limit counters", "error", err)

	store, err := ratelimit.NewMemoryStore(memoryStoreCapacity)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create memory counter store", "error", err)
		os.Exit(1)
	}
	return store, func() {}
}

func healthChecks(gdb *gorm.DB, counters ratelimit.CounterStore) map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if p, ok := counters.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = p.Ping
	}
	return checks
}
