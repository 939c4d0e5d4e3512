package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"team_inbox/internal/channel"
	"team_inbox/internal/config"
	"team_inbox/internal/domain"
	"team_inbox/internal/events"
	"team_inbox/internal/handler"
	"team_inbox/internal/middleware"
	"team_inbox/internal/realtime"
	"team_inbox/internal/repository"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	providerClient := channel.NewClient(cfg.Provider, appLogger)
	registry := channel.NewRegistry(appLogger)
	channel.RegisterAll(registry, providerClient, appLogger)

	publisher, err := events.NewPublisher(cfg.AMQP, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to AMQP broker", "error", err)
	}
	defer publisher.Close()

	presence := realtime.NewPresenceService(cfg.Realtime.PresenceTTL, cfg.Realtime.PresenceSweep, appLogger)
	presence.Start()
	defer presence.Stop()

	hub := realtime.NewHub(presence, cfg.Realtime.HeartbeatInterval, cfg.Realtime.PongWait, appLogger)
	docs := realtime.NewDocHub(cfg.Realtime.HeartbeatInterval, cfg.Realtime.PongWait, appLogger)

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go hub.Run(runCtx)

	services := service.NewServices(repos, registry, hub, publisher, cfg, appLogger)

	sweeper := service.NewSweeper(services.Schedule, cfg.Scheduler.SweepInterval, appLogger)
	go sweeper.Run(runCtx)

	registerProviderWebhooks(runCtx, registry, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, registry, hub, docs, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

// registerProviderWebhooks points the provider's callbacks at this
// deployment. Skipped when no public callback URL is configured.
func registerProviderWebhooks(ctx context.Context, registry *channel.Registry, cfg *config.Config, log logger.Logger) {
	if cfg.Provider.CallbackURL == "" {
		log.Info("PROVIDER_CALLBACK_URL is not set, skipping webhook registration")
		return
	}

	for _, ch := range registry.Channels() {
		integration, err := registry.Integration(ch)
		if err != nil {
			continue
		}

		webhookCfg := domain.WebhookConfig{
			CallbackURL: cfg.Provider.CallbackURL + "/webhooks/" + string(ch),
			StatusURL:   cfg.Provider.CallbackURL + "/webhooks/" + string(ch),
		}
		if err := integration.SetupWebhook(ctx, webhookCfg); err != nil {
			log.Error("Failed to register webhook", "error", err, "channel", ch)
			continue
		}
		log.Info("Webhook registered", "channel", ch, "url", webhookCfg.CallbackURL)
	}
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/server-info", handlers.Health.ServerInfo)

	// Provider ingress; authenticated by signature, not JWT.
	router.POST("/webhooks/:channel", rateLimitMiddleware.Limit(300, time.Minute), handlers.Webhook.Receive)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		{
			public.POST("/dev-token", rateLimitMiddleware.Limit(10, time.Minute), handlers.Auth.DevToken)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		protected.Use(rateLimitMiddleware.Limit(100, time.Minute))
		{
			contacts := protected.Group("/contacts")
			{
				contacts.POST("", handlers.Contact.Create)
				contacts.GET("", handlers.Contact.List)
				contacts.GET("/:id", handlers.Contact.GetByID)
			}

			conversations := protected.Group("/conversations")
			{
				conversations.GET("", handlers.Conversation.List)
				conversations.GET("/:id", handlers.Conversation.GetByID)
				conversations.PATCH("/:id", handlers.Conversation.Update)
				conversations.GET("/:id/messages", handlers.Conversation.GetMessages)
				conversations.POST("/:id/call/token", handlers.Call.GetToken)
			}

			messages := protected.Group("/messages")
			{
				messages.POST("", handlers.Message.Send)
				messages.GET("", handlers.Message.List)
				messages.GET("/search", handlers.Message.Search)
				messages.GET("/stats", handlers.Message.Stats)
				messages.GET("/:id", handlers.Message.GetByID)
			}

			channels := protected.Group("/channels")
			{
				channels.POST("/:channel/webhook", handlers.Webhook.Setup)
			}

			scheduled := protected.Group("/scheduled-messages")
			{
				scheduled.POST("", handlers.Schedule.Create)
				scheduled.GET("", handlers.Schedule.List)
				scheduled.POST("/sweep", handlers.Schedule.Sweep)
				scheduled.GET("/:id", handlers.Schedule.GetByID)
				scheduled.PUT("/:id", handlers.Schedule.Update)
				scheduled.DELETE("/:id", handlers.Schedule.Cancel)
			}
		}
	}

	// WebSocket endpoints authenticate via the token query parameter.
	ws := router.Group("/ws")
	ws.Use(authMiddleware.RequireAuth())
	{
		ws.GET("/inbox", handlers.WebSocket.HandleInbox)
		ws.GET("/docs/:id", handlers.WebSocket.HandleDocument)
	}

	return router
}
