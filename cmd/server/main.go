package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/freshrecipes/studio/internal/auth"
	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/handler"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/middleware"
	"github.com/freshrecipes/studio/internal/service"
	"github.com/freshrecipes/studio/internal/upload"
	ws "github.com/freshrecipes/studio/internal/websocket"
	"github.com/freshrecipes/studio/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis not available", "error", err)
	}

	// Initialize Asynq client; without a queue uploads run in-process
	var asynqClient *asynq.Client
	if cfg.Queue.Enabled {
		asynqClient = asynq.NewClient(redisOpt(cfg))
		defer asynqClient.Close()
	}

	validate := validator.New()
	m := metrics.New()

	// Initialize external clients
	nutritionClient := client.NewNutritionClient(&cfg.Nutrition)
	backendClient := client.NewBackendClient(&cfg.Backend)
	ffmpeg := client.NewFFmpeg(&cfg.Media)

	storage, err := client.NewStorage(cfg, backendClient)
	if err != nil {
		log.Error("media host not initialized", "provider", cfg.Storage.Provider, "error", err)
		os.Exit(1)
	}

	// Initialize OIDC JWKS verifier (optional - falls back to HMAC tokens)
	var tokenVerifier auth.TokenVerifier
	if cfg.OIDC.Issuer != "" {
		v, err := auth.NewJWKSVerifier(&cfg.OIDC)
		if err != nil {
			log.Warn("JWKS verifier not initialized", "error", err)
		} else {
			tokenVerifier = v
		}
	}
	authenticator := auth.NewAuthenticator(tokenVerifier, cfg.JWT.Secret)

	// Upload status fan-out
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	status := upload.NewStatusStore()
	status.Subscribe(hub.BroadcastStatus)
	status.Subscribe(service.NewStatusMirror(redisClient, log).Write)

	// Initialize services
	studioService := service.NewStudioService(nutritionClient, ffmpeg, cfg, log, m)
	pipeline := upload.NewPipeline(storage, storage, backendClient, status, log, m)
	uploadService := service.NewUploadService(studioService, pipeline, status, asynqClient, redisClient, log)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind the gateway: auth is handled by ForwardAuth, read X-User-* headers
		log.Info("gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(authenticator).Authenticate()
	}

	routes := &handler.Routes{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"nutrition": handler.Configured(nutritionClient.IsConfigured),
			"backend":   handler.Configured(backendClient.IsConfigured),
			"storage":   handler.Configured(storage.IsConfigured),
			"ffmpeg":    handler.Configured(ffmpeg.IsConfigured),
			"redis": func(ctx context.Context) bool {
				return redisClient.Ping(ctx).Err() == nil
			},
			"auth": handler.Configured(func() bool { return tokenVerifier != nil || cfg.JWT.Secret != "" }),
		}),
		Studio:    handler.NewStudioHandler(studioService, validate),
		Upload:    handler.NewUploadHandler(studioService, uploadService),
		Auth:      handler.NewAuthHandler(authenticator),
		Websocket: handler.NewWebsocketHandler(hub, uploadService),
		APIAuth:   apiAuthMiddleware,
		Limiter:   middleware.NewRateLimiter(redisClient),
		Limits:    cfg.RateLimit,
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Debug("debug logging enabled")
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler(func() {
		m.SetActiveSessions(studioService.Count())
	})))

	routes.Register(app)

	// Start Asynq worker server
	if cfg.Queue.Enabled {
		go startWorkerServer(ctx, cfg, uploadService, log)
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info("server starting", "addr", addr, "storage", cfg.Storage.Provider, "queue", cfg.Queue.Enabled)
	if err := app.Listen(addr); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func startWorkerServer(ctx context.Context, cfg *config.Config, uploads *service.UploadService, log *slog.Logger) {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			service.QueueUploads: 1,
		},
		LogLevel: asynqLogLevel,
	})

	uploadWorker := worker.NewUploadWorker(uploads, log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeUpload, uploadWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Error("asynq worker error", "error", err)
		return
	}
	<-ctx.Done()
	srv.Shutdown()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
