package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/config"
	"github.com/babypodcast/api/internal/handler"
	"github.com/babypodcast/api/internal/middleware"
	"github.com/babypodcast/api/internal/service"
	"github.com/babypodcast/api/internal/store"
	"github.com/babypodcast/api/internal/worker"
	ws "github.com/babypodcast/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client; inline mode takes over when it is down
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, falling back to inline processing: %v", err)
		redisAvailable = false
		redisClient = nil
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	groqClient := client.NewGroqClient(&cfg.Groq)
	geminiClient := client.NewGeminiClient(&cfg.Gemini)
	speechClient := client.NewSpeechClient(&cfg.ElevenLabs, cfg.Output.AudioDir)
	imageClient := client.NewImageClient(&cfg.OpenAI, cfg.Output.ImagesDir)
	videoClient := client.NewVideoClient(&cfg.Hedra, cfg.Output.VideosDir)

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, keeping artifacts local")
	}

	// Initialize job store and dispatcher
	sceneProcessor := worker.NewSceneProcessor(speechClient, imageClient, videoClient, storageClient)

	var jobStore store.JobStore
	var dispatcher service.Dispatcher
	var asynqClient *asynq.Client
	if redisAvailable {
		jobStore = store.NewRedisStore(redisClient)
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		dispatcher = service.NewAsynqDispatcher(asynqClient)
	} else {
		jobStore = store.NewMemoryStore()
		campaignWorker := worker.NewCampaignWorker(jobStore, sceneProcessor, hub)
		dispatcher = worker.NewInlineDispatcher(campaignWorker)
	}

	// Initialize services
	campaignService := service.NewCampaignService(jobStore, dispatcher)
	scriptService := service.NewScriptService(groqClient)

	// Initialize handlers
	campaignHandler := handler.NewCampaignHandler(campaignService, validate)
	scriptHandler := handler.NewScriptHandler(scriptService, validate)
	podcastHandler := handler.NewPodcastHandler(geminiClient, validate)
	voicesHandler := handler.NewVoicesHandler(speechClient)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"groq":       groqClient.IsConfigured(),
				"gemini":     geminiClient.IsConfigured(),
				"elevenlabs": speechClient.IsConfigured(),
				"openai":     imageClient.IsConfigured(),
				"hedra":      videoClient.IsConfigured(),
				"r2":         storageClient != nil,
				"redis":      redisAvailable,
			},
		})
	})

	// Readiness probe: pings every configured vendor, no side effects.
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		probeCtx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
		defer cancel()
		checks := fiber.Map{
			"elevenlabs": speechClient.Ping(probeCtx),
			"openai":     imageClient.Ping(probeCtx),
			"hedra":      videoClient.Ping(probeCtx),
		}
		return c.JSON(fiber.Map{
			"status": "ok",
			"checks": checks,
		})
	})

	// API routes
	api := app.Group("/api")

	// Campaign routes
	campaigns := api.Group("/campaigns")
	campaigns.Post("/generate", rateLimiter.CampaignLimit(cfg.RateLimit.CampaignsPerHour), campaignHandler.Generate)
	campaigns.Get("/status/:jobId", campaignHandler.Status)
	campaigns.Post("/cancel/:jobId", campaignHandler.Cancel)

	// Script routes
	scripts := api.Group("/scripts", rateLimiter.ScriptLimit(cfg.RateLimit.ScriptsPerMin))
	scripts.Post("/generate", scriptHandler.Generate)

	// Podcast audio routes
	podcasts := api.Group("/podcasts")
	podcasts.Post("/generate", podcastHandler.Generate)

	// Voice listing
	api.Get("/voices", voicesHandler.List)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server when Redis carries the queue
	if redisAvailable {
		go startWorkerServer(cfg, jobStore, sceneProcessor, hub)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobStore store.JobStore,
	sceneProcessor *worker.SceneProcessor,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Scenes within a campaign run sequentially; concurrency
			// only bounds the number of campaigns in flight.
			Concurrency: 4,
			Queues: map[string]int{
				"campaigns": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	campaignWorker := worker.NewCampaignWorker(jobStore, sceneProcessor, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeCampaign, campaignWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
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
