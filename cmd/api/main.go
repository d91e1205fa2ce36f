package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/config"
	"github.com/nattapong2005/codementorai/internal/database"
	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/handler"
	"github.com/nattapong2005/codementorai/internal/i18n"
	"github.com/nattapong2005/codementorai/internal/middleware"
	"github.com/nattapong2005/codementorai/internal/repository"
	"github.com/nattapong2005/codementorai/internal/router"
	"github.com/nattapong2005/codementorai/internal/service"
	"github.com/nattapong2005/codementorai/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis url not set, analysis cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	} else {
		logger.Warn().Msg("nats url not set, domain events disabled")
	}

	catalog, err := i18n.New(cfg.DefaultLocale, logger)
	if err != nil {
		log.Fatalf("failed to load translations: %v", err)
	}

	var generator ai.Generator
	openAI, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("ai generator disabled, submissions will receive fallback feedback")
	} else {
		generator = openAI
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)

	var broker service.MessagePublisher
	if natsConn != nil {
		broker = natsConn
	}
	events := service.NewEventPublisher(broker, cfg.EventsChannel, logger)
	cache := service.NewAnalysisCache(redisClient, cfg.AnalysisCacheTTL, logger)
	grader := grading.NewGrader(generator, catalog, logger)

	classroomService := service.NewClassroomService(classroomRepo, cache, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, classroomRepo, cache, validate, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceDeps{
		Submissions: submissionRepo,
		Assignments: assignmentRepo,
		Classrooms:  classroomRepo,
		Grader:      grader,
		Events:      events,
		Cache:       cache,
		Validator:   validate,
		Logger:      logger,
	})
	analysisService := service.NewAnalysisService(service.AnalysisServiceDeps{
		Analyses:    analysisRepo,
		Assignments: assignmentRepo,
		Submissions: submissionRepo,
		Classrooms:  classroomRepo,
		Generator:   generator,
		Cache:       cache,
		Events:      events,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Must exceed the AI timeout.
		WriteTimeout: cfg.AITimeout + 15*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, Locale: catalog.Middleware(), AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		ClassroomHandler:  handler.NewClassroomHandler(classroomService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		AnalysisHandler:   handler.NewAnalysisHandler(analysisService, catalog, logger),
		HealthProbes:      probes,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
