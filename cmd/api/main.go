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
	"github.com/spf13/afero"

	"github.com/noah-isme/gema-grader-api/internal/config"
	"github.com/noah-isme/gema-grader-api/internal/database"
	"github.com/noah-isme/gema-grader-api/internal/grading"
	"github.com/noah-isme/gema-grader-api/internal/handler"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/repository"
	"github.com/noah-isme/gema-grader-api/internal/router"
	"github.com/noah-isme/gema-grader-api/internal/service"
	"github.com/noah-isme/gema-grader-api/pkg/ai"
	cloud "github.com/noah-isme/gema-grader-api/pkg/cloudinary"
	"github.com/noah-isme/gema-grader-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, answer keys will be built per submission")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	documentStore, err := buildDocumentStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise document storage")
	}

	engines, closeEngines := buildEngines(cfg, logger)
	defer closeEngines()

	validate := validator.New(validator.WithRequiredStructEnabled())
	repoOpts := repository.Options{Locks: repository.NewWriterLocks(), Validator: validate}

	assignmentRepo := repository.NewAssignmentRepository(db, repoOpts)
	submissionRepo := repository.NewSubmissionRepository(db, repoOpts)
	paperRepo := repository.NewPaperRepository(db, repoOpts)

	documentService := service.NewDocumentService(documentStore, logger)
	gradingService := service.NewGradingService(service.GradingConfig{
		Assignments:  assignmentRepo,
		Submissions:  submissionRepo,
		Papers:       paperRepo,
		Documents:    documentService,
		Engines:      engines,
		Keys:         service.NewRedisKeyCache(redisClient, cfg.KeyCacheTTL, logger),
		Events:       service.NewNATSPublisher(natsConn, cfg.NATSSubject, logger),
		Validator:    validate,
		StageTimeout: cfg.StageTimeout,
		Logger:       logger,
	})
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, logger)
	paperService := service.NewPaperService(paperRepo, validate, logger)
	documentAccess := service.NewDocumentAccessService(documentService, assignmentRepo, submissionRepo, paperRepo, logger)

	maxUpload := int64(cfg.UploadMaxBytes)
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(2*maxUpload) + 1<<20,
		ReadTimeout:  30 * time.Second,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(gradingService, assignmentService, submissionService, maxUpload, logger),
		SubmissionHandler: handler.NewSubmissionHandler(gradingService, submissionService, maxUpload, logger),
		PaperHandler:      handler.NewPaperHandler(gradingService, paperService, maxUpload, logger),
		DocumentHandler:   handler.NewDocumentHandler(documentAccess, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		GradingLimiter:    middleware.RateLimit("grading", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("grader", cfg.GraderProvider).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func buildDocumentStore(cfg config.Config, logger zerolog.Logger) (storage.DocumentStore, error) {
	if cfg.StorageDriver == "cloudinary" {
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	}
	return storage.NewLocal(afero.NewOsFs(), cfg.StorageDir, logger)
}

// buildEngines wires Gemini for the document stages and, when configured,
// OpenAI for grading. Missing credentials leave the stages unavailable so
// the API still serves stored records.
func buildEngines(cfg config.Config, logger zerolog.Logger) (grading.Engines, func()) {
	engines := ai.UnavailableEngines()
	closer := func() {}

	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiEngine(context.Background(), ai.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Endpoint: cfg.GeminiEndpoint,
			Logger:   logger,
		})
		if err != nil {
			logger.Error().Err(err).Msg("gemini engine unavailable")
		} else {
			engines = gemini.Engines()
			closer = func() { _ = gemini.Close() }
		}
	} else {
		logger.Warn().Msg("gemini api key not set, document stages disabled")
	}

	if cfg.GraderProvider == "openai" {
		grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Error().Err(err).Msg("openai grader unavailable")
			engines.Grader = ai.Unavailable{}
		} else {
			engines.Grader = grader
		}
	}

	return engines, closer
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
