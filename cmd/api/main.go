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

	"github.com/labelgrid/labelgrid-api/internal/config"
	"github.com/labelgrid/labelgrid-api/internal/database"
	"github.com/labelgrid/labelgrid-api/internal/handler"
	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/middleware"
	"github.com/labelgrid/labelgrid-api/internal/models"
	"github.com/labelgrid/labelgrid-api/internal/repository"
	"github.com/labelgrid/labelgrid-api/internal/router"
	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/taskcfg"
	cloud "github.com/labelgrid/labelgrid-api/pkg/cloudinary"
	"github.com/labelgrid/labelgrid-api/pkg/dataset"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	task, err := taskcfg.Load(cfg.TaskConfigPath)
	if err != nil {
		log.Fatalf("failed to load task configuration: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Annotator{},
		&models.Item{},
		&models.Annotation{},
		&models.ActionRecord{},
		&models.TrainingProgress{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var storage service.FileStorage
	if cfg.CloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudName,
			APIKey:    cfg.CloudAPIKey,
			APISecret: cfg.CloudAPISecret,
			Folder:    cfg.CloudFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	annotatorRepo := repository.NewAnnotatorRepository(db)
	itemRepo := repository.NewItemRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	actionRepo := repository.NewActionRecordRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatasetPath != "" {
		if err := seedItems(ctx, cfg.DatasetPath, itemRepo, logger); err != nil {
			log.Fatalf("failed to load dataset: %v", err)
		}
	}

	manager := history.NewManager(logger)
	store := history.NewStore()
	if err := rehydrateStore(ctx, store, actionRepo); err != nil {
		log.Fatalf("failed to restore action history: %v", err)
	}

	feedService := service.NewFeedService(redisClient, "labelgrid", natsConn, logger)
	feedService.Start(ctx)

	annotationService := service.NewAnnotationService(
		annotationRepo, itemRepo, actionRepo, manager, store,
		task, feedService, validate, logger,
	)
	workflowService := service.NewWorkflowService(annotatorRepo, itemRepo, trainingRepo, task, logger)
	trainingService := service.NewTrainingService(annotatorRepo, trainingRepo, task, logger)
	dashboardService := service.NewAdminDashboardService(
		annotatorRepo, annotationRepo, trainingRepo, manager, store,
		task.Suspicion, logger,
	)
	overviewService := service.NewOverviewService(
		annotatorRepo, itemRepo, annotationRepo, store,
		redisClient, cfg.OverviewCacheTTL, logger,
	)
	var mediaHandler *handler.AdminMediaHandler
	if storage != nil {
		mediaService := service.NewMediaService(storage, itemRepo, 50, logger)
		mediaHandler = handler.NewAdminMediaHandler(mediaService, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AdminDashboardHandler: handler.NewAdminDashboardHandler(dashboardService, overviewService, logger),
		AdminFeedHandler:      handler.NewAdminFeedHandler(feedService, logger),
		AdminMediaHandler:     mediaHandler,
		AnnotationHandler:     handler.NewAnnotationHandler(annotationService, logger),
		WorkflowHandler:       handler.NewWorkflowHandler(workflowService, logger),
		TrainingHandler:       handler.NewTrainingHandler(trainingService, logger),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

// seedItems loads the dataset file and upserts every item, so restarts
// with an updated dataset pick up new rows without duplicating old ones.
func seedItems(ctx context.Context, path string, items repository.ItemRepository, logger zerolog.Logger) error {
	loader := dataset.NewLoader(logger)
	loaded, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	batch := make([]models.Item, 0, len(loaded))
	for _, item := range loaded {
		batch = append(batch, models.Item{
			InstanceID: item.ID,
			Text:       item.Text,
			Context:    item.Context,
			MediaURL:   item.MediaURL,
			MediaType:  item.MediaType,
		})
	}

	if err := items.UpsertBatch(ctx, batch); err != nil {
		return err
	}

	logger.Info().Int("count", len(batch)).Str("path", path).Msg("dataset loaded")
	return nil
}

// rehydrateStore replays persisted action records into the in-memory
// history so analytics survive restarts.
func rehydrateStore(ctx context.Context, store *history.Store, actions repository.ActionRecordRepository) error {
	records, err := actions.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		store.Append(record.ToAction())
	}
	return nil
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
