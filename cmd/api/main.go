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
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/config"
	"github.com/medico-project/medico-go-api/internal/database"
	"github.com/medico-project/medico-go-api/internal/handler"
	"github.com/medico-project/medico-go-api/internal/middleware"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
	"github.com/medico-project/medico-go-api/internal/router"
	"github.com/medico-project/medico-go-api/internal/service"
	cloud "github.com/medico-project/medico-go-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Thread{},
		&models.Message{},
		&models.UserLink{},
		&models.Appointment{},
		&models.Article{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis and NATS are optional: without them the broker degrades to
	// single-node delivery.
	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without redis bridge")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, running without nats bridge")
		natsConn = nil
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var uploader service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		cloudinaryService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudinaryService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	articleRepo := repository.NewArticleRepository(db)

	brokerCtx, cancelBroker := context.WithCancel(context.Background())
	defer cancelBroker()

	broker := service.NewRoomBroker(redisClient, cfg.RealtimeChannelBase, natsConn, logger)
	broker.Start(brokerCtx)

	guard := service.NewAccessGuard(linkRepo, logger)
	dispatcher := service.NewEventDispatcher(broker, logger)

	chatService := service.NewChatService(threadRepo, messageRepo, guard, broker, validate, cfg.KeepAliveInterval, logger)
	notificationService := service.NewNotificationService(guard, broker, cfg.KeepAliveInterval, logger)
	threadService := service.NewThreadService(threadRepo, messageRepo, linkRepo, userRepo, validate, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, dispatcher, validate, logger)
	linkService := service.NewLinkService(linkRepo, userRepo, dispatcher, validate, logger)
	articleService := service.NewArticleService(articleRepo, userRepo, uploader, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler:         handler.NewChatHandler(chatService, validate, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		ThreadHandler:       handler.NewThreadHandler(threadService, logger),
		AppointmentHandler:  handler.NewAppointmentHandler(appointmentService, logger),
		LinkHandler:         handler.NewLinkHandler(linkService, logger),
		ArticleHandler:      handler.NewArticleHandler(articleService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret, userRepo),
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
