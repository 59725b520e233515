package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iRatG/rasprav-bot/internal/booking"
	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/database"
	"github.com/iRatG/rasprav-bot/internal/flow"
	"github.com/iRatG/rasprav-bot/internal/handlers"
	"github.com/iRatG/rasprav-bot/internal/middleware"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/internal/slots"
	"github.com/iRatG/rasprav-bot/internal/transport"
	"github.com/iRatG/rasprav-bot/pkg/events"
	"github.com/iRatG/rasprav-bot/pkg/logger"
	"github.com/iRatG/rasprav-bot/pkg/scheduler"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run database migrations", "error", err)
	}

	var redisClient *redis.Client
	redisClient, err = database.ConnectRedis(cfg.Redis)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("failed to connect to redis, continuing without it", "error", err)
		} else {
			log.Fatal("failed to connect to redis", "error", err)
		}
	}

	var natsConn *nats.Conn
	var eventPublisher *events.Publisher
	natsConn, err = events.Connect(cfg.NATS)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("failed to connect to nats, continuing without it", "error", err)
			eventPublisher = events.NewNullPublisher(log)
		} else {
			log.Fatal("failed to connect to nats", "error", err)
		}
	} else {
		defer natsConn.Close()
		eventPublisher = events.NewPublisher(natsConn, log)
	}

	masterRepo := repository.NewMasterRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	blackoutRepo := repository.NewBlackoutRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	eventRepo := repository.NewEventRepository(db)

	slotEngine := slots.NewEngine(appointmentRepo, blackoutRepo, cfg.Business)
	bookingEngine := booking.NewEngine(db, appointmentRepo, serviceRepo, reminderRepo, eventRepo, eventPublisher, log)

	transportCli := transport.NewClient(cfg.Bot)

	var flowStore flow.Store
	if redisClient != nil {
		flowStore = flow.NewRedisStore(repository.NewCacheRepository(redisClient))
	} else {
		flowStore = flow.NewMemoryStore()
	}

	controller := flow.NewController(
		clientRepo, masterRepo, serviceRepo, appointmentRepo, eventRepo,
		slotEngine, bookingEngine, transportCli, flowStore, cfg.Business, log,
	)

	cronScheduler := scheduler.New(db, masterRepo, clientRepo, reminderRepo, eventRepo, transportCli, eventPublisher, cfg.Business, log)
	if err := cronScheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", "error", err)
	}
	defer cronScheduler.Stop()

	healthHandler := handlers.NewHealthHandler(db, redisClient, log)
	webhookHandler := handlers.NewWebhookHandler(controller, log)
	adminHandler := handlers.NewAdminHandler(masterRepo, serviceRepo, blackoutRepo, eventRepo, log)
	dashboardHandler := handlers.NewDashboardHandler(appointmentRepo, cfg.Business, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(log))

	router.GET("/health", healthHandler.Health)
	router.GET("/health/live", healthHandler.Liveness)

	webhook := router.Group("/webhook")
	webhook.Use(middleware.RequireWebhookSecret(cfg.Bot.WebhookSecret))
	webhook.POST("", webhookHandler.HandleUpdate)

	admin := router.Group("/admin")
	admin.Use(middleware.RequireMasterAuth(cfg.Bot.Token, masterRepo))
	{
		admin.GET("/profile", adminHandler.GetMasterProfile)
		admin.PUT("/profile", adminHandler.UpdateMasterProfile)
		admin.GET("/services", adminHandler.ListServices)
		admin.POST("/services", adminHandler.CreateService)
		admin.PUT("/services/:serviceId", adminHandler.UpdateService)
		admin.POST("/services/:serviceId/price", adminHandler.SetPrice)
		admin.POST("/blackouts", adminHandler.CreateBlackout)
		admin.GET("/blackouts", adminHandler.ListBlackouts)
		admin.GET("/dashboard", dashboardHandler.Overview)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting booking service", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down booking service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("booking service stopped")
}
