package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grievancedesk/backend/internal/api/handler"
	"grievancedesk/backend/internal/config"
	"grievancedesk/backend/internal/dashboard"
	"grievancedesk/backend/internal/feedback"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/notification"
	"grievancedesk/backend/internal/realtime"
	"grievancedesk/backend/internal/remark"
	"grievancedesk/backend/internal/scheduler"
	"grievancedesk/backend/internal/storage"
	"grievancedesk/backend/internal/telegram"
	"grievancedesk/backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()
	log.Info("Starting grievance desk backend...")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = storage.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
		defer rdb.Close()
	}
	store := storage.NewStorageService(db, rdb)
	log.Info("Database connections established, migrations complete.")

	// 2. Realtime hub; with Redis every instance's hub is fed from pub/sub.
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	var publisher realtime.Publisher = hub
	if rdb != nil {
		publisher = realtime.NewRedisPublisher(store)
		go hub.Listen(ctx, store.SubscribeEvents(ctx, realtime.ChannelPattern))
	}

	// 3. Optional Telegram push
	var push notification.PushSender
	var telegramLinks handler.TelegramLinker
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("Failed to start Telegram bot: %v", err)
		}
		push = telegram.NewPushSender(bot, log)
		telegramLinks = telegram.NewLinkCodes(store)
		go telegram.NewBotService(bot, store, log).Run(ctx)
	}

	// 4. Services
	notifications := notification.NewService(store, publisher, push, log)
	flow := workflow.NewService(store, notifications, publisher, log)
	remarks := remark.NewService(store, flow, notifications, publisher, log)
	ratings := feedback.NewService(store, flow, log)
	dashboards := dashboard.NewService(store)

	retention := scheduler.NewRetentionScheduler(notifications, cfg.NotificationPurgeCron, cfg.NotificationRetentionDays, log)
	if err := retention.Start(); err != nil {
		log.Fatalf("Failed to start retention scheduler: %v", err)
	}
	defer retention.Stop()

	// 5. HTTP
	h := handler.NewHandler(handler.Deps{
		Workflow:      flow,
		Remarks:       remarks,
		Notifications: notifications,
		Feedback:      ratings,
		Dashboards:    dashboards,
		Health:        store,
		Hub:           hub,
		TelegramLinks: telegramLinks,
		JWTSecret:     []byte(cfg.JWTSecret),
		Log:           log,
	})

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        h.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
