package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventlottery/config"
	_ "eventlottery/docs"
	"eventlottery/internal/adapters/auth"
	"eventlottery/internal/adapters/email"
	"eventlottery/internal/adapters/notify"
	httpdelivery "eventlottery/internal/delivery/http"
	"eventlottery/internal/delivery/http/controllers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/repository/postgres"
	"eventlottery/internal/services"
)

const contextTimeout = 10 * time.Second

// @title Event Lottery API
// @version 1.0
// @description Capacity-constrained event enrollment with waitlists, lottery draws, and invitations.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	waitlistRepo := postgres.NewWaitlistRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	drawRepo := postgres.NewDrawRepository(db)
	ledger := postgres.NewCapacityLedger(db)
	watcher := postgres.NewWaitlistWatcher(cfg.DBUrl, waitlistRepo, logger)

	// Adapters
	notifier := notify.NewNotifier(notify.Config{
		Provider:   cfg.NotifierProvider,
		WebhookURL: cfg.NotifierWebhookURL,
	}, &http.Client{Timeout: 10 * time.Second}, logger)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:             cfg.SESRegion,
			AccessKeyID:        cfg.SESAccessKeyID,
			SecretAccessKey:    cfg.SESSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureSkipTLS,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	// Services
	dispatcher := services.NewNotificationDispatcher(notifier, logger)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())
	eventService := services.NewEventService(eventRepo, waitlistRepo, ledger, dispatcher, contextTimeout)
	waitlistService := services.NewWaitlistService(eventRepo, waitlistRepo, contextTimeout)
	lotteryService := services.NewLotteryService(eventRepo, drawRepo, dispatcher, emailService, logger, contextTimeout)
	invitationService := services.NewInvitationService(eventRepo, invitationRepo, dispatcher, logger, contextTimeout)

	// Controllers and router
	eventController := controllers.NewEventController(logger, eventService)
	waitlistController := controllers.NewWaitlistController(logger, waitlistService, watcher)
	lotteryController := controllers.NewLotteryController(logger, lotteryService)
	invitationController := controllers.NewInvitationController(logger, invitationService)

	mux := httpdelivery.NewRouter(
		eventController,
		waitlistController,
		lotteryController,
		invitationController,
		verifier,
		logger,
	)

	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
