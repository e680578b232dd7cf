package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/commentary"
	"github.com/Dosada05/nations-league/config"
	"github.com/Dosada05/nations-league/db"
	"github.com/Dosada05/nations-league/handlers"
	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/repositories"
	api "github.com/Dosada05/nations-league/routes"
	"github.com/Dosada05/nations-league/services"
	"github.com/Dosada05/nations-league/simulation"
	"github.com/Dosada05/nations-league/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Duration("live_tick", cfg.LiveTickInterval))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to migrate database schema", slog.Any("error", err))
		os.Exit(1)
	}

	var archive storage.FileUploader
	if cfg.R2.Enabled() {
		archive, err = storage.NewCloudflareR2Uploader(context.Background(), cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 bracket archive enabled", slog.String("bucket", cfg.R2.BucketName))
	}

	var mailer services.Mailer
	if cfg.SMTP.Enabled() {
		mailer = services.NewEmailService(cfg.SMTP)
		logger.Info("result e-mails enabled", slog.String("smtp_host", cfg.SMTP.Host))
	}

	var primary commentary.Generator
	if cfg.Gemini.Enabled() {
		gemini, err := commentary.NewGeminiClient(commentary.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Gemini commentary", slog.Any("error", err))
			os.Exit(1)
		}
		primary = gemini
	}
	generator := commentary.WithFallback(primary, logger)
	logger.Info("commentary generator ready", slog.String("generator", generator.Name()))

	wsHub := brackets.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()
	logger.Info("WebSocket Hub started")

	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	transactor := repositories.NewTransactor(dbConn)

	simulator, err := simulation.NewSimulator(simulation.DefaultConfig())
	if err != nil {
		logger.Error("invalid simulation config", slog.Any("error", err))
		os.Exit(1)
	}
	controller := livestream.NewController(simulator, generator, cfg.LiveTickInterval, logger)

	sinks := services.NewResultSinks(services.SinkOptions{
		Hub:      wsHub,
		Mailer:   mailer,
		Archive:  archive,
		TeamRepo: teamRepo,
		Logger:   logger,
	})

	authService := services.NewAuthService(cfg.AdminPasswordHash)
	tournamentService := services.NewTournamentService(teamRepo, bracketRepo, matchRepo, transactor, sinks, logger)
	teamService := services.NewTeamService(teamRepo, tournamentService, transactor)
	matchService := services.NewMatchService(teamRepo, matchRepo, tournamentService, controller, generator, sinks, logger)
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Health:     handlers.NewHealthHandler(dbConn, generator.Name()),
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Team:       handlers.NewTeamHandler(teamService, matchService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Match:      handlers.NewMatchHandler(matchService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
