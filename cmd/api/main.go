package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atrium-jazz/internal/auth"
	"atrium-jazz/internal/calendar"
	"atrium-jazz/internal/calendar/calendar_api"
	"atrium-jazz/internal/config"
	"atrium-jazz/internal/database"
	"atrium-jazz/internal/database/migrations"
	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/share"
	"atrium-jazz/internal/store"
)

func adminVerifier(ctx context.Context, cfg config.AdminConfig, log *logger.Logger) auth.Verifier {
	switch {
	case cfg.OIDCIssuer != "":
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
		}
		log.Info("AUTH", fmt.Sprintf("admin API guarded by OIDC issuer %s", cfg.OIDCIssuer))
		return v
	case cfg.JWTSecret != "":
		log.Info("AUTH", "admin API guarded by shared-secret JWT")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	default:
		log.Warn("AUTH", "no admin credentials configured, admin API is open")
		return nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Dir:      cfg.LogDir,
		Name:     "api",
		MinLevel: logger.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL Setup ---
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, log)
		defer runner.Close()
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("DATABASE", err.Error())
		}
	}

	// --- Initialize Dependencies ---
	service := calendar.NewService(store.New(bunDB), cfg.Site)
	qr := share.NewQRGenerator(cfg.Site.BaseURL, 0)
	handler := calendar_api.NewHandler(service, qr, log)
	admin := auth.Middleware(adminVerifier(ctx, cfg.Admin, log), log)

	// --- Setup Router ---
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", handler.Routes(admin))

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Calendar API running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received. Cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
