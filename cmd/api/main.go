package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/26haroon26/chatapp-server/internal/auth"
	"github.com/26haroon26/chatapp-server/internal/config"
	"github.com/26haroon26/chatapp-server/internal/db"
	httphandler "github.com/26haroon26/chatapp-server/internal/http"
	"github.com/26haroon26/chatapp-server/internal/http/handlers"
	"github.com/26haroon26/chatapp-server/internal/mail"
	"github.com/26haroon26/chatapp-server/internal/middleware"
	"github.com/26haroon26/chatapp-server/internal/repo"
	"github.com/26haroon26/chatapp-server/internal/ws"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repo.NewUserRepo(database)
	otpRepo := repo.NewOtpRepo(database)
	messageRepo := repo.NewMessageRepo(database)

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" && !cfg.DevMode {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		log.Println("mail delivery disabled, reset codes will be logged instead of mailed")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	authService := auth.NewAuthService(tokens, userRepo)
	otpService := auth.NewOtpService(otpRepo, userRepo, mailer, cfg.OTPSalt)
	gate := middleware.NewGate(tokens)

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, gate)

	authHandler := handlers.NewAuthHandler(authService, otpService)
	userHandler := handlers.NewUserHandler(userRepo, authService)
	messageHandler := handlers.NewMessageHandler(messageRepo, hub)

	router := httphandler.NewRouter(gate, authHandler, userHandler, messageHandler, wsHandler, cfg.CORSOrigin)

	// No read/write timeouts here: /ws connections are long-lived and must
	// not be cut off by the server.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the repo root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
