// Noteboard server entry point: wires config, database, services, and the
// HTTP stack, then serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/noteboard/internal/auth"
	"github.com/kuitang/noteboard/internal/config"
	"github.com/kuitang/noteboard/internal/db"
	"github.com/kuitang/noteboard/internal/notes"
	"github.com/kuitang/noteboard/internal/obs"
	"github.com/kuitang/noteboard/internal/ratelimit"
	"github.com/kuitang/noteboard/internal/store"
	"github.com/kuitang/noteboard/internal/web"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addr := config.ParseFlags()
	cfg := config.MustLoadConfig(addr)

	obs.Init()
	log := obs.Pkg("main")
	cfg.PrintStartupSummary()

	database, err := db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	st := store.New(database)
	users := auth.NewUserService(st.Users)
	sessions := auth.NewSessionService(
		st.Sessions,
		cfg.SessionDuration,
		cfg.RememberMeDuration,
		cfg.RequireSecureCookies(),
	)
	noteService := notes.NewService(st.Notes)
	categoryService := notes.NewCategoryService(st.Categories)

	renderer, err := web.NewRenderer(cfg.TemplatesDir)
	if err != nil {
		log.Error("failed to load templates", "dir", cfg.TemplatesDir, "error", err)
		os.Exit(1)
	}

	// Brute-force guard on the credential endpoints.
	loginLimiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer loginLimiter.Stop()

	handler := web.NewHandler(renderer, users, sessions, noteService, categoryService)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth.NewMiddleware(sessions), ratelimit.Middleware(loginLimiter))

	// Expired sessions are swept in the background until shutdown.
	cleanupStop := make(chan struct{})
	go sessions.StartCleanup(sessionCleanupInterval, cleanupStop)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           obs.RequestContextMiddleware(obs.AccessLogMiddleware("web", mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	close(cleanupStop)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
