package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookreviews/internal/auth"
	"bookreviews/internal/book"
	"bookreviews/internal/config"
	"bookreviews/internal/logger"
	"bookreviews/internal/user"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("bookreviews", "error").Error("config", "error", err)
		os.Exit(1)
	}

	log := logger.New("bookreviews", cfg.LogLevel)

	dbPool, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		log.Error("database connect", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("database connection OK")

	bookRepo := book.NewPostgresRepo(dbPool, cfg.DBTimeout)
	userRepo := user.NewPostgresRepo(dbPool, cfg.DBTimeout)

	bookService := book.NewService(bookRepo)
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTTTL, userRepo)

	bookHandler := book.NewHTTPHandler(bookService)
	authHandler := auth.NewHTTPHandler(authService)

	handler := newRouter(cfg, log, bookHandler, authHandler, dbPool.Ping)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", cfg.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func openDB(dsn string) (*pgxpool.Pool, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
