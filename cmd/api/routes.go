package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookreviews/internal/auth"
	"bookreviews/internal/book"
	"bookreviews/internal/config"
	"bookreviews/internal/httpx"
)

// newRouter wires every route and the middleware chain. ready reports whether
// the database can be reached; /readyz surfaces it.
func newRouter(
	cfg config.Config,
	log *slog.Logger,
	bookHandler *book.HTTPHandler,
	authHandler *auth.HTTPHandler,
	ready func(context.Context) error,
) http.Handler {
	requireAuth := httpx.AuthMiddleware(cfg.JWTSecret)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("GET /metrics", promhttp.Handler())

	router.HandleFunc("POST /auth/register", authHandler.Register)
	router.HandleFunc("POST /auth/login", authHandler.Login)
	router.Handle("GET /me", requireAuth(http.HandlerFunc(authHandler.Me)))

	router.Handle("POST /books", requireAuth(http.HandlerFunc(bookHandler.Create)))
	router.HandleFunc("GET /books", bookHandler.List)
	router.HandleFunc("GET /books/search", bookHandler.Search)
	router.HandleFunc("GET /books/{id}", bookHandler.GetByID)
	router.Handle("POST /books/{id}/reviews", requireAuth(http.HandlerFunc(bookHandler.AddReview)))
	router.Handle("PUT /books/{id}/reviews/{reviewId}", requireAuth(http.HandlerFunc(bookHandler.UpdateReview)))
	router.Handle("DELETE /books/{id}/reviews/{reviewId}", requireAuth(http.HandlerFunc(bookHandler.DeleteReview)))

	rateLimit := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware,
		httpx.MetricsMiddleware,
		httpx.SecurityHeadersMiddleware,
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
		rateLimit.Handler,
	)
}
