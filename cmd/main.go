package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"habitlink/server/internal/appMiddleware"
	"habitlink/server/internal/auth"
	"habitlink/server/internal/config"
	"habitlink/server/internal/db"
	"habitlink/server/internal/handlers"
	"habitlink/server/internal/presence"
	"habitlink/server/internal/realtime"
	"habitlink/server/internal/social"
	"habitlink/server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	verifier := auth.NewVerifier(cfg.JWTSecret)
	socialClient := social.NewClient(cfg.SocialBaseURL, cfg.SocialTimeout)
	gate := social.NewGate(socialClient, cfg.RedisAddr, cfg.FriendshipGateTTL)

	registry := presence.NewRegistry(nil)
	hub := realtime.NewHub(registry, verifier, socialClient, cfg.PresenceFanout)
	registry.SetNotifier(hub)

	messageStore := store.New(pool)
	messageHandler := handlers.NewMessageHandler(messageStore, gate, hub, socialClient, cfg.HistoryLimit)
	presenceHandler := handlers.NewPresenceHandler(registry)

	r := chi.NewRouter()
	r.Use(appMiddleware.Cors)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.Auth(verifier))
		messageHandler.Routes(r)
		presenceHandler.Routes(r)
	})

	r.Get("/ws", realtime.ServeWS(hub))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server started on port %d", cfg.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %s", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Stopping the server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %s", err)
	}
	log.Println("Server has been successfully stopped")
}
