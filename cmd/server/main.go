package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sierra/internal/config"
	"sierra/internal/database"
	"sierra/internal/engine"
	"sierra/internal/handlers"
	"sierra/internal/media"
	"sierra/internal/middleware"
	"sierra/internal/push"
	"sierra/internal/utils"
	"sierra/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var store database.Store
	if cfg.Database.URI == "memory" {
		// Volatile backend for local development without MongoDB.
		store = database.NewMemoryStore()
		log.Warnw("using in-memory store, data will not survive a restart")
	} else {
		mongoStore, err := database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			log.Fatalw("failed to connect to MongoDB", "error", err)
		}
		store = mongoStore
	}
	defer store.Close(context.Background())

	metrics := utils.NewMetricsCollector()
	hub := websocket.NewHub(log)

	var provider push.Provider
	if cfg.Push.Endpoint != "" {
		provider = push.NewHTTPProvider(cfg.Push.Endpoint, cfg.Push.APIKey, cfg.Push.Timeout)
		log.Infow("push dispatch enabled", "endpoint", cfg.Push.Endpoint)
	} else {
		log.Warnw("PUSH_ENDPOINT not set, push notifications disabled")
	}

	var mediaStore media.Storage
	if cfg.Media.Bucket != "" {
		s3Store, err := media.NewS3Store(context.Background(), cfg.Media.Region, cfg.Media.Bucket)
		if err != nil {
			log.Fatalw("failed to initialize media storage", "error", err)
		}
		mediaStore = s3Store
	} else {
		log.Warnw("MEDIA_BUCKET not set, media uploads disabled")
	}

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, hub, provider, metrics, log, cfg.Server.RequestTimeout)

	auth := middleware.NewAuth(cfg.JWTSecret)
	server := handlers.NewServer(system, eng, hub, auth, mediaStore, metrics, log)
	server.RequestTimeout = cfg.Server.RequestTimeout
	server.MetricsEnabled = cfg.Server.MetricsEnabled

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(server.Routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
}
