package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/symmetrons/support-api/internal/config"
	"github.com/symmetrons/support-api/internal/database"
	"github.com/symmetrons/support-api/internal/handler"
	"github.com/symmetrons/support-api/internal/middleware"
	"github.com/symmetrons/support-api/internal/queue"
	"github.com/symmetrons/support-api/internal/repository"
	"github.com/symmetrons/support-api/internal/router"
	queue_publisher "github.com/symmetrons/support-api/internal/service"
	"github.com/symmetrons/support-api/internal/storage"
)

func main() {
	// Best-effort .env load; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("database: %v", err)
	}

	store, err := storage.NewDiskStore(cfg.StorageDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// nil when Redis is unreachable; cache and rate limiting then
	// degrade to pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}
	cacheCfg := config.LoadCacheConfig()

	ticketHandler := handler.NewTicketHandler(repository.NewTicketRepo(db), store, cfg.MaxUploadBytes)
	ticketHandler.Publish = queue_publisher.PublishTicketEvent
	ticketHandler.Invalidate = func(ctx context.Context) {
		middleware.InvalidateByPrefix(ctx, rdb, cacheCfg.Prefix)
	}
	attachmentHandler := handler.NewAttachmentHandler(repository.NewAttachmentRepo(db), store)

	if cfg.ConsumerOn {
		go func() {
			if err := queue.StartTicketConsumer(cfg.LogDir); err != nil {
				log.Printf("ticket consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, ticketHandler, attachmentHandler, store, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
