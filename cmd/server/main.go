package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/cupido/internal/cache"
	"github.com/example/cupido/internal/config"
	"github.com/example/cupido/internal/database"
	"github.com/example/cupido/internal/metrics"
	"github.com/example/cupido/internal/routes"
	"github.com/example/cupido/internal/scheduler"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	metrics.Init()

	st := store.NewGormStore(db)
	receipts := cache.Connect(context.Background(), cfg.RedisURL, 24*time.Hour)

	transport := services.NewWhatsAppService(cfg.UazapiBaseURL, cfg.UazapiToken)
	tts := services.NewTTSService(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
	storage := services.NewStorageService(cfg.StorageBaseURL, cfg.StorageKey, cfg.StorageBucket)

	delivery := services.NewDeliveryService(st, transport, tts, storage, receipts, cfg.AppBaseURL)
	fidelity := services.NewFidelityService(st, transport, cfg.JWTSecret, cfg.TokenExpires,
		cfg.FidelityUazapiToken, cfg.AppBaseURL)

	sweep := scheduler.NewSweep(st, delivery)
	sched, err := scheduler.New(cfg.SweepInterval, sweep.Run)
	if err != nil {
		log.Fatalf("scheduler setup failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:   "Cupido Backend",
		BodyLimit: 25 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, st, cfg, delivery, fidelity, transport, storage, receipts)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}

	_ = receipts.Close()
}
