package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/cupido/internal/cache"
	"github.com/example/cupido/internal/config"
	"github.com/example/cupido/internal/handlers"
	"github.com/example/cupido/internal/middleware"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, st store.Store, cfg *config.Config,
	delivery *services.DeliveryService, fidelity *services.FidelityService,
	transport services.Transport, storage services.FileStorage, receipts *cache.RedisCache) {

	webhookHandler := handlers.NewWebhookHandler(st, transport, fidelity, cfg.AppBaseURL, cfg.CupidoPhone)
	formHandler := handlers.NewFormHandler(st, delivery, storage)
	presentationHandler := handlers.NewPresentationHandler(st)
	accessHandler := handlers.NewAccessHandler(st)
	fidelityHandler := handlers.NewFidelityHandler(fidelity)
	quizHandler := handlers.NewQuizHandler(st, transport)
	healthHandler := handlers.NewHealthHandler(db, receipts)

	// Payment and gateway webhooks
	webhook := app.Group("/webhook")
	webhook.Post("/lowify", webhookHandler.Lowify)
	webhook.Post("/lowify-debug", webhookHandler.LowifyDebug)
	webhook.Post("/fidelity", webhookHandler.Fidelity)
	webhook.Post("/uazapi", webhookHandler.Uazapi)

	// Token-gated message form
	form := app.Group("/form")
	form.Get("/:token", formHandler.Show)
	form.Post("/:token/submit", formHandler.Submit)
	form.Post("/:token/upload", formHandler.Upload)

	// Public surfaces
	app.Get("/p/:id", presentationHandler.View)
	app.Post("/access", accessHandler.Lookup)
	app.Post("/api/quiz/contact", quizHandler.Contact)

	// Fidelity API
	fidelityAPI := app.Group("/api/fidelity")
	fidelityAPI.Post("/register", fidelityHandler.Register)
	fidelityAPI.Post("/login", fidelityHandler.Login)

	protected := fidelityAPI.Group("", middleware.AuthMiddleware(cfg.JWTSecret))
	protected.Post("/tests", fidelityHandler.CreateTest)
	protected.Get("/tests", fidelityHandler.ListTests)
	protected.Get("/tests/:id/messages", fidelityHandler.Messages)
	protected.Post("/tests/:id/messages", fidelityHandler.SendMessage)

	// Probes and metrics
	app.Get("/health", healthHandler.Health)
	app.Get("/live", healthHandler.Live)
	app.Get("/ready", healthHandler.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
