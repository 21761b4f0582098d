// Package api wires the HTTP surface: one Chi router carrying the public
// site, the organization console and the admin console.
package api

import (
	"net/http"
	"time"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/handlers"
	customMiddleware "youth-cms-backend/pkg/middleware"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/storage"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps carries everything the router needs.
type Deps struct {
	Config  *config.Config
	DB      database.DatabaseInterface
	Store   storage.ObjectStorage
	Hub     *realtime.Hub
	Logger  *zap.Logger
	Revoked *utils.RevocationList
}

// NewRouter builds the Chi router with all middleware and routes mounted.
func NewRouter(deps Deps) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, deps)
	setupRoutes(router, deps)
	return router
}

func setupMiddleware(router *chi.Mux, deps Deps) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(deps.Logger))
	router.Use(customMiddleware.Recovery(deps.Config, deps.Logger))
	router.Use(customMiddleware.CORS(deps.Config))
	router.Use(middleware.Compress(5))

	if deps.Config.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, deps Deps) {
	cfg := deps.Config
	db := deps.DB
	logger := deps.Logger

	authHandler := handlers.NewAuthHandler(cfg, db, deps.Revoked, logger)
	contentHandler := handlers.NewContentHandler(cfg, db, deps.Hub, logger)
	fileHandler := handlers.NewFileHandler(cfg, db, deps.Hub, deps.Store, logger)
	paletteHandler := handlers.NewPaletteHandler(cfg, db, deps.Store, logger)
	publicHandler := handlers.NewPublicHandler(cfg, db, deps.Store, logger)
	adminHandler := handlers.NewAdminHandler(cfg, db, deps.Hub, logger)
	eventsHandler := handlers.NewEventsHandler(deps.Hub, logger)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if err := db.HealthCheck(r.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			status = "degraded"
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"service": "youth-cms-backend",
			"status":  status,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Route("/api", func(r chi.Router) {
		// Public site, no authentication.
		r.Route("/public", func(r chi.Router) {
			r.Get("/organizations", publicHandler.ListOrganizations)
			r.Get("/announcements", publicHandler.ListAnnouncements)
			r.Get("/programs", publicHandler.ListPrograms)
			r.Get("/carousel", publicHandler.ListCarouselItems)
			r.Get("/files", publicHandler.ListFiles)
			r.With(customMiddleware.OptionalAuthMiddleware(cfg)).
				Get("/organizations/{id}/palette", paletteHandler.GetPalette)
		})

		// Session endpoints.
		r.Route("/auth", func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeJSON)
			r.Use(customMiddleware.MaxBodySize(1 << 20))
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.With(customMiddleware.AuthMiddleware(cfg)).Get("/me", authHandler.Me)
		})

		// Organization console, authentication required.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", contentHandler.ListAnnouncements)
				r.With(customMiddleware.ContentTypeJSON).Post("/", contentHandler.CreateAnnouncement)
				r.Get("/{id}", contentHandler.GetAnnouncement)
				r.With(customMiddleware.ContentTypeJSON).Put("/{id}", contentHandler.UpdateAnnouncement)
			})

			r.Route("/programs", func(r chi.Router) {
				r.Get("/", contentHandler.ListPrograms)
				r.With(customMiddleware.ContentTypeJSON).Post("/", contentHandler.CreateProgram)
				r.Get("/{id}", contentHandler.GetProgram)
				r.With(customMiddleware.ContentTypeJSON).Put("/{id}", contentHandler.UpdateProgram)
			})

			r.Route("/carousel", func(r chi.Router) {
				r.Get("/", contentHandler.ListCarouselItems)
				r.With(customMiddleware.ContentTypeJSON).Post("/", contentHandler.CreateCarouselItem)
				r.Get("/{id}", contentHandler.GetCarouselItem)
				r.With(customMiddleware.ContentTypeJSON).Put("/{id}", contentHandler.UpdateCarouselItem)
			})

			r.Route("/files", func(r chi.Router) {
				r.Get("/", fileHandler.ListFiles)
				r.Post("/", fileHandler.Upload)
				r.Get("/{id}", fileHandler.GetFile)
				r.With(customMiddleware.ContentTypeJSON).Put("/{id}", fileHandler.Rename)
				r.Get("/{id}/download", fileHandler.Download)
			})

			// Shared lifecycle across the content tables.
			r.Route("/content/{kind}", func(r chi.Router) {
				r.Use(customMiddleware.ContentTypeJSON)
				r.Post("/archive", contentHandler.Archive)
				r.Post("/restore", contentHandler.Restore)
			})

			r.Put("/organizations/{id}/palette", paletteHandler.SetPalette)
			r.Put("/organizations/{id}/logo", fileHandler.UploadLogo)

			r.Get("/events", eventsHandler.Stream)
		})

		// Admin console.
		r.Route("/admin", func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))
			r.Use(customMiddleware.RequireAdmin)

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", adminHandler.ListOrganizations)
				r.With(customMiddleware.ContentTypeJSON).Post("/", adminHandler.CreateOrganization)
				r.With(customMiddleware.ContentTypeJSON).Put("/{id}", adminHandler.UpdateOrganization)
				r.Post("/{id}/archive", adminHandler.ArchiveOrganization)
				r.Post("/{id}/restore", adminHandler.RestoreOrganization)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.With(customMiddleware.ContentTypeJSON).Post("/", adminHandler.CreateUser)
				r.Post("/{id}/archive", adminHandler.ArchiveUser)
				r.Post("/{id}/restore", adminHandler.RestoreUser)
				r.Delete("/{id}", adminHandler.DeleteUser)
			})

			r.Route("/content/{kind}", func(r chi.Router) {
				r.With(customMiddleware.ContentTypeJSON).Post("/approve", adminHandler.Approve)
				r.With(customMiddleware.ContentTypeJSON).Post("/reject", adminHandler.Reject)
				r.Delete("/{id}", adminHandler.HardDelete)
			})

			r.Get("/stats", adminHandler.Stats)
		})
	})
}
