package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rgeorgiev/taskchat-api/internal/api"
	apiMiddleware "github.com/rgeorgiev/taskchat-api/internal/api/middleware"
	"github.com/rgeorgiev/taskchat-api/internal/ws"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	chatHandler := api.NewChatHandler(app.chatService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenVerifier)

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Hub:          app.hub,
		Chat:         app.chatService,
		Verifier:     app.tokenVerifier,
		WriteTimeout: app.writeTimeout(),
		Logger:       app.logger,
	})

	// Realtime transport; authenticates before the upgrade
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/tasks/{taskID}/messages", func(r chi.Router) {
				r.Get("/", chatHandler.GetHistory)
				r.Post("/", chatHandler.SendMessage)
				r.Get("/count", chatHandler.GetCount)
				r.Put("/{messageID}", chatHandler.EditMessage)
				r.Delete("/{messageID}", chatHandler.DeleteMessage)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
