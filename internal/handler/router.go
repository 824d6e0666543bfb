package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/batepapo/backend/internal/handler/message"
	"github.com/batepapo/backend/internal/handler/participant"
	chatService "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the chat service.
func NewRouter(chatSvc *chatService.Service, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(accessLogFormatter{log: log}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", participant.UserHeader},
	}))

	participant.New(chatSvc, log).RegisterRoutes(r)
	message.New(chatSvc, log).RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
