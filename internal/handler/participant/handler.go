package participant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/batepapo/backend/internal/handler/httperr"
	chatService "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/internal/validation"
	"github.com/batepapo/backend/pkg/utils"
)

// UserHeader carries the self-declared name of the caller.
const UserHeader = "User"

// Handler serves the participant registry and presence heartbeats.
type Handler struct {
	chatSvc *chatService.Service
	log     *slog.Logger
}

// New creates the participant handler.
func New(chatSvc *chatService.Service, log *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		log:     log,
	}
}

// RegisterRoutes mounts the participant routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/participants", h.handleRegister)
	r.Get("/participants", h.handleList)
	r.Post("/status", h.handleHeartbeat)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		httperr.Respond(w, r, h.log, validation.ErrInvalid)
		return
	}

	participant, err := h.chatSvc.Register(r.Context(), payload.Name)
	if err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, participant)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	participants, err := h.chatSvc.ListParticipants(r.Context())
	if err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, participants)
}

func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Heartbeat(r.Context(), r.Header.Get(UserHeader)); err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondStatus(w, http.StatusOK)
}
