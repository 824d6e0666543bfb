package message

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/batepapo/backend/internal/handler/httperr"
	"github.com/batepapo/backend/internal/handler/participant"
	chatService "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/internal/validation"
	"github.com/batepapo/backend/pkg/utils"
)

// Handler serves chat messages.
type Handler struct {
	chatSvc *chatService.Service
	log     *slog.Logger
}

// New creates the message handler.
func New(chatSvc *chatService.Service, log *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		log:     log,
	}
}

// RegisterRoutes mounts the message routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handlePost)
	r.Get("/messages", h.handleList)
	r.Put("/messages/{id}", h.handleUpdate)
	r.Delete("/messages/{id}", h.handleDelete)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload validation.MessageInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		httperr.Respond(w, r, h.log, validation.ErrInvalid)
		return
	}

	message, err := h.chatSvc.PostMessage(r.Context(), user(r), payload)
	if err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, message)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.ListMessages(r.Context(), user(r), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload validation.MessageInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		httperr.Respond(w, r, h.log, validation.ErrInvalid)
		return
	}

	message, err := h.chatSvc.UpdateMessage(r.Context(), chi.URLParam(r, "id"), user(r), payload)
	if err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, message)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteMessage(r.Context(), chi.URLParam(r, "id"), user(r)); err != nil {
		httperr.Respond(w, r, h.log, err)
		return
	}

	utils.RespondStatus(w, http.StatusOK)
}

func user(r *http.Request) string {
	return r.Header.Get(participant.UserHeader)
}

// parseLimit returns 0 (no limit) for a missing or unparsable value.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
