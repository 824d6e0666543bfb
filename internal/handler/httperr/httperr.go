// Package httperr maps service errors onto HTTP responses.
package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	chatService "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/internal/validation"
	"github.com/batepapo/backend/pkg/utils"
)

// Status returns the HTTP status for err. Anything unrecognised is a
// store failure.
func Status(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, chatService.ErrUnknownSender):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chatService.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrParticipantNotFound), errors.Is(err, chatService.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrNotOwner):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes the error response for err. Internal failures are logged
// and answered with a generic message.
func Respond(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
