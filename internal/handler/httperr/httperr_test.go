package httperr

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	chatService "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/internal/validation"
)

func TestStatus(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("%w: empty", validation.ErrInvalid): http.StatusUnprocessableEntity,
		chatService.ErrUnknownSender:                  http.StatusUnprocessableEntity,
		chatService.ErrNameTaken:                      http.StatusConflict,
		chatService.ErrParticipantNotFound:            http.StatusNotFound,
		chatService.ErrMessageNotFound:                http.StatusNotFound,
		chatService.ErrNotOwner:                       http.StatusUnauthorized,
		errors.New("connection refused"):              http.StatusInternalServerError,
	}

	for err, want := range cases {
		require.Equal(t, want, Status(err), "err=%v", err)
	}
}

func TestRespondHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/messages/1", nil)

	Respond(rec, req, slog.New(slog.NewTextHandler(io.Discard, nil)), errors.New("mongo: server selection timeout"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRespondValidationUsesFieldNames(t *testing.T) {
	_, err := validation.Name("")
	require.Error(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/participants", nil)
	Respond(rec, req, slog.New(slog.NewTextHandler(io.Discard, nil)), err)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.JSONEq(t, `{"error":"invalid input: name is required"}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "nameInput")
}
