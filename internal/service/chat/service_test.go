package chat_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "github.com/batepapo/backend/internal/model/chat"
	chat "github.com/batepapo/backend/internal/service/chat"
	"github.com/batepapo/backend/internal/store"
	"github.com/batepapo/backend/internal/validation"
)

var fixedNow = time.Date(2024, 5, 10, 14, 30, 15, 0, time.Local)

func newService(st store.Store) *chat.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return chat.NewService(st, log, chat.WithClock(func() time.Time { return fixedNow }))
}

func TestServiceRegister(t *testing.T) {
	req := require.New(t)
	st := store.NewMemory()
	svc := newService(st)
	ctx := context.Background()

	p, err := svc.Register(ctx, "  <b>Alice</b> ")
	req.NoError(err)
	req.Equal(model.Participant{Name: "Alice", LastStatus: fixedNow.UnixMilli()}, p)

	_, err = svc.Register(ctx, "Alice")
	req.ErrorIs(err, chat.ErrNameTaken)

	_, err = svc.Register(ctx, "   ")
	req.ErrorIs(err, validation.ErrInvalid)

	messages, err := svc.ListMessages(ctx, "Alice", 0)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(model.Message{
		ID:   messages[0].ID,
		From: "Alice",
		To:   "Todos",
		Text: "entra na sala...",
		Type: "status",
		Time: "14:30:15",
	}, messages[0])

	participants, err := svc.ListParticipants(ctx)
	req.NoError(err)
	req.Len(participants, 1)
}

func TestServiceRegisterKeepsParticipantWhenAnnouncementFails(t *testing.T) {
	st := &brokenMessagesStore{Memory: store.NewMemory()}
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice")
	require.Error(t, err)
	require.NotErrorIs(t, err, chat.ErrNameTaken)

	participants, err := svc.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 1)
}

func TestServiceHeartbeat(t *testing.T) {
	req := require.New(t)
	st := store.NewMemory()
	ctx := context.Background()
	req.NoError(st.Participants().Insert(ctx, model.Participant{Name: "Alice", LastStatus: 1}))

	svc := newService(st)
	req.NoError(svc.Heartbeat(ctx, "Alice"))

	p, err := st.Participants().Find(ctx, "Alice")
	req.NoError(err)
	req.Equal(fixedNow.UnixMilli(), p.LastStatus)

	req.ErrorIs(svc.Heartbeat(ctx, "Bob"), chat.ErrParticipantNotFound)
	req.ErrorIs(svc.Heartbeat(ctx, ""), validation.ErrInvalid)
}

func TestServicePostMessage(t *testing.T) {
	req := require.New(t)
	svc := newService(store.NewMemory())
	ctx := context.Background()
	_, err := svc.Register(ctx, "Alice")
	req.NoError(err)

	msg, err := svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Todos", Text: " bom dia ", Type: "message"})
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal("Alice", msg.From)
	req.Equal("bom dia", msg.Text)
	req.Equal("14:30:15", msg.Time)

	_, err = svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Todos", Text: "oi", Type: "status"})
	req.ErrorIs(err, validation.ErrInvalid)
}

func TestServicePostMessageUnknownSenderWritesNothing(t *testing.T) {
	req := require.New(t)
	st := store.NewMemory()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.PostMessage(ctx, "Ghost", validation.MessageInput{To: "Todos", Text: "boo", Type: "message"})
	req.ErrorIs(err, chat.ErrUnknownSender)

	messages, err := st.Messages().ListVisible(ctx, "Ghost")
	req.NoError(err)
	req.Empty(messages)
}

func TestServiceListMessagesVisibility(t *testing.T) {
	req := require.New(t)
	svc := newService(store.NewMemory())
	ctx := context.Background()
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := svc.Register(ctx, name)
		req.NoError(err)
	}

	_, err := svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Bob", Text: "segredo", Type: "private_message"})
	req.NoError(err)

	for viewer, visible := range map[string]bool{"Alice": true, "Bob": true, "Carol": false} {
		messages, err := svc.ListMessages(ctx, viewer, 0)
		req.NoError(err)
		found := false
		for _, m := range messages {
			if m.Text == "segredo" {
				found = true
			}
		}
		req.Equal(visible, found, "viewer %s", viewer)
	}

	_, err = svc.ListMessages(ctx, "", 0)
	req.ErrorIs(err, validation.ErrInvalid)
}

func TestServiceListMessagesLimit(t *testing.T) {
	req := require.New(t)
	svc := newService(store.NewMemory())
	ctx := context.Background()
	_, err := svc.Register(ctx, "Alice")
	req.NoError(err)
	for _, text := range []string{"um", "dois", "três"} {
		_, err := svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Todos", Text: text, Type: "message"})
		req.NoError(err)
	}

	last2, err := svc.ListMessages(ctx, "Alice", 2)
	req.NoError(err)
	req.Equal([]string{"dois", "três"}, texts(last2))

	all, err := svc.ListMessages(ctx, "Alice", 0)
	req.NoError(err)
	req.Equal([]string{"entra na sala...", "um", "dois", "três"}, texts(all))

	all, err = svc.ListMessages(ctx, "Alice", -3)
	req.NoError(err)
	req.Len(all, 4)

	many, err := svc.ListMessages(ctx, "Alice", 50)
	req.NoError(err)
	req.Len(many, 4)
}

func TestServiceUpdateMessage(t *testing.T) {
	req := require.New(t)
	st := store.NewMemory()
	svc := newService(st)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Alice")
	req.NoError(err)
	msg, err := svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Todos", Text: "oi", Type: "message"})
	req.NoError(err)

	body := validation.MessageInput{To: "Todos", Text: "olá", Type: "message"}

	_, err = svc.UpdateMessage(ctx, msg.ID, "Bob", body)
	req.ErrorIs(err, chat.ErrNotOwner)

	_, err = svc.UpdateMessage(ctx, "missing", "Alice", body)
	req.ErrorIs(err, chat.ErrMessageNotFound)

	_, err = svc.UpdateMessage(ctx, msg.ID, "Alice", validation.MessageInput{To: "Todos", Text: "", Type: "message"})
	req.ErrorIs(err, validation.ErrInvalid)

	updated, err := svc.UpdateMessage(ctx, msg.ID, "Alice", body)
	req.NoError(err)
	req.Equal("olá", updated.Text)

	stored, err := st.Messages().Find(ctx, msg.ID)
	req.NoError(err)
	req.Equal("olá", stored.Text)
}

func TestServiceDeleteMessage(t *testing.T) {
	req := require.New(t)
	svc := newService(store.NewMemory())
	ctx := context.Background()
	_, err := svc.Register(ctx, "Alice")
	req.NoError(err)
	msg, err := svc.PostMessage(ctx, "Alice", validation.MessageInput{To: "Todos", Text: "oi", Type: "message"})
	req.NoError(err)

	req.ErrorIs(svc.DeleteMessage(ctx, msg.ID, "Bob"), chat.ErrNotOwner)
	req.ErrorIs(svc.DeleteMessage(ctx, msg.ID, ""), chat.ErrNotOwner)
	req.ErrorIs(svc.DeleteMessage(ctx, "missing", "Alice"), chat.ErrMessageNotFound)
	req.NoError(svc.DeleteMessage(ctx, msg.ID, "Alice"))
	req.ErrorIs(svc.DeleteMessage(ctx, msg.ID, "Alice"), chat.ErrMessageNotFound)
}

func texts(ms []model.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Text)
	}
	return out
}

// brokenMessagesStore fails every message insert.
type brokenMessagesStore struct {
	*store.Memory
}

func (s *brokenMessagesStore) Messages() store.Messages {
	return brokenMessages{Messages: s.Memory.Messages()}
}

type brokenMessages struct {
	store.Messages
}

func (brokenMessages) Insert(context.Context, model.Message) (model.Message, error) {
	return model.Message{}, errors.New("disk full")
}
