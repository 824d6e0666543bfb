package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/batepapo/backend/internal/model/chat"
	"github.com/batepapo/backend/internal/store"
	"github.com/batepapo/backend/internal/validation"
)

var (
	ErrNameTaken           = errors.New("participant name already taken")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUnknownSender       = errors.New("sender is not a participant")
	ErrMessageNotFound     = errors.New("message not found")
	ErrNotOwner            = errors.New("message belongs to another participant")
)

// Service implements the participant registry and the message store on
// top of a document store.
type Service struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the chat service to its store.
func NewService(st store.Store, log *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a participant and announces it to the room. The two
// writes are independent; if the announcement fails the participant stays.
func (s *Service) Register(ctx context.Context, rawName string) (chat.Participant, error) {
	name, err := validation.Name(rawName)
	if err != nil {
		return chat.Participant{}, err
	}

	now := s.now()
	participant := chat.Participant{Name: name, LastStatus: chat.Timestamp(now)}
	if err := s.store.Participants().Insert(ctx, participant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return chat.Participant{}, ErrNameTaken
		}
		return chat.Participant{}, fmt.Errorf("save participant: %w", err)
	}

	if _, err := s.store.Messages().Insert(ctx, chat.NewStatus(name, chat.JoinText, now)); err != nil {
		return chat.Participant{}, fmt.Errorf("announce participant: %w", err)
	}

	s.log.Info("participant joined", "name", name)
	return participant, nil
}

// ListParticipants returns everyone currently in the room.
func (s *Service) ListParticipants(ctx context.Context) ([]chat.Participant, error) {
	participants, err := s.store.Participants().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// Heartbeat refreshes the presence of a participant.
func (s *Service) Heartbeat(ctx context.Context, rawName string) error {
	name, err := validation.Name(rawName)
	if err != nil {
		return err
	}

	if err := s.store.Participants().Touch(ctx, name, chat.Timestamp(s.now())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("touch participant: %w", err)
	}
	return nil
}

// PostMessage stores a message sent by a registered participant.
func (s *Service) PostMessage(ctx context.Context, rawFrom string, in validation.MessageInput) (chat.Message, error) {
	from, err := validation.Name(rawFrom)
	if err != nil {
		return chat.Message{}, err
	}
	body, err := validation.Message(in)
	if err != nil {
		return chat.Message{}, err
	}

	if _, err := s.store.Participants().Find(ctx, from); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chat.Message{}, ErrUnknownSender
		}
		return chat.Message{}, fmt.Errorf("find sender: %w", err)
	}

	message, err := s.store.Messages().Insert(ctx, chat.Message{
		From: from,
		To:   body.To,
		Text: body.Text,
		Type: body.Type,
		Time: s.now().Format(chat.TimeLayout),
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("save message: %w", err)
	}
	return message, nil
}

// ListMessages returns the messages viewer may read, oldest first. A
// positive limit keeps only the most recent ones.
func (s *Service) ListMessages(ctx context.Context, rawViewer string, limit int) ([]chat.Message, error) {
	viewer, err := validation.Name(rawViewer)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.Messages().ListVisible(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if limit > 0 {
		messages = lo.Subset(messages, -limit, uint(limit))
	}
	return messages, nil
}

// UpdateMessage replaces the text of a message owned by viewer.
func (s *Service) UpdateMessage(ctx context.Context, id, rawViewer string, in validation.MessageInput) (chat.Message, error) {
	viewer, err := validation.Name(rawViewer)
	if err != nil {
		return chat.Message{}, err
	}
	body, err := validation.Message(in)
	if err != nil {
		return chat.Message{}, err
	}

	message, err := s.owned(ctx, id, viewer)
	if err != nil {
		return chat.Message{}, err
	}

	message.Text = body.Text
	message.Time = s.now().Format(chat.TimeLayout)
	if err := s.store.Messages().UpdateText(ctx, id, message.Text, message.Time); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chat.Message{}, ErrMessageNotFound
		}
		return chat.Message{}, fmt.Errorf("update message: %w", err)
	}
	return message, nil
}

// DeleteMessage removes a message owned by viewer.
func (s *Service) DeleteMessage(ctx context.Context, id, rawViewer string) error {
	viewer := validation.Sanitize(rawViewer)

	if _, err := s.owned(ctx, id, viewer); err != nil {
		return err
	}

	if err := s.store.Messages().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// owned loads a message and checks that viewer sent it.
func (s *Service) owned(ctx context.Context, id, viewer string) (chat.Message, error) {
	message, err := s.store.Messages().Find(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chat.Message{}, ErrMessageNotFound
		}
		return chat.Message{}, fmt.Errorf("find message: %w", err)
	}
	if !message.OwnedBy(viewer) {
		return chat.Message{}, ErrNotOwner
	}
	return message, nil
}
