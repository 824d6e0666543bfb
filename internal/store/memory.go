package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/batepapo/backend/internal/model/chat"
)

// Memory keeps both collections in process memory, suitable for tests and
// single-instance demos.
type Memory struct {
	mu           sync.RWMutex
	participants []chat.Participant
	messages     []chat.Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Participants() Participants { return memoryParticipants{m} }
func (m *Memory) Messages() Messages         { return memoryMessages{m} }
func (m *Memory) Close(context.Context) error { return nil }

type memoryParticipants struct{ m *Memory }

func (r memoryParticipants) Insert(ctx context.Context, p chat.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, _, ok := r.find(p.Name); ok {
		return ErrDuplicate
	}
	r.m.participants = append(r.m.participants, p)
	return nil
}

func (r memoryParticipants) Find(ctx context.Context, name string) (chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return chat.Participant{}, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	p, _, ok := r.find(name)
	if !ok {
		return chat.Participant{}, ErrNotFound
	}
	return p, nil
}

func (r memoryParticipants) List(ctx context.Context) ([]chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	return append([]chat.Participant{}, r.m.participants...), nil
}

func (r memoryParticipants) Touch(ctx context.Context, name string, lastStatus int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, i, ok := r.find(name)
	if !ok {
		return ErrNotFound
	}
	r.m.participants[i].LastStatus = lastStatus
	return nil
}

func (r memoryParticipants) ListSilent(ctx context.Context, cutoff int64) ([]chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	return lo.Filter(r.m.participants, func(p chat.Participant, _ int) bool {
		return p.SilentSince(cutoff)
	}), nil
}

func (r memoryParticipants) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, i, ok := r.find(name)
	if !ok {
		return ErrNotFound
	}
	r.m.participants = append(r.m.participants[:i], r.m.participants[i+1:]...)
	return nil
}

// find must be called with the lock held.
func (r memoryParticipants) find(name string) (chat.Participant, int, bool) {
	return lo.FindIndexOf(r.m.participants, func(p chat.Participant) bool {
		return p.Name == name
	})
}

type memoryMessages struct{ m *Memory }

func (r memoryMessages) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	msg.ID = uuid.NewString()
	r.m.messages = append(r.m.messages, msg)
	return msg, nil
}

func (r memoryMessages) Find(ctx context.Context, id string) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	msg, _, ok := r.find(id)
	if !ok {
		return chat.Message{}, ErrNotFound
	}
	return msg, nil
}

func (r memoryMessages) ListVisible(ctx context.Context, viewer string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	return lo.Filter(r.m.messages, func(msg chat.Message, _ int) bool {
		return msg.VisibleTo(viewer)
	}), nil
}

func (r memoryMessages) UpdateText(ctx context.Context, id, text, at string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, i, ok := r.find(id)
	if !ok {
		return ErrNotFound
	}
	r.m.messages[i].Text = text
	r.m.messages[i].Time = at
	return nil
}

func (r memoryMessages) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	_, i, ok := r.find(id)
	if !ok {
		return ErrNotFound
	}
	r.m.messages = append(r.m.messages[:i], r.m.messages[i+1:]...)
	return nil
}

func (r memoryMessages) find(id string) (chat.Message, int, bool) {
	return lo.FindIndexOf(r.m.messages, func(msg chat.Message) bool {
		return msg.ID == id
	})
}
