// Package store holds the document store behind the chat room: two
// collections, participants ("users") and messages, reachable through
// simple CRUD operations. Each backend scopes its handle (session,
// transaction or lock) to a single call.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/batepapo/backend/internal/config"
	"github.com/batepapo/backend/internal/model/chat"
)

// Collection names shared by every backend.
const (
	UsersCollection    = "users"
	MessagesCollection = "messages"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Participants is the "users" collection.
type Participants interface {
	// Insert fails with ErrDuplicate when the name is already taken.
	Insert(ctx context.Context, p chat.Participant) error
	Find(ctx context.Context, name string) (chat.Participant, error)
	List(ctx context.Context) ([]chat.Participant, error)
	Touch(ctx context.Context, name string, lastStatus int64) error
	// ListSilent returns participants whose LastStatus is before cutoff.
	ListSilent(ctx context.Context, cutoff int64) ([]chat.Participant, error)
	Delete(ctx context.Context, name string) error
}

// Messages is the "messages" collection, kept in insertion order.
type Messages interface {
	// Insert assigns the identifier and returns the stored message.
	Insert(ctx context.Context, m chat.Message) (chat.Message, error)
	Find(ctx context.Context, id string) (chat.Message, error)
	ListVisible(ctx context.Context, viewer string) ([]chat.Message, error)
	UpdateText(ctx context.Context, id, text, at string) error
	Delete(ctx context.Context, id string) error
}

// Store bundles both collections of one backend.
type Store interface {
	Participants() Participants
	Messages() Messages
	Close(ctx context.Context) error
}

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		m, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Timeout, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverBadger:
		b, err := OpenBadger(cfg.BadgerPath, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
