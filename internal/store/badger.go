package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/batepapo/backend/internal/model/chat"
)

const (
	userPrefix      = "user:"
	messagePrefix   = "msg:"
	messageIDPrefix = "msgid:"
	messageSeqKey   = "seq:msg"
)

// Badger is an embedded store. Documents are BSON encoded so both
// backends share one document shape.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadger opens (or creates) a database under path. An empty path keeps
// everything in memory.
func OpenBadger(path string, log *slog.Logger) (*Badger, error) {
	options := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING)
	if path == "" {
		options = options.WithInMemory(true)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}

	seq, err := db.GetSequence([]byte(messageSeqKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &Badger{db: db, seq: seq}, nil
}

func (b *Badger) Participants() Participants { return badgerParticipants{db: b.db} }
func (b *Badger) Messages() Messages         { return badgerMessages{db: b.db, seq: b.seq} }

func (b *Badger) Close(context.Context) error {
	if err := b.seq.Release(); err != nil {
		_ = b.db.Close()
		return err
	}
	return b.db.Close()
}

type participantRecord struct {
	Name       string `bson:"name"`
	LastStatus int64  `bson:"lastStatus"`
}

type messageRecord struct {
	ID   string `bson:"_id"`
	From string `bson:"from"`
	To   string `bson:"to"`
	Text string `bson:"text"`
	Type string `bson:"type"`
	Time string `bson:"time"`
}

func (r messageRecord) toMessage() chat.Message {
	return chat.Message{ID: r.ID, From: r.From, To: r.To, Text: r.Text, Type: r.Type, Time: r.Time}
}

func fromMessage(m chat.Message) messageRecord {
	return messageRecord{ID: m.ID, From: m.From, To: m.To, Text: m.Text, Type: m.Type, Time: m.Time}
}

type badgerParticipants struct {
	db *badger.DB
}

func userKey(name string) []byte {
	return []byte(userPrefix + name)
}

// Insert checks and writes inside one transaction; a concurrent insert of
// the same name makes the commit fail with a conflict.
func (r badgerParticipants) Insert(ctx context.Context, p chat.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := bson.Marshal(participantRecord(p))
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := userKey(p.Name)
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrDuplicate
	}
	return err
}

func (r badgerParticipants) Find(ctx context.Context, name string) (chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return chat.Participant{}, err
	}
	var p chat.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getParticipant(txn, name)
		return err
	})
	return p, err
}

func (r badgerParticipants) List(ctx context.Context) ([]chat.Participant, error) {
	return r.scan(ctx, func(chat.Participant) bool { return true })
}

func (r badgerParticipants) ListSilent(ctx context.Context, cutoff int64) ([]chat.Participant, error) {
	return r.scan(ctx, func(p chat.Participant) bool { return p.SilentSince(cutoff) })
}

func (r badgerParticipants) Touch(ctx context.Context, name string, lastStatus int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		p, err := getParticipant(txn, name)
		if err != nil {
			return err
		}
		p.LastStatus = lastStatus
		data, err := bson.Marshal(participantRecord(p))
		if err != nil {
			return fmt.Errorf("encode participant: %w", err)
		}
		return txn.Set(userKey(name), data)
	})
}

func (r badgerParticipants) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := getParticipant(txn, name); err != nil {
			return err
		}
		return txn.Delete(userKey(name))
	})
}

func (r badgerParticipants) scan(ctx context.Context, keep func(chat.Participant) bool) ([]chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	participants := make([]chat.Participant, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record participantRecord
			if err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			if p := chat.Participant(record); keep(p) {
				participants = append(participants, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func getParticipant(txn *badger.Txn, name string) (chat.Participant, error) {
	item, err := txn.Get(userKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Participant{}, ErrNotFound
	}
	if err != nil {
		return chat.Participant{}, err
	}

	var record participantRecord
	if err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &record)
	}); err != nil {
		return chat.Participant{}, err
	}
	return chat.Participant(record), nil
}

type badgerMessages struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Messages are keyed "msg:{sequence padded}" so a prefix scan yields
// insertion order; "msgid:{uuid}" points back at that key.
func (r badgerMessages) Insert(ctx context.Context, m chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	n, err := r.seq.Next()
	if err != nil {
		return chat.Message{}, fmt.Errorf("next message sequence: %w", err)
	}
	m.ID = uuid.NewString()
	key := fmt.Sprintf("%s%020d", messagePrefix, n)

	data, err := bson.Marshal(fromMessage(m))
	if err != nil {
		return chat.Message{}, fmt.Errorf("encode message: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		return txn.Set([]byte(messageIDPrefix+m.ID), []byte(key))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

func (r badgerMessages) Find(ctx context.Context, id string) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	var m chat.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		m, _, err = getMessage(txn, id)
		return err
	})
	return m, err
}

func (r badgerMessages) ListVisible(ctx context.Context, viewer string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record messageRecord
			if err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			if m := record.toMessage(); m.VisibleTo(viewer) {
				messages = append(messages, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r badgerMessages) UpdateText(ctx context.Context, id, text, at string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		m, key, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		m.Text = text
		m.Time = at
		data, err := bson.Marshal(fromMessage(m))
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		return txn.Set(key, data)
	})
}

func (r badgerMessages) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		_, key, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete([]byte(messageIDPrefix + id))
	})
}

// getMessage resolves the id index and returns the message with its
// primary key.
func getMessage(txn *badger.Txn, id string) (chat.Message, []byte, error) {
	index, err := txn.Get([]byte(messageIDPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, nil, ErrNotFound
	}
	if err != nil {
		return chat.Message{}, nil, err
	}
	key, err := index.ValueCopy(nil)
	if err != nil {
		return chat.Message{}, nil, err
	}

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, nil, ErrNotFound
	}
	if err != nil {
		return chat.Message{}, nil, err
	}

	var record messageRecord
	if err := item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &record)
	}); err != nil {
		return chat.Message{}, nil, err
	}
	return record.toMessage(), key, nil
}

// badgerLogger routes badger's own logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
