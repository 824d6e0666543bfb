package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/batepapo/backend/internal/model/chat"
)

// Mongo stores both collections in one MongoDB database.
type Mongo struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

type participantDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	LastStatus int64              `bson:"lastStatus"`
}

type messageDocument struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	From string             `bson:"from"`
	To   string             `bson:"to"`
	Text string             `bson:"text"`
	Type string             `bson:"type"`
	Time string             `bson:"time"`
}

func (d messageDocument) toMessage() chat.Message {
	return chat.Message{ID: d.ID.Hex(), From: d.From, To: d.To, Text: d.Text, Type: d.Type, Time: d.Time}
}

// OpenMongo connects to uri, checks the server is reachable and makes sure
// participant names are unique at the database level.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration, log *slog.Logger) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database), timeout: timeout}
	if err := m.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("mongo store connected", "database", database)
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (m *Mongo) Participants() Participants { return mongoParticipants{m} }
func (m *Mongo) Messages() Messages         { return mongoMessages{m} }

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// withSession checks out a session for one operation and ends it on every
// exit path.
func (m *Mongo) withSession(ctx context.Context, collection string, fn func(sc mongo.SessionContext, c *mongo.Collection) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	c := m.db.Collection(collection)
	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		return fn(sc, c)
	})
}

// visibleFilter matches public and status messages plus private ones sent
// by or addressed to viewer.
func visibleFilter(viewer string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"type": bson.M{"$in": bson.A{chat.TypeMessage, chat.TypeStatus}}},
		bson.M{"to": viewer},
		bson.M{"from": viewer},
	}}
}

func silentFilter(cutoff int64) bson.M {
	return bson.M{"lastStatus": bson.M{"$lt": cutoff}}
}

// messageID maps an external id to an ObjectID; a malformed id can never
// match a document.
func messageID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

type mongoParticipants struct{ m *Mongo }

func (r mongoParticipants) Insert(ctx context.Context, p chat.Participant) error {
	return r.m.withSession(ctx, UsersCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		_, err := c.InsertOne(sc, participantDocument{Name: p.Name, LastStatus: p.LastStatus})
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	})
}

func (r mongoParticipants) Find(ctx context.Context, name string) (chat.Participant, error) {
	var doc participantDocument
	err := r.m.withSession(ctx, UsersCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		return notFound(c.FindOne(sc, bson.M{"name": name}).Decode(&doc))
	})
	if err != nil {
		return chat.Participant{}, err
	}
	return chat.Participant{Name: doc.Name, LastStatus: doc.LastStatus}, nil
}

func (r mongoParticipants) List(ctx context.Context) ([]chat.Participant, error) {
	return r.find(ctx, bson.M{})
}

func (r mongoParticipants) ListSilent(ctx context.Context, cutoff int64) ([]chat.Participant, error) {
	return r.find(ctx, silentFilter(cutoff))
}

func (r mongoParticipants) Touch(ctx context.Context, name string, lastStatus int64) error {
	return r.m.withSession(ctx, UsersCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		res, err := c.UpdateOne(sc, bson.M{"name": name}, bson.M{"$set": bson.M{"lastStatus": lastStatus}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r mongoParticipants) Delete(ctx context.Context, name string) error {
	return r.m.withSession(ctx, UsersCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		res, err := c.DeleteOne(sc, bson.M{"name": name})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r mongoParticipants) find(ctx context.Context, filter bson.M) ([]chat.Participant, error) {
	var docs []participantDocument
	err := r.m.withSession(ctx, UsersCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		cursor, err := c.Find(sc, filter)
		if err != nil {
			return err
		}
		return cursor.All(sc, &docs)
	})
	if err != nil {
		return nil, err
	}

	participants := make([]chat.Participant, 0, len(docs))
	for _, doc := range docs {
		participants = append(participants, chat.Participant{Name: doc.Name, LastStatus: doc.LastStatus})
	}
	return participants, nil
}

type mongoMessages struct{ m *Mongo }

func (r mongoMessages) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	doc := messageDocument{From: msg.From, To: msg.To, Text: msg.Text, Type: msg.Type, Time: msg.Time}
	err := r.m.withSession(ctx, MessagesCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		res, err := c.InsertOne(sc, doc)
		if err != nil {
			return err
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			doc.ID = oid
		}
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}
	return doc.toMessage(), nil
}

func (r mongoMessages) Find(ctx context.Context, id string) (chat.Message, error) {
	oid, err := messageID(id)
	if err != nil {
		return chat.Message{}, err
	}

	var doc messageDocument
	err = r.m.withSession(ctx, MessagesCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		return notFound(c.FindOne(sc, bson.M{"_id": oid}).Decode(&doc))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return doc.toMessage(), nil
}

func (r mongoMessages) ListVisible(ctx context.Context, viewer string) ([]chat.Message, error) {
	var docs []messageDocument
	err := r.m.withSession(ctx, MessagesCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		cursor, err := c.Find(sc, visibleFilter(viewer), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		return cursor.All(sc, &docs)
	})
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, doc.toMessage())
	}
	return messages, nil
}

func (r mongoMessages) UpdateText(ctx context.Context, id, text, at string) error {
	oid, err := messageID(id)
	if err != nil {
		return err
	}
	return r.m.withSession(ctx, MessagesCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		res, err := c.UpdateOne(sc, bson.M{"_id": oid}, bson.M{"$set": bson.M{"text": text, "time": at}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r mongoMessages) Delete(ctx context.Context, id string) error {
	oid, err := messageID(id)
	if err != nil {
		return err
	}
	return r.m.withSession(ctx, MessagesCollection, func(sc mongo.SessionContext, c *mongo.Collection) error {
		res, err := c.DeleteOne(sc, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}
