package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/sessions"
)

const collectionName = "sessions"

var _ sessions.Store = (*Store)(nil)

// Store is the MongoDB-backed session cache. Sessions are documents in a
// single collection with a unique index on token; the one-document-per-
// username invariant is enforced by UpsertForPrincipal's delete-then-insert,
// not by an index.
type Store struct {
	collection *mongo.Collection
	nowTime    func() time.Time // injectable for testing
}

type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New initializes the store and ensures the unique token index exists.
func New(ctx context.Context, db *mongo.Database, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("[mongostore.New] database is required")
	}

	s := &Store{
		collection: db.Collection(collectionName),
		nowTime:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[mongostore.New] create unique token index")
	}

	return s, nil
}

func (s *Store) GetByToken(ctx context.Context, token string) (*sessions.Session, error) {
	var session sessions.Session
	err := s.collection.FindOne(ctx, bson.M{"token": token}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, autherrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.GetByToken] %v", err)
	}
	return &session, nil
}

func (s *Store) UpsertForPrincipal(ctx context.Context, session *sessions.Session) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"username": session.Username}); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] delete existing: %v", err)
	}

	now := s.nowTime().UTC()
	doc := *session
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] insert: %v", err)
	}
	return nil
}

func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.DeleteByToken] %v", err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]*sessions.Session, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.ListAll] %v", err)
	}
	defer cursor.Close(ctx)

	sessionList := make([]*sessions.Session, 0)
	for cursor.Next(ctx) {
		var session sessions.Session
		if err := cursor.Decode(&session); err != nil {
			return nil, errors.Wrap(err, "[Store.ListAll] decode")
		}
		sessionList = append(sessionList, &session)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.ListAll] cursor: %v", err)
	}
	return sessionList, nil
}
