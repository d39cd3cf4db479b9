package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/sessions"
)

var _ sessions.Store = (*Store)(nil)

// Store is the Redis-backed session cache. Each session is a JSON document at
// session:token:<token>; session:user:<username> holds the username's current
// token and is the sole authority for displacement. Writes are sequential and
// ordered delete-old, move-index, write-document: an interruption at any point
// leaves the username with zero resolvable sessions, never two, matching the
// non-atomic delete-then-insert contract of the store interface.
type Store struct {
	client  *redis.Client
	nowTime func() time.Time
}

type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func New(client *redis.Client, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	s := &Store{client: client, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func tokenKey(token string) string   { return fmt.Sprintf("session:token:%s", token) }
func userKey(username string) string { return fmt.Sprintf("session:user:%s", username) }

// storedSession re-exposes the tenant password that the session document's
// json tags hide from outward serialization; inside Redis the full document
// must round-trip.
type storedSession struct {
	sessions.Session
	TenantPassword string `json:"tenant_password"`
}

func encodeSession(session sessions.Session) ([]byte, error) {
	return json.Marshal(storedSession{Session: session, TenantPassword: session.TenantPassword})
}

func decodeSession(data []byte) (*sessions.Session, error) {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	session := stored.Session
	session.TenantPassword = stored.TenantPassword
	return &session, nil
}

func (s *Store) GetByToken(ctx context.Context, token string) (*sessions.Session, error) {
	data, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, autherrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.GetByToken] %v", err)
	}

	session, err := decodeSession([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetByToken] unmarshal")
	}
	return session, nil
}

func (s *Store) UpsertForPrincipal(ctx context.Context, session *sessions.Session) error {
	now := s.nowTime().UTC()
	doc := *session
	doc.CreatedAt = now
	doc.UpdatedAt = now

	data, err := encodeSession(doc)
	if err != nil {
		return errors.Wrap(err, "[Store.UpsertForPrincipal] marshal")
	}

	// Displace the username's previous session, if any.
	previousToken, err := s.client.Get(ctx, userKey(session.Username)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] lookup previous: %v", err)
	}
	if previousToken != "" {
		if err := s.client.Del(ctx, tokenKey(previousToken)).Err(); err != nil {
			return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] delete previous: %v", err)
		}
	}

	// The index moves to the new token before its document is written. The
	// index is what displacement reads, so a failure between the two writes
	// leaves the username with zero resolvable sessions, never two.
	if err := s.client.Set(ctx, userKey(doc.Username), doc.Token, 0).Err(); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] set user index: %v", err)
	}
	if err := s.client.Set(ctx, tokenKey(doc.Token), data, 0).Err(); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.UpsertForPrincipal] set session: %v", err)
	}
	return nil
}

func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, autherrors.ErrSessionNotFound) {
		return nil // idempotent
	}
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.DeleteByToken] delete session: %v", err)
	}

	// Drop the user index only if it still points at this token; a concurrent
	// login may already have replaced it.
	current, err := s.client.Get(ctx, userKey(session.Username)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.DeleteByToken] lookup user index: %v", err)
	}
	if current == token {
		if err := s.client.Del(ctx, userKey(session.Username)).Err(); err != nil {
			return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.DeleteByToken] delete user index: %v", err)
		}
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]*sessions.Session, error) {
	sessionList := make([]*sessions.Session, 0)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, tokenKey("*"), 100).Result()
		if err != nil {
			return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.ListAll] scan: %v", err)
		}
		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue // deleted between scan and get
			}
			if err != nil {
				return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Store.ListAll] get: %v", err)
			}
			session, err := decodeSession([]byte(data))
			if err != nil {
				return nil, errors.Wrap(err, "[Store.ListAll] unmarshal")
			}
			sessionList = append(sessionList, session)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return sessionList, nil
}
