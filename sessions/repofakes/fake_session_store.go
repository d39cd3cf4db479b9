package fakesessionstore

import (
	"context"
	"sync"
	"time"

	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

type FakeSessionStore struct {
	byToken    map[string]*sessions.Session
	userTokens map[string]string // username to its current token
	failUsers  map[string]error  // per-username injected upsert failures
	lock       sync.RWMutex
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{
		byToken:    make(map[string]*sessions.Session),
		userTokens: make(map[string]string),
		failUsers:  make(map[string]error),
	}
}

// FailUpsertFor makes UpsertForPrincipal fail for the given username. A nil
// err clears the injection.
func (ss *FakeSessionStore) FailUpsertFor(username string, err error) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if err == nil {
		delete(ss.failUsers, username)
		return
	}
	ss.failUsers[username] = err
}

func (ss *FakeSessionStore) GetByToken(_ context.Context, token string) (*sessions.Session, error) {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	session, ok := ss.byToken[token]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (ss *FakeSessionStore) UpsertForPrincipal(_ context.Context, session *sessions.Session) error {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if err, ok := ss.failUsers[session.Username]; ok {
		return err
	}

	if previous, ok := ss.userTokens[session.Username]; ok {
		delete(ss.byToken, previous)
	}

	now := time.Now().UTC()
	copied := *session
	copied.CreatedAt = now
	copied.UpdatedAt = now

	ss.byToken[copied.Token] = &copied
	ss.userTokens[copied.Username] = copied.Token
	return nil
}

func (ss *FakeSessionStore) DeleteByToken(_ context.Context, token string) error {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	session, ok := ss.byToken[token]
	if !ok {
		return nil
	}
	delete(ss.byToken, token)
	if ss.userTokens[session.Username] == token {
		delete(ss.userTokens, session.Username)
	}
	return nil
}

func (ss *FakeSessionStore) ListAll(_ context.Context) ([]*sessions.Session, error) {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	sessionList := make([]*sessions.Session, 0, len(ss.byToken))
	for _, session := range ss.byToken {
		copied := *session
		sessionList = append(sessionList, &copied)
	}
	return sessionList, nil
}

// CountForUsername reports how many session documents exist for a username.
// Lets invariant tests assert never-two without reaching into internals.
func (ss *FakeSessionStore) CountForUsername(username string) int {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	count := 0
	for _, session := range ss.byToken {
		if session.Username == username {
			count++
		}
	}
	return count
}
