package fakedirectory

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/fieldcollect/go-session-server/directory"
	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
)

var _ directory.CredentialDirectory = (*FakeDirectory)(nil)

type record struct {
	info         principals.Info
	passwordHash []byte
	recoveryHash []byte
	isActive     bool
	token        string
}

type FakeDirectory struct {
	records  map[string]*record // keyed by username
	listErr  error
	clearErr error
	lock     sync.RWMutex
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{records: make(map[string]*record)}
}

// AddPrincipal registers a directory record. Password and recovery code are
// hashed the way the real directory stores them.
func (fd *FakeDirectory) AddPrincipal(info principals.Info, password, recoveryCode string) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	rec := &record{info: info}
	rec.passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if recoveryCode != "" {
		rec.recoveryHash, _ = bcrypt.GenerateFromPassword([]byte(recoveryCode), bcrypt.MinCost)
	}
	fd.records[info.Username] = rec
}

// AddActivePrincipal registers a record already flagged active with a token,
// as the reconciler would find it after a restart.
func (fd *FakeDirectory) AddActivePrincipal(info principals.Info, token string) {
	fd.AddPrincipal(info, "", "")

	fd.lock.Lock()
	defer fd.lock.Unlock()
	rec := fd.records[info.Username]
	rec.isActive = true
	rec.token = token
	rec.passwordHash = nil
}

// FailListActive makes every ListActive call return err.
func (fd *FakeDirectory) FailListActive(err error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	fd.listErr = err
}

// FailClearActive makes every ClearActive call return err.
func (fd *FakeDirectory) FailClearActive(err error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	fd.clearErr = err
}

func (fd *FakeDirectory) Authenticate(_ context.Context, username, password, recoveryCode string) (*principals.Info, error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	rec, ok := fd.records[username]
	if !ok {
		return nil, autherrors.ErrAuthFailed
	}

	if bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)) == nil {
		info := rec.info
		return &info, nil
	}

	if recoveryCode != "" && rec.recoveryHash != nil &&
		bcrypt.CompareHashAndPassword(rec.recoveryHash, []byte(recoveryCode)) == nil {
		rec.isActive = false
		rec.token = ""
		info := rec.info
		return &info, nil
	}

	return nil, autherrors.ErrAuthFailed
}

func (fd *FakeDirectory) MarkActive(_ context.Context, username, token string, kind principals.Kind) error {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	rec, ok := fd.records[username]
	if !ok || rec.info.Kind != kind {
		return autherrors.ErrNotFound
	}
	rec.isActive = true
	rec.token = token
	return nil
}

func (fd *FakeDirectory) ClearActive(_ context.Context, token string, kind principals.Kind) error {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	if fd.clearErr != nil {
		return fd.clearErr
	}

	for _, rec := range fd.records {
		if rec.info.Kind == kind && rec.token == token {
			rec.isActive = false
			rec.token = ""
			return nil
		}
	}
	return nil // idempotent
}

func (fd *FakeDirectory) ListActive(_ context.Context, kind principals.Kind) ([]principals.Info, error) {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	if fd.listErr != nil {
		return nil, fd.listErr
	}

	active := make([]principals.Info, 0)
	for _, rec := range fd.records {
		if rec.info.Kind != kind || !rec.isActive || rec.token == "" {
			continue
		}
		info := rec.info
		info.Token = rec.token
		active = append(active, info)
	}
	return active, nil
}

// IsActive reports the directory's active flag for a username.
func (fd *FakeDirectory) IsActive(username string) bool {
	fd.lock.RLock()
	defer fd.lock.RUnlock()

	rec, ok := fd.records[username]
	return ok && rec.isActive
}
