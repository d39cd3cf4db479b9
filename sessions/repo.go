package sessions

import "context"

// Store defines the contract for the session cache. Implementations must be
// safe for concurrent use; atomicity is only required per document.
type Store interface {
	// GetByToken retrieves a session by its token. Returns
	// errors.ErrSessionNotFound when no document carries the token.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// UpsertForPrincipal deletes any existing session(s) for the document's
	// username, then inserts the new document with fresh timestamps. The
	// delete+insert pair is not atomic: a crash in between leaves the
	// principal with zero sessions (logged-out, self-healing), never with two.
	UpsertForPrincipal(ctx context.Context, session *Session) error

	// DeleteByToken removes a session by token. Idempotent; absence is not an
	// error.
	DeleteByToken(ctx context.Context, token string) error

	// ListAll enumerates every cached session. Diagnostic use only, never on
	// the request hot path.
	ListAll(ctx context.Context) ([]*Session, error)
}
