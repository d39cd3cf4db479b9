package directory

import (
	"context"

	"github.com/fieldcollect/go-session-server/principals"
)

// CredentialDirectory is the narrow contract over the relational
// system-of-record. It is the only path through which directory records are
// read or written; everything else in the subsystem works off the session
// cache.
type CredentialDirectory interface {
	// Authenticate verifies a credential and returns the principal's identity
	// and tenant routing. recoveryCode, when non-empty, is an alternate
	// acceptance path that additionally force-closes the principal's lingering
	// active flag (a device that never logged out). Bad credentials return
	// errors.ErrAuthFailed.
	Authenticate(ctx context.Context, username, password, recoveryCode string) (*principals.Info, error)

	// MarkActive flags the principal active and records its session token.
	MarkActive(ctx context.Context, username, token string, kind principals.Kind) error

	// ClearActive drops the active flag and token for whichever principal of
	// the kind currently holds the token.
	ClearActive(ctx context.Context, token string, kind principals.Kind) error

	// ListActive enumerates every principal of the kind flagged active with a
	// non-null token.
	ListActive(ctx context.Context, kind principals.Kind) ([]principals.Info, error)
}
