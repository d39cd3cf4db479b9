package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Issuer generates opaque session tokens. A token is the hex-encoded SHA-256
// digest of username, a nanosecond timestamp and a fresh random UUID, so it is
// infeasible to predict and unique with overwhelming probability. The issuer
// consults no external state.
type Issuer struct {
	nowTime func() time.Time // injectable for testing
}

type Option func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

func NewIssuer(opts ...Option) *Issuer {
	issuer := &Issuer{nowTime: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// Issue returns a new opaque token for the username.
func (i *Issuer) Issue(username string) string {
	material := fmt.Sprintf("%s:%d:%s", username, i.nowTime().UnixNano(), uuid.New())
	digest := sha256.Sum256([]byte(material))
	return hex.EncodeToString(digest[:])
}
