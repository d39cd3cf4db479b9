package sessions

import (
	"time"

	"github.com/fieldcollect/go-session-server/principals"
)

// Session is the cache document the request hot path reads. One document per
// username at most; Token is unique across all principals. Documents are never
// patched in place: a refresh fully replaces the document, and the store stamps
// CreatedAt/UpdatedAt on insert.
type Session struct {
	Token          string          `bson:"token" json:"token"`
	PrincipalID    int64           `bson:"principal_id" json:"principal_id"`
	PrincipalKind  principals.Kind `bson:"principal_kind" json:"principal_kind"`
	Username       string          `bson:"username" json:"username"`
	TenantHost     string          `bson:"tenant_host" json:"tenant_host"`
	TenantDBName   string          `bson:"tenant_db_name" json:"tenant_db_name"`
	TenantUser     string          `bson:"tenant_user" json:"tenant_user"`
	TenantPassword string          `bson:"tenant_password" json:"-"` // never serialize outward
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

// FromPrincipal builds the cache document for a principal and its token.
// Timestamps are left zero; the store sets them at insert time.
func FromPrincipal(info principals.Info, token string) *Session {
	return &Session{
		Token:          token,
		PrincipalID:    info.ID,
		PrincipalKind:  info.Kind,
		Username:       info.Username,
		TenantHost:     info.TenantHost,
		TenantDBName:   info.TenantDBName,
		TenantUser:     info.TenantUser,
		TenantPassword: info.TenantPassword,
	}
}
