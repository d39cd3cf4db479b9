package server

import (
	"context"

	"github.com/fieldcollect/go-session-server/principals"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the authenticated principal identity
	ContextKeyIdentity ContextKey = "identity"
	// ContextKeyTenantConnection stores the request's tenant routing
	ContextKeyTenantConnection ContextKey = "tenant_connection"
)

// Identity is the authenticated principal the gate attaches to the request
// context. Downstream collaborators use it for coarse authorization.
type Identity struct {
	PrincipalID int64           `json:"principal_id"`
	Kind        principals.Kind `json:"kind"`
	Username    string          `json:"username"`
}

// TenantConnectionDescriptor is the per-request routing information scoping
// business-data calls to one owner's isolated database. Built in memory from
// the session document on every request; never persisted by this subsystem.
type TenantConnectionDescriptor struct {
	Host     string
	DBName   string
	User     string
	Password string
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

func withTenantConnection(ctx context.Context, conn TenantConnectionDescriptor) context.Context {
	return context.WithValue(ctx, ContextKeyTenantConnection, conn)
}

// IdentityFromContext returns the identity the gate attached, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(Identity)
	return identity, ok
}

// TenantConnectionFromContext returns the request's tenant routing, if any.
func TenantConnectionFromContext(ctx context.Context) (TenantConnectionDescriptor, bool) {
	conn, ok := ctx.Value(ContextKeyTenantConnection).(TenantConnectionDescriptor)
	return conn, ok
}
