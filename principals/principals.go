package principals

import "fmt"

// Kind identifies which of the three disjoint principal populations a
// credential belongs to. The set is closed: routing tables, directory queries
// and reconciliation all iterate Kinds() rather than branching on strings.
type Kind string

const (
	KindOwner     Kind = "owner"     // Owns a provisioned tenant database
	KindCollector Kind = "collector" // Field collector, inherits the owner's routing
	KindDelegate  Kind = "delegate"  // Back-office delegate, inherits the owner's routing
)

// Descriptor maps a Kind to the shape of its directory records and to
// kind-specific login behaviour. One table entry per kind replaces the
// per-kind code paths in login, reconciliation and routing.
type Descriptor struct {
	Kind           Kind
	Table          string // directory table holding this kind's credential rows
	UsernameColumn string
	ExportOnLogin  bool // collectors receive a tenant dataset export at login
}

var descriptors = map[Kind]Descriptor{
	KindOwner:     {Kind: KindOwner, Table: "owners", UsernameColumn: "owner_username"},
	KindCollector: {Kind: KindCollector, Table: "collectors", UsernameColumn: "collector_username", ExportOnLogin: true},
	KindDelegate:  {Kind: KindDelegate, Table: "delegates", UsernameColumn: "delegate_username"},
}

// Kinds returns every principal kind in reconciliation order.
func Kinds() []Kind {
	return []Kind{KindOwner, KindCollector, KindDelegate}
}

// Lookup returns the descriptor for a kind.
func Lookup(kind Kind) (Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// Parse converts a wire-level kind string into a Kind.
func Parse(s string) (Kind, error) {
	kind := Kind(s)
	if _, ok := descriptors[kind]; !ok {
		return "", fmt.Errorf("unknown principal kind %q", s)
	}
	return kind, nil
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	_, ok := descriptors[k]
	return ok
}

// Info is the directory's view of a principal: identity plus the tenant
// routing fields that scope its data access. Token is populated only when the
// record was listed from the directory's active set.
type Info struct {
	ID             int64
	Kind           Kind
	Username       string
	Token          string
	TenantHost     string
	TenantDBName   string
	TenantUser     string
	TenantPassword string
}
