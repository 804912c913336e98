// Package store routes every database operation of the service through one gateway.
//
// Operations are a closed set of typed procedure descriptors. Each descriptor carries
// its parameter and result types and the credential scope it needs, so call sites
// cannot pass a loosely typed argument bag or reach an elevated operation from a
// least-privilege client.
package store

// Scope is the credential scope a client holds or a procedure requires
type Scope int

const (
	// ScopeUser is the least-privilege scope used on behalf of a signed-in principal.
	ScopeUser Scope = iota + 1
	// ScopeElevated is the service scope used only by trusted server-side operations.
	ScopeElevated
)

// String returns the scope name used in logs and metrics
func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeElevated:
		return "elevated"
	default:
		return "none"
	}
}

// Allows reports whether a client holding s may run a procedure requiring required
func (s Scope) Allows(required Scope) bool {
	switch s {
	case ScopeElevated:
		return required == ScopeUser || required == ScopeElevated
	case ScopeUser:
		return required == ScopeUser
	}
	return false
}

// Procedure describes one store operation taking P and returning R
type Procedure[P, R any] struct {
	name  string
	scope Scope
}

// Define declares a procedure. Descriptors are package-level values; see procedures.go.
func Define[P, R any](name string, scope Scope) Procedure[P, R] {
	return Procedure[P, R]{name: name, scope: scope}
}

// Name returns the procedure name
func (p Procedure[P, R]) Name() string { return p.name }

// Scope returns the scope the procedure requires
func (p Procedure[P, R]) Scope() Scope { return p.scope }
