package types

// ScopeKind tags which variant of Scope is active.
type ScopeKind int

const (
	ScopeNone   ScopeKind = iota // use the base secret as-is
	ScopeSecret                  // full override of the base secret
	ScopeRole                    // run as a builtin or user-defined role
	ScopeDoc                     // run as a document, "Collection/id"
)

var ScopeKindText = map[ScopeKind]string{
	ScopeNone:   "none",
	ScopeSecret: "secret",
	ScopeRole:   "role",
	ScopeDoc:    "document",
}

// Scope narrows the credential for a single query. Exactly one kind is active.
// It is never persisted.
type Scope struct {
	Kind  ScopeKind
	Value string
}

func NoScope() Scope              { return Scope{Kind: ScopeNone} }
func SecretScope(s string) Scope  { return Scope{Kind: ScopeSecret, Value: s} }
func RoleScope(role string) Scope { return Scope{Kind: ScopeRole, Value: role} }
func DocScope(doc string) Scope   { return Scope{Kind: ScopeDoc, Value: doc} }

// NewScope builds a Scope from optional fields. When several are supplied the
// explicit secret wins over a role, and a role wins over a document.
func NewScope(secret, role, doc *string) Scope {
	switch {
	case secret != nil:
		return SecretScope(*secret)
	case role != nil:
		return RoleScope(*role)
	case doc != nil:
		return DocScope(*doc)
	default:
		return NoScope()
	}
}
