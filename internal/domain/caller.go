package domain

import "strings"

// Caller is the already-authenticated identity on whose behalf a registry
// operation runs. Identity and role resolution happen upstream.
type Caller struct {
	ID    string
	Scope string
	Admin bool
}

// CanRead reports whether the caller may read a record in the given scope.
// Scoped callers see their own scope plus global records.
func (c Caller) CanRead(scope string) bool {
	if c.Admin {
		return true
	}
	return scope == ScopeGlobal || c.sameScope(scope)
}

// CanWrite reports whether the caller may create or alter a record in the
// given scope. Global records are writable by administrators only.
func (c Caller) CanWrite(scope string) bool {
	if c.Admin {
		return true
	}
	if scope == ScopeGlobal {
		return false
	}
	return c.sameScope(scope)
}

func (c Caller) sameScope(scope string) bool {
	own := strings.TrimSpace(c.Scope)
	return own != "" && own == strings.TrimSpace(scope)
}

// VisibleScopes returns the scope filter for list queries. An empty slice
// means unrestricted (administrator).
func (c Caller) VisibleScopes() []string {
	if c.Admin {
		return nil
	}
	own := strings.TrimSpace(c.Scope)
	if own == "" || own == ScopeGlobal {
		return []string{ScopeGlobal}
	}
	return []string{ScopeGlobal, own}
}
