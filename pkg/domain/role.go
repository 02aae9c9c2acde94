package domain

import (
	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
)

// Role is a domain value identifying a principal's coarse-grained access
// level. Invariant: the value is one of the closed role set.
//
// Usage: construct via ParseRole at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Role string

// Supported roles, ordered from least to most privileged.
const (
	RoleUser  Role = "user"
	RoleDev   Role = "dev"
	RoleAdmin Role = "admin"
)

// roleRanks is the single source of truth for valid roles and their
// ordering. Higher rank subsumes lower.
var roleRanks = map[Role]int{
	RoleUser:  1,
	RoleDev:   2,
	RoleAdmin: 3,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or outside the
// known role set. Unknown roles are never downgraded to a default; the
// caller must treat the error as an invalid token.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the role's position in the ordering, or 0 for unknown roles
// so that an unvalidated role never satisfies any requirement.
func (r Role) Rank() int {
	return roleRanks[r]
}

func (r Role) String() string { return string(r) }

// Roles returns the closed role set in ascending rank order.
func Roles() []Role {
	return []Role{RoleUser, RoleDev, RoleAdmin}
}
