package domain

import (
	"strings"

	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
	pstrings "github.com/adonisja/tyche-finance-sub001/pkg/platform/strings"
)

// Permission is a fine-grained capability of the form
// "resource:action:scope", e.g. "cards:write:own".
//
// Matching is exact string equality on the full triple. Wildcard and
// hierarchical matching (e.g. "cards:*:own") are deliberately not
// implemented; see DESIGN.md open questions.
type Permission string

// ParsePermission validates the three-segment shape of a permission string.
//
// Errors: returns CodeInvalidInput when the value is empty or does not have
// exactly three non-empty colon-separated segments.
func ParsePermission(s string) (Permission, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission cannot be empty")
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "permission must be resource:action:scope")
	}
	for _, p := range parts {
		if p == "" {
			return "", dErrors.New(dErrors.CodeInvalidInput, "permission segments cannot be empty")
		}
	}
	return Permission(s), nil
}

func (p Permission) String() string { return string(p) }

// Resource returns the first segment of the triple.
func (p Permission) Resource() string { return p.segment(0) }

// Action returns the second segment of the triple.
func (p Permission) Action() string { return p.segment(1) }

// Scope returns the third segment of the triple.
func (p Permission) Scope() string { return p.segment(2) }

func (p Permission) segment(i int) string {
	parts := strings.Split(string(p), ":")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// PermissionSet is an exact-match membership set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from validated permission strings, dropping
// malformed entries. Tokens carry permissions as a flat string list; a
// malformed grant is treated as absent rather than failing the whole token.
func NewPermissionSet(raw []string) PermissionSet {
	cleaned := pstrings.DedupeAndTrim(raw)
	set := make(PermissionSet, len(cleaned))
	for _, s := range cleaned {
		p, err := ParsePermission(s)
		if err != nil {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Contains reports exact membership of the full triple.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions in the set in unspecified order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
