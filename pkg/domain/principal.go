package domain

import "time"

// Principal is the authenticated identity for the current request: who the
// caller is, which tenant partitions they may touch, and what they may do.
//
// Invariant: SubjectID and TenantID are immutable for the lifetime of the
// token. Role may change between tokens (re-issued after promotion) but
// never within a single authorization decision.
type Principal struct {
	SubjectID   string
	TenantID    string
	Role        Role
	Permissions PermissionSet
	// Email is carried for display and audit enrichment only; it is never
	// an input to an authorization decision.
	Email     string
	ExpiresAt time.Time
}
