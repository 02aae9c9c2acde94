// Package audit records sensitive actions as immutable, uniquely keyed
// entries. Entries are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"time"

	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
)

// RetentionWindow bounds how long audit entries are kept. ExpiresAt is
// computed at append time; the actual deletion is the storage layer's
// expiry mechanism, not this package's.
const RetentionWindow = 90 * 24 * time.Hour

// Action identifies what was attempted. Sensitive handlers pass one of
// these through the gate so audit entries stay greppable.
type Action string

const (
	ActionCardCreate     Action = "card_create"
	ActionCardUpdate     Action = "card_update"
	ActionCardDelete     Action = "card_delete"
	ActionBudgetUpdate   Action = "budget_update"
	ActionTxnImport      Action = "transaction_import"
	ActionUserDataAccess Action = "user_data_access"
	ActionRoleChange     Action = "role_change"
	ActionAuditQuery     Action = "audit_query"
)

// Entry is one immutable audit record. Once appended it is never updated
// or deleted through this package; no store interface exposes either.
type Entry struct {
	// ID is the store sort key: a ULID seeded from Timestamp, so entries
	// order by time and concurrent same-millisecond appends never collide.
	// Assigned by the Logger; leave empty when constructing.
	ID string

	TenantID  string
	SubjectID string
	Role      domain.Role
	Action    Action
	// Resource is the rendered tenant-scoped key of the target, when one
	// exists for the action.
	Resource   string
	ResourceID string
	// TargetSubjectID is set when the action touches another user's data,
	// e.g. an admin viewing a member's transactions.
	TargetSubjectID string
	Details         string
	Timestamp       time.Time
	Success         bool
	ErrorMessage    string
	// ExpiresAt is advisory retention metadata for the storage layer.
	ExpiresAt time.Time
}

// Filter narrows a Query beyond tenant and time range. Zero values match
// everything.
type Filter struct {
	SubjectID string
	Action    Action
	// Success filters on outcome when set.
	Success *bool
}

// Matches reports whether the entry passes the filter.
func (f Filter) Matches(e Entry) bool {
	if f.SubjectID != "" && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}
