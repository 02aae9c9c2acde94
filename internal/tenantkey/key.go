// Package tenantkey builds and validates tenant-scoped storage keys. It
// centralizes the tenant boundary at the key-derivation level so every
// store sees keys that provably encode exactly one tenant, regardless of
// the storage backend behind them.
package tenantkey

import (
	"strings"

	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
)

// Delimiter joins key segments in rendered keys. Tenant IDs containing it
// are rejected outright; entity segments are sanitized instead.
const Delimiter = "#"

// Key is a composite storage identifier scoped to exactly one tenant.
// Construct via Derive or Parse; a zero Key is not a valid key.
type Key struct {
	TenantID   string
	EntityType string
	EntityID   string
}

// Derive builds a tenant-scoped key from its parts.
//
// The tenant ID is validated before rendering: an empty tenant ID, or one
// containing the delimiter, is rejected with CodeInvalidInput. Without this
// check a crafted tenant ID such as "A#B" would render to the same bytes as
// tenant "A" with an entity segment "B...", defeating tenant isolation.
// Validation happens here, not at call sites, so no caller can skip it.
func Derive(tenantID, entityType, entityID string) (Key, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return Key{}, err
	}
	if entityType == "" {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "entity type cannot be empty")
	}
	if entityID == "" {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "entity id cannot be empty")
	}
	return Key{
		TenantID:   tenantID,
		EntityType: sanitizeSegment(entityType),
		EntityID:   sanitizeSegment(entityID),
	}, nil
}

// ValidateTenantID checks that a tenant ID is usable as a key segment.
//
// Errors: returns CodeInvalidInput when the tenant ID is empty or contains
// the key delimiter.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant id cannot be empty")
	}
	if strings.Contains(tenantID, Delimiter) {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant id contains reserved delimiter")
	}
	return nil
}

// sanitizeSegment escapes delimiter characters in entity segments to
// prevent key collision attacks where a user-controlled identifier
// containing "#" could shift segment boundaries.
func sanitizeSegment(s string) string {
	return strings.ReplaceAll(s, Delimiter, "_")
}

// String renders the key for storage. Rendering is deterministic and, for
// valid tenant IDs, injective in the tenant segment: two distinct tenants
// can never render to the same key.
func (k Key) String() string {
	return k.TenantID + Delimiter + k.EntityType + Delimiter + k.EntityID
}

// IsZero reports whether the key is the zero value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Parse splits a previously rendered key back into its segments.
//
// Errors: returns CodeValidation when the rendered form does not have
// exactly three non-empty segments. Keys produced by Derive always parse.
func Parse(rendered string) (Key, error) {
	parts := strings.Split(rendered, Delimiter)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, dErrors.New(dErrors.CodeValidation, "malformed tenant-scoped key")
	}
	return Key{TenantID: parts[0], EntityType: parts[1], EntityID: parts[2]}, nil
}

// VerifyOwnership confirms the key's embedded tenant segment matches the
// tenant of the current principal. This is a second, independent check run
// after a record is fetched, so a bug that derives the wrong key upstream
// still cannot leak another tenant's data.
func VerifyOwnership(k Key, expectedTenantID string) bool {
	if k.IsZero() || expectedTenantID == "" {
		return false
	}
	return k.TenantID == expectedTenantID
}
