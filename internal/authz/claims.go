// Package authz turns a verified identity assertion into an authorization
// decision. It owns principal extraction, the role hierarchy, fine-grained
// permission checks, and the gate that composes them with tenant ownership
// verification and audit emission.
//
// The package performs no authentication: callers hand it claims whose
// signature an identity provider already verified.
package authz

import (
	"context"
	"time"

	"github.com/adonisja/tyche-finance-sub001/internal/tenantkey"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
	"github.com/adonisja/tyche-finance-sub001/pkg/platform/sentinel"
	"github.com/adonisja/tyche-finance-sub001/pkg/requestcontext"
)

// RawClaims is the verified claims structure produced by the identity
// provider (or the token adapter in internal/authz/token). Fields are
// loose strings on purpose: validation into the strict Principal happens
// exactly once, in Extract, and nothing downstream touches RawClaims.
type RawClaims struct {
	SubjectID   string
	TenantID    string
	Role        string
	Permissions []string
	Email       string
	ExpiresAt   time.Time
}

// Extract validates raw claims into a Principal. It is a pure function of
// the claims and the request time (requestcontext.Now).
//
// Errors: CodeUnauthorized for missing/empty subject, tenant, or role, a
// role outside the closed set, or a tenant ID containing the key
// delimiter; the same code wrapping sentinel.ErrExpired when the current
// time is at or after expiry. Unknown roles are never downgraded to a
// default role.
func Extract(ctx context.Context, claims RawClaims) (domain.Principal, error) {
	if claims.SubjectID == "" {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token missing subject")
	}
	if err := tenantkey.ValidateTenantID(claims.TenantID); err != nil {
		return domain.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token carries unusable tenant id")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token carries unknown role")
	}
	if claims.ExpiresAt.IsZero() {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token missing expiry")
	}
	if !requestcontext.Now(ctx).Before(claims.ExpiresAt) {
		return domain.Principal{}, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeUnauthorized, "token has expired")
	}

	return domain.Principal{
		SubjectID:   claims.SubjectID,
		TenantID:    claims.TenantID,
		Role:        role,
		Permissions: domain.NewPermissionSet(claims.Permissions),
		Email:       claims.Email,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}
