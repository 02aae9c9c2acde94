// Package httptransport is the thin HTTP layer over the authorization
// core. It validates bearer tokens into raw claims, runs the gate, maps
// internal decision reasons onto wire responses, and injects the granted
// principal into the request context for downstream handlers.
package httptransport

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/internal/authz"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	"github.com/adonisja/tyche-finance-sub001/pkg/requestcontext"
)

// TokenValidator turns a bearer token string into verified raw claims.
type TokenValidator interface {
	Validate(tokenString string) (authz.RawClaims, error)
}

// Policy is the per-route authorization requirement a handler declares.
type Policy struct {
	RequiredRole       domain.Role
	RequiredPermission domain.Permission
	Action             audit.Action
	Sensitive          bool
	Mutating           bool
}

// Middleware wires the token validator and gate in front of handlers.
type Middleware struct {
	validator TokenValidator
	gate      *authz.Gate
	logger    *slog.Logger
}

func NewMiddleware(validator TokenValidator, gate *authz.Gate, logger *slog.Logger) *Middleware {
	return &Middleware{validator: validator, gate: gate, logger: logger}
}

// WithRequestContext assigns a request ID and pins the request time so
// every decision and audit entry in this request shares one clock reading.
// Mount first in the chain.
func (m *Middleware) WithRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require guards a route with the given policy. The resource for tenant
// ownership checks is not known until the handler fetches the record, so
// routes with per-entity targets use Authorize inside the handler instead;
// Require covers collection-level and self-scoped endpoints.
func (m *Middleware) Require(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, ok := m.claimsFromHeader(w, r)
			if !ok {
				return
			}

			decision := m.gate.Authorize(ctx, authz.Request{
				Claims:             claims,
				RequiredRole:       policy.RequiredRole,
				RequiredPermission: policy.RequiredPermission,
				Action:             policy.Action,
				Sensitive:          policy.Sensitive,
				Mutating:           policy.Mutating,
			})
			if !decision.Authorized {
				m.writeDenial(w, decision)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, *decision.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize runs the gate for a handler that has already fetched its
// target and derived its tenant-scoped key. On denial the response is
// written and false returned; the handler must stop.
func (m *Middleware) Authorize(w http.ResponseWriter, r *http.Request, policy Policy, resource *authz.Resource) (domain.Principal, bool) {
	ctx := r.Context()

	claims, ok := m.claimsFromHeader(w, r)
	if !ok {
		return domain.Principal{}, false
	}

	decision := m.gate.Authorize(ctx, authz.Request{
		Claims:             claims,
		RequiredRole:       policy.RequiredRole,
		RequiredPermission: policy.RequiredPermission,
		Resource:           resource,
		Action:             policy.Action,
		Sensitive:          policy.Sensitive,
		Mutating:           policy.Mutating,
	})
	if !decision.Authorized {
		m.writeDenial(w, decision)
		return domain.Principal{}, false
	}
	return *decision.Principal, true
}

func (m *Middleware) claimsFromHeader(w http.ResponseWriter, r *http.Request) (authz.RawClaims, bool) {
	const bearerPrefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(authHeader, bearerPrefix)
	if !ok || tokenString == "" {
		ctx := r.Context()
		m.logger.WarnContext(ctx, "unauthorized access - missing token",
			"request_id", requestcontext.RequestID(ctx),
		)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
		return authz.RawClaims{}, false
	}

	claims, err := m.validator.Validate(tokenString)
	if err != nil {
		ctx := r.Context()
		m.logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		return authz.RawClaims{}, false
	}
	return claims, true
}

// writeDenial maps an internal decision onto the external response.
//
// The mapping deliberately collapses tenant_mismatch into the same 404
// body WriteNotFound produces for genuinely absent resources, so a caller
// cannot distinguish "exists in another tenant" from "does not exist".
// Internal reasons reach logs and metrics only.
func (m *Middleware) writeDenial(w http.ResponseWriter, decision authz.Decision) {
	switch decision.Reason {
	case authz.ReasonInvalidToken, authz.ReasonExpiredToken:
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	case authz.ReasonTenantMismatch:
		WriteNotFound(w)
	case authz.ReasonAuditWriteError:
		writeJSONError(w, http.StatusForbidden, "forbidden", "Request could not be completed")
	default:
		writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient privileges")
	}
}

// WriteNotFound writes the canonical not-found response. Handlers use it
// for genuinely absent resources so the body stays byte-identical to the
// tenant-mismatch denial.
func WriteNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
