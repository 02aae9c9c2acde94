package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/internal/tenantkey"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
	"github.com/adonisja/tyche-finance-sub001/pkg/platform/sentinel"
	"github.com/adonisja/tyche-finance-sub001/pkg/requestcontext"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tyche_authz_decisions_total",
	Help: "Authorization decisions by internal reason",
}, []string{"reason"})

// Reason classifies a decision for internal logging and telemetry. It is
// never echoed verbatim to an external caller; the transport layer owns
// the external mapping, including collapsing tenant_mismatch into the
// not-found shape.
type Reason string

const (
	ReasonGranted          Reason = "granted"
	ReasonInvalidToken     Reason = "invalid_token"
	ReasonExpiredToken     Reason = "expired_token"
	ReasonInsufficientRole Reason = "insufficient_role"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTenantMismatch   Reason = "tenant_mismatch"
	ReasonAuditWriteError  Reason = "audit_write_error"
)

// Decision is the outcome of one gate invocation. Never mutated after
// return. Principal is set whenever claim extraction succeeded, including
// on denials, so callers can attribute the attempt.
type Decision struct {
	Authorized bool
	Reason     Reason
	Principal  *domain.Principal
}

func granted(p domain.Principal) Decision {
	return Decision{Authorized: true, Reason: ReasonGranted, Principal: &p}
}

func denied(reason Reason, p *domain.Principal) Decision {
	return Decision{Authorized: false, Reason: reason, Principal: p}
}

// Resource describes the target of the request for tenant ownership
// verification and audit attribution.
type Resource struct {
	// Key is the tenant-scoped key the handler derived (or parsed from the
	// fetched record) for the target entity.
	Key tenantkey.Key
	// TargetSubjectID identifies the user whose data is touched when that
	// differs from the caller, e.g. admin access to a member's records.
	TargetSubjectID string
}

// Request carries one authorization question through the gate.
type Request struct {
	Claims             RawClaims
	RequiredRole       domain.Role
	RequiredPermission domain.Permission // empty means role check suffices
	Resource           *Resource         // nil when no target entity exists
	// Action names the operation for the audit trail. Required when
	// Sensitive is set.
	Action audit.Action
	// Sensitive actions append an audit entry before the gate returns.
	Sensitive bool
	// Mutating selects fail-closed audit semantics: a sensitive mutating
	// action whose audit write fails is denied, because a
	// compliance-relevant change must not proceed unlogged. Sensitive
	// read-only actions fail open on audit errors.
	Mutating bool
	// Details is free-form audit context supplied by the handler.
	Details string
}

// Auditor is the capability the gate needs from the audit subsystem.
// Injected so tests can substitute an in-memory double and assert exact
// entries.
type Auditor interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Gate is the stateless, single-pass authorization pipeline. Safe for
// concurrent use; the only shared state is the immutable hierarchy and
// the injected auditor.
type Gate struct {
	hierarchy Hierarchy
	auditor   Auditor
	log       *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for fail-open audit failures and denial
// telemetry.
func WithGateLogger(log *slog.Logger) GateOption {
	return func(g *Gate) { g.log = log }
}

// NewGate constructs the gate. The auditor is required: a gate that cannot
// record sensitive actions must not come up at all.
func NewGate(hierarchy Hierarchy, auditor Auditor, opts ...GateOption) (*Gate, error) {
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "auditor is required")
	}
	g := &Gate{
		hierarchy: hierarchy,
		auditor:   auditor,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Authorize runs the decision pipeline: extract principal, check role,
// check permission, verify tenant ownership, then audit if the action is
// sensitive. Every branch is an explicit allow-list; there is no silent
// default-allow path.
func (g *Gate) Authorize(ctx context.Context, req Request) Decision {
	decision := g.decide(ctx, req)

	if req.Sensitive && decision.Principal != nil {
		decision = g.recordAudit(ctx, req, decision)
	}

	decisionsTotal.WithLabelValues(string(decision.Reason)).Inc()
	if !decision.Authorized {
		g.log.WarnContext(ctx, "authorization denied",
			"reason", decision.Reason,
			"required_role", req.RequiredRole,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return decision
}

func (g *Gate) decide(ctx context.Context, req Request) Decision {
	principal, err := Extract(ctx, req.Claims)
	if err != nil {
		// No audit entry on token failures: there is no trustworthy
		// identity to attribute the attempt to. Raw-input logging is the
		// transport layer's concern.
		if errors.Is(err, sentinel.ErrExpired) {
			return denied(ReasonExpiredToken, nil)
		}
		return denied(ReasonInvalidToken, nil)
	}

	if !g.hierarchy.Satisfies(principal.Role, req.RequiredRole) {
		return denied(ReasonInsufficientRole, &principal)
	}

	if !CheckPermission(principal, req.RequiredPermission) {
		return denied(ReasonPermissionDenied, &principal)
	}

	if req.Resource != nil && !tenantkey.VerifyOwnership(req.Resource.Key, principal.TenantID) {
		return denied(ReasonTenantMismatch, &principal)
	}

	return granted(principal)
}

// recordAudit appends the entry for a sensitive action before the decision
// is returned. Fail-closed on the mutating path, fail-open on reads.
func (g *Gate) recordAudit(ctx context.Context, req Request, decision Decision) Decision {
	p := *decision.Principal

	entry := audit.Entry{
		TenantID:  p.TenantID,
		SubjectID: p.SubjectID,
		Role:      p.Role,
		Action:    req.Action,
		Timestamp: requestcontext.Now(ctx),
		Success:   decision.Authorized,
		Details:   req.Details,
	}
	if req.Resource != nil {
		entry.Resource = req.Resource.Key.String()
		entry.ResourceID = req.Resource.Key.EntityID
		entry.TargetSubjectID = req.Resource.TargetSubjectID
	}
	if !decision.Authorized {
		entry.ErrorMessage = string(decision.Reason)
	}

	if err := g.auditor.Append(ctx, entry); err != nil {
		if req.Mutating {
			// A compliance-relevant change must not proceed unlogged.
			g.log.ErrorContext(ctx, "audit append failed on mutating action, denying",
				"action", req.Action,
				"tenant_id", p.TenantID,
				"error", err,
			)
			return denied(ReasonAuditWriteError, decision.Principal)
		}
		// Blocking reads on logging infrastructure hiccups is a worse
		// trade-off than one missed audit line for non-mutating access.
		g.log.ErrorContext(ctx, "audit append failed on read action, proceeding",
			"action", req.Action,
			"tenant_id", p.TenantID,
			"error", err,
		)
	}
	return decision
}
