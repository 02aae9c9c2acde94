package httptransport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	"github.com/adonisja/tyche-finance-sub001/internal/audit/store/memory"
	"github.com/adonisja/tyche-finance-sub001/internal/authz"
	"github.com/adonisja/tyche-finance-sub001/internal/tenantkey"
	httptransport "github.com/adonisja/tyche-finance-sub001/internal/transport/http"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
	"github.com/adonisja/tyche-finance-sub001/pkg/requestcontext"
)

// stubValidator maps bearer token strings straight to raw claims, so the
// middleware tests exercise decision mapping without real JWTs.
type stubValidator struct {
	claims map[string]authz.RawClaims
}

func (v *stubValidator) Validate(tokenString string) (authz.RawClaims, error) {
	c, ok := v.claims[tokenString]
	if !ok {
		return authz.RawClaims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return c, nil
}

type MiddlewareSuite struct {
	suite.Suite
	store     *memory.Store
	validator *stubValidator
	mw        *httptransport.Middleware
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.store = memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	auditor, err := audit.NewLogger(s.store, audit.WithLogger(logger))
	s.Require().NoError(err)

	gate, err := authz.NewGate(authz.NewHierarchy(), auditor, authz.WithGateLogger(logger))
	s.Require().NoError(err)

	s.validator = &stubValidator{claims: map[string]authz.RawClaims{
		"user-token": {
			SubjectID:   "u-1",
			TenantID:    "T1",
			Role:        "user",
			Permissions: []string{"cards:write:own"},
			ExpiresAt:   time.Now().Add(time.Hour),
		},
		"admin-token": {
			SubjectID: "a-1",
			TenantID:  "T1",
			Role:      "admin",
			ExpiresAt: time.Now().Add(time.Hour),
		},
		"expired-token": {
			SubjectID: "u-2",
			TenantID:  "T1",
			Role:      "user",
			ExpiresAt: time.Now().Add(-time.Second),
		},
	}}

	s.mw = httptransport.NewMiddleware(s.validator, gate, logger)
}

func (s *MiddlewareSuite) get(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mw.WithRequestContext(handler).ServeHTTP(rec, req)
	return rec
}

func okHandler() (http.Handler, *bool) {
	called := new(bool)
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}), called
}

// =============================================================================
// Require Tests
// =============================================================================

func (s *MiddlewareSuite) TestRequire() {
	s.Run("missing token returns 401", func() {
		inner, called := okHandler()
		rec := s.get(s.mw.Require(httptransport.Policy{RequiredRole: domain.RoleUser})(inner), "")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.False(*called)
	})

	s.Run("unknown token returns 401", func() {
		inner, called := okHandler()
		rec := s.get(s.mw.Require(httptransport.Policy{RequiredRole: domain.RoleUser})(inner), "garbage")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.False(*called)
	})

	s.Run("expired claims return 401", func() {
		inner, called := okHandler()
		rec := s.get(s.mw.Require(httptransport.Policy{RequiredRole: domain.RoleUser})(inner), "expired-token")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.False(*called)
	})

	s.Run("insufficient role returns 403 without leaking detail", func() {
		inner, called := okHandler()
		rec := s.get(s.mw.Require(httptransport.Policy{RequiredRole: domain.RoleAdmin})(inner), "user-token")
		s.Equal(http.StatusForbidden, rec.Code)
		s.False(*called)
		s.NotContains(rec.Body.String(), "insufficient_role")
	})

	s.Run("grant injects the principal into context", func() {
		var got domain.Principal
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := requestcontext.Principal(r.Context())
			if ok {
				got = p
			}
			w.WriteHeader(http.StatusOK)
		})
		rec := s.get(s.mw.Require(httptransport.Policy{
			RequiredRole:       domain.RoleUser,
			RequiredPermission: "cards:write:own",
		})(inner), "user-token")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("u-1", got.SubjectID)
		s.Equal("T1", got.TenantID)
	})
}

// =============================================================================
// Anti-enumeration Tests
// =============================================================================

func (s *MiddlewareSuite) TestTenantMismatchMatchesNotFound() {
	foreignKey, err := tenantkey.Derive("T2", "CARD", "c-9")
	s.Require().NoError(err)

	// Handler fetched a record belonging to another tenant.
	mismatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := s.mw.Authorize(w, r, httptransport.Policy{
			RequiredRole: domain.RoleUser,
		}, &authz.Resource{Key: foreignKey})
		if !ok {
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mismatchRec := s.get(mismatch, "user-token")

	// Handler found nothing at all.
	absent := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httptransport.WriteNotFound(w)
	})
	absentRec := s.get(absent, "user-token")

	s.Equal(http.StatusNotFound, mismatchRec.Code)
	s.Equal(absentRec.Code, mismatchRec.Code)
	s.Equal(absentRec.Body.String(), mismatchRec.Body.String(),
		"cross-tenant denial must be byte-identical to a genuine miss")
}

// =============================================================================
// Audit Failure Mapping Tests
// =============================================================================

type downStore struct{}

func (downStore) Append(context.Context, audit.Entry) error { return errors.New("store down") }
func (downStore) Query(context.Context, string, time.Time, time.Time, audit.Filter) ([]audit.Entry, error) {
	return nil, errors.New("store down")
}

func (s *MiddlewareSuite) TestAuditWriteErrorMapsToForbidden() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor, err := audit.NewLogger(downStore{}, audit.WithLogger(logger))
	s.Require().NoError(err)
	gate, err := authz.NewGate(authz.NewHierarchy(), auditor, authz.WithGateLogger(logger))
	s.Require().NoError(err)
	mw := httptransport.NewMiddleware(s.validator, gate, logger)

	inner, called := okHandler()
	handler := mw.Require(httptransport.Policy{
		RequiredRole: domain.RoleAdmin,
		Action:       audit.ActionRoleChange,
		Sensitive:    true,
		Mutating:     true,
	})(inner)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	mw.WithRequestContext(handler).ServeHTTP(rec, req)

	s.Equal(http.StatusForbidden, rec.Code)
	s.False(*called, "mutating action must not proceed unlogged")
	s.NotContains(rec.Body.String(), "audit", "internal reason stays internal")
}

// =============================================================================
// Router Tests
// =============================================================================

func (s *MiddlewareSuite) TestAuditEndpoint() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor, err := audit.NewLogger(s.store, audit.WithLogger(logger))
	s.Require().NoError(err)
	gate, err := authz.NewGate(authz.NewHierarchy(), auditor, authz.WithGateLogger(logger))
	s.Require().NoError(err)
	mw := httptransport.NewMiddleware(s.validator, gate, logger)
	router := httptransport.NewRouter(mw, httptransport.NewAuditHandler(auditor, logger), nil)

	// Seed one entry in the admin's tenant and one in a foreign tenant.
	s.Require().NoError(auditor.Append(context.Background(), audit.Entry{
		TenantID: "T1", SubjectID: "u-1", Role: domain.RoleUser,
		Action: audit.ActionCardUpdate, Success: true,
	}))
	s.Require().NoError(auditor.Append(context.Background(), audit.Entry{
		TenantID: "T2", SubjectID: "x-1", Role: domain.RoleUser,
		Action: audit.ActionCardUpdate, Success: true,
	}))

	s.Run("non-admin is forbidden", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/audit/entries", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("admin sees only their tenant, and the read is itself audited", func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/audit/entries", nil)
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Entries []struct {
				SubjectID string `json:"subject_id"`
				Action    string `json:"action"`
			} `json:"entries"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))

		for _, e := range body.Entries {
			s.NotEqual("x-1", e.SubjectID, "foreign tenant entries must never appear")
		}

		// The query itself produced an audit_query entry for T1.
		var sawQuery, sawUpdate bool
		for _, e := range body.Entries {
			switch e.Action {
			case string(audit.ActionAuditQuery):
				sawQuery = true
			case string(audit.ActionCardUpdate):
				sawUpdate = true
			}
		}
		s.True(sawUpdate)
		s.True(sawQuery, "reading the trail is a sensitive read and lands in the trail")
	})
}
