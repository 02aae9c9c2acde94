// Package token adapts signed JWTs into the verified claims structure the
// gate consumes. Signature verification against the real identity provider
// happens upstream in production; this adapter covers HS256 service tokens
// and gives tests a concrete end-to-end claims source.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adonisja/tyche-finance-sub001/internal/authz"
	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
	"github.com/adonisja/tyche-finance-sub001/pkg/platform/sentinel"
)

// Claims is the JWT claim layout for access tokens.
type Claims struct {
	TenantID    string   `json:"tenant_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Email       string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service validates and mints access tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Validate parses and verifies a token string into RawClaims.
//
// Errors: CodeUnauthorized wrapping sentinel.ErrExpired for stale tokens;
// plain CodeUnauthorized for everything else (bad signature, wrong
// algorithm, malformed claims). The gate still re-checks expiry against
// the request time, so a token valid here can expire by decision time.
func (s *Service) Validate(tokenString string) (authz.RawClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authz.RawClaims{}, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeUnauthorized, "token has expired")
		}
		return authz.RawClaims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return authz.RawClaims{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	raw := authz.RawClaims{
		SubjectID:   claims.Subject,
		TenantID:    claims.TenantID,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Email:       claims.Email,
	}
	if claims.ExpiresAt != nil {
		raw.ExpiresAt = claims.ExpiresAt.Time
	}
	return raw, nil
}

// Mint signs an access token for the given identity. Used by dev tooling
// and tests; production tokens come from the identity provider.
func (s *Service) Mint(subjectID, tenantID, role string, permissions []string, email string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID:    tenantID,
		Role:        role,
		Permissions: permissions,
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	return signed, nil
}
