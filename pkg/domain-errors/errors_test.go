package domainerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
)

func TestHasCode(t *testing.T) {
	err := dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.False(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.False(t, dErrors.HasCode(nil, dErrors.CodeUnauthorized))
}

func TestWrapPreservesChain(t *testing.T) {
	base := errors.New("connection refused")
	err := dErrors.Wrap(base, dErrors.CodeAuditWrite, "append audit entry")

	require.Error(t, err)
	assert.True(t, errors.Is(err, base))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuditWrite))
	assert.Contains(t, err.Error(), "append audit entry")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, dErrors.Wrap(nil, dErrors.CodeInternal, "no-op"))
}

func TestHasCodeNestedCodes(t *testing.T) {
	inner := dErrors.New(dErrors.CodeTimeout, "audit store deadline exceeded")
	outer := dErrors.Wrap(inner, dErrors.CodeAuditWrite, "append audit entry")

	assert.True(t, dErrors.HasCode(outer, dErrors.CodeAuditWrite))
	assert.True(t, dErrors.HasCode(outer, dErrors.CodeTimeout))
	assert.False(t, dErrors.HasCode(outer, dErrors.CodeNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(dErrors.New(dErrors.CodeForbidden, "insufficient role")))
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(errors.New("uncoded")))
	assert.Equal(t, dErrors.Code(""), dErrors.CodeOf(nil))
}
