package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtSecret_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("API_SECRET", "")

	require.ErrorIs(t, CheckJwtSecret(), ErrJwtSecretMissing)
	_, err := JwtGenerate("0xabc", RoleAdmin)
	require.ErrorIs(t, err, ErrJwtSecretMissing)
	_, err = JwtValidate("any.token.value")
	require.ErrorIs(t, err, ErrJwtSecretMissing)
}

func TestJwtSecret_DevFallbackTokenRejectedOnceSecretSet(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("API_SECRET", "")
	require.NoError(t, CheckJwtSecret())
	forged, err := JwtGenerate("0xabc", RoleApprover)
	require.NoError(t, err)

	t.Setenv("GO_ENV", "production")
	t.Setenv("API_SECRET", "s3cret")
	require.NoError(t, CheckJwtSecret())
	_, err = JwtValidate(forged)
	assert.Error(t, err)

	signed, err := JwtGenerate("0xABC", RoleApprover)
	require.NoError(t, err)
	token, err := JwtValidate(signed)
	require.NoError(t, err)
	claims, ok := token.Claims.(*JwtCustomClaim)
	require.True(t, ok)
	assert.Equal(t, "0xabc", claims.Address)
	assert.True(t, IsReviewer(claims.Role))
}
