package openauth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/openauth"
)

func TestAuthorize_ValidTokenWithScope(t *testing.T) {
	secret := "server-secret"
	hash := openauth.HashToken(secret, "tok-123")
	store := openauth.NewMemoryTokenStore(openauth.TokenRecord{
		TokenHash: hash, Label: "partner-a", Scopes: []openauth.Scope{openauth.ScopePublicRead},
	})
	auth := openauth.New(secret, store)

	record, err := auth.Authorize(context.Background(), "tok-123", openauth.ScopePublicRead)
	require.NoError(t, err)
	assert.Equal(t, "partner-a", record.Label)
}

func TestAuthorize_UnknownToken(t *testing.T) {
	auth := openauth.New("s", openauth.NewMemoryTokenStore())
	_, err := auth.Authorize(context.Background(), "nope", openauth.ScopePublicRead)
	assert.ErrorIs(t, err, openauth.ErrInvalidToken)
}

func TestAuthorize_EmptyToken(t *testing.T) {
	auth := openauth.New("s", openauth.NewMemoryTokenStore())
	_, err := auth.Authorize(context.Background(), "", openauth.ScopePublicRead)
	assert.ErrorIs(t, err, openauth.ErrInvalidToken)
}

func TestAuthorize_RevokedToken(t *testing.T) {
	secret := "s"
	hash := openauth.HashToken(secret, "tok-1")
	store := openauth.NewMemoryTokenStore(openauth.TokenRecord{TokenHash: hash, Revoked: true, Scopes: []openauth.Scope{openauth.ScopePublicRead}})
	auth := openauth.New(secret, store)
	_, err := auth.Authorize(context.Background(), "tok-1", openauth.ScopePublicRead)
	assert.ErrorIs(t, err, openauth.ErrInvalidToken)
}

func TestAuthorize_MissingScope(t *testing.T) {
	secret := "s"
	hash := openauth.HashToken(secret, "tok-1")
	store := openauth.NewMemoryTokenStore(openauth.TokenRecord{TokenHash: hash, Scopes: []openauth.Scope{openauth.ScopePublicRead}})
	auth := openauth.New(secret, store)
	_, err := auth.Authorize(context.Background(), "tok-1", openauth.ScopeProfileRead)
	assert.ErrorIs(t, err, openauth.ErrMissingScope)
}

func TestHashToken_Deterministic(t *testing.T) {
	h1 := openauth.HashToken("secret", "token")
	h2 := openauth.HashToken("secret", "token")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, openauth.HashToken("secret", "other"))
}
