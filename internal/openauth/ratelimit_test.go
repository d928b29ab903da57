package openauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phigros-go/phigros-backend/internal/openauth"
)

func TestLimiterRegistry_AllowsUpToBurstThenBlocks(t *testing.T) {
	r := openauth.NewLimiterRegistry(1, 2)
	key := "tok:1.2.3.4"

	assert.True(t, r.Allow(key))
	assert.True(t, r.Allow(key))
	assert.False(t, r.Allow(key), "third immediate call should exceed the burst of 2")
}

func TestLimiterRegistry_SeparateKeysAreIndependent(t *testing.T) {
	r := openauth.NewLimiterRegistry(1, 1)
	assert.True(t, r.Allow("tok:1.1.1.1"))
	assert.True(t, r.Allow("tok:2.2.2.2"), "a different key must have its own budget")
}

func TestLimiterRegistry_Len(t *testing.T) {
	r := openauth.NewLimiterRegistry(1, 1)
	r.Allow("a")
	r.Allow("b")
	assert.Equal(t, 2, r.Len())
}
