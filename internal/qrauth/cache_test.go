package qrauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/qrauth"
)

func TestCache_PutGet(t *testing.T) {
	c := qrauth.NewCache()
	c.Put("qr_1", model.QRSession{QRID: "qr_1", State: model.QRStatePending})

	got, ok := c.Get("qr_1")
	require.True(t, ok)
	assert.Equal(t, model.QRStatePending, got.State)
}

func TestCache_GetMissing(t *testing.T) {
	c := qrauth.NewCache()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestCache_Remove(t *testing.T) {
	c := qrauth.NewCache()
	c.Put("qr_1", model.QRSession{QRID: "qr_1"})
	c.Remove("qr_1")
	_, ok := c.Get("qr_1")
	assert.False(t, ok)
}

func TestCache_Len(t *testing.T) {
	c := qrauth.NewCache()
	c.Put("qr_1", model.QRSession{QRID: "qr_1"})
	c.Put("qr_2", model.QRSession{QRID: "qr_2"})
	assert.Equal(t, 2, c.Len())
}
