package qrauth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/model"
)

func TestCache_OuterTTLExpiry(t *testing.T) {
	c := NewCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }

	c.Put("qr_1", model.QRSession{QRID: "qr_1"})

	now = now.Add(outerTTL + time.Minute)
	_, ok := c.Get("qr_1")
	assert.False(t, ok, "entry must expire past the outer TTL")
}

func TestCache_LRUEvictsColdestAtCapacity(t *testing.T) {
	c := NewCache()
	for i := 0; i < maxEntries; i++ {
		c.Put("qr_"+strconv.Itoa(i), model.QRSession{QRID: "qr_" + strconv.Itoa(i)})
	}
	require.Equal(t, maxEntries, c.Len())

	// Touch every entry but the first, keeping qr_0 coldest.
	for i := 1; i < maxEntries; i++ {
		_, _ = c.Get("qr_" + strconv.Itoa(i))
	}

	c.Put("qr_overflow", model.QRSession{QRID: "qr_overflow"})
	assert.Equal(t, maxEntries, c.Len())

	_, ok := c.Get("qr_0")
	assert.False(t, ok, "coldest entry should have been evicted")
	_, ok = c.Get("qr_overflow")
	assert.True(t, ok)
}
