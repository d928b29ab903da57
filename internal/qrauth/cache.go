// Package qrauth implements the QR-code device-authorization dance: a
// caller creates a session keyed by qr_id, a companion device scans and
// approves it upstream, and the original caller polls until it resolves
// to a session token. State lives in a bounded, TTL-expiring cache —
// there is no database backing it.
package qrauth

import (
	"sync"
	"time"

	"github.com/phigros-go/phigros-backend/internal/model"
)

const (
	maxEntries = 10_000
	outerTTL   = 30 * time.Minute
)

type entry struct {
	session    model.QRSession
	insertedAt time.Time
	lastTouch  time.Time
}

// Cache is a concurrent, TTL-bounded, size-bounded map of in-flight QR
// sessions keyed by qr_id. Expiry is checked lazily on access; touched
// entries are moved to the back of lru so eviction drops the coldest
// entry first once the cache is full.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     []string // front = coldest, back = most recently touched

	nowFunc func() time.Time
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		nowFunc: time.Now,
	}
}

// Put inserts or replaces the session at qrID, evicting the coldest
// entry first if the cache is already at capacity.
func (c *Cache) Put(qrID string, session model.QRSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	if _, exists := c.entries[qrID]; !exists && len(c.entries) >= maxEntries {
		c.evictOldestLocked()
	}
	c.entries[qrID] = &entry{session: session, insertedAt: now, lastTouch: now}
	c.touchLocked(qrID)
}

// Get returns the live session at qrID, or ok=false if absent or past
// its outer 30-minute TTL (in which case the entry is removed).
func (c *Cache) Get(qrID string) (model.QRSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[qrID]
	if !ok {
		return model.QRSession{}, false
	}
	now := c.nowFunc()
	if now.Sub(e.insertedAt) > outerTTL {
		c.removeLocked(qrID)
		return model.QRSession{}, false
	}
	e.lastTouch = now
	c.touchLocked(qrID)
	return e.session, true
}

// Remove deletes qrID from the cache unconditionally.
func (c *Cache) Remove(qrID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(qrID)
}

func (c *Cache) removeLocked(qrID string) {
	delete(c.entries, qrID)
	for i, id := range c.lru {
		if id == qrID {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
}

func (c *Cache) touchLocked(qrID string) {
	for i, id := range c.lru {
		if id == qrID {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, qrID)
}

func (c *Cache) evictOldestLocked() {
	if len(c.lru) == 0 {
		return
	}
	oldest := c.lru[0]
	c.lru = c.lru[1:]
	delete(c.entries, oldest)
}

// Len reports the current entry count, for tests and metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
