// Package openauth authenticates the open-platform surface: a small
// set of long-lived tokens, each scoped to specific read endpoints and
// individually rate-limited per calling IP.
package openauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rotisserie/eris"
)

// Scope names a permission an open-platform token can hold.
type Scope string

const (
	ScopePublicRead  Scope = "public.read"
	ScopeProfileRead Scope = "profile.read"
)

// TokenRecord is one open-platform token as held by a TokenStore: a
// token's identity, granted scopes, and bookkeeping.
type TokenRecord struct {
	TokenHash string
	Label     string
	Scopes    []Scope
	Revoked   bool
}

// TokenStore resolves a hashed open-platform token to its record. A
// minimal in-memory implementation is provided for tests and small
// deployments; a production store can back it with the leaderboard
// database.
type TokenStore interface {
	Lookup(ctx context.Context, tokenHash string) (*TokenRecord, error)
}

// HashToken computes the HMAC-SHA256 digest of an open-platform token
// under serverSecret, the same primitive the identity hasher uses.
func HashToken(serverSecret, token string) string {
	mac := hmac.New(sha256.New, []byte(serverSecret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// ErrInvalidToken is returned when a token is unknown or revoked.
var ErrInvalidToken = eris.New("openauth: invalid or revoked token")

// ErrMissingScope is returned when a token lacks a scope an endpoint
// requires.
var ErrMissingScope = eris.New("openauth: token lacks required scope")

// Authenticator resolves and scope-checks open-platform tokens.
type Authenticator struct {
	serverSecret string
	store        TokenStore
}

// New builds an Authenticator.
func New(serverSecret string, store TokenStore) *Authenticator {
	return &Authenticator{serverSecret: serverSecret, store: store}
}

// Authorize resolves rawToken and verifies it carries required. It
// returns the resolved record so callers can log its label.
func (a *Authenticator) Authorize(ctx context.Context, rawToken string, required Scope) (*TokenRecord, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}
	hash := HashToken(a.serverSecret, rawToken)
	record, err := a.store.Lookup(ctx, hash)
	if err != nil {
		return nil, eris.Wrap(err, "openauth: lookup token")
	}
	if record == nil || record.Revoked {
		return nil, ErrInvalidToken
	}
	if !hasScope(record.Scopes, required) {
		return nil, ErrMissingScope
	}
	return record, nil
}

func hasScope(scopes []Scope, required Scope) bool {
	for _, s := range scopes {
		if s == required {
			return true
		}
	}
	return false
}

// MemoryTokenStore is a simple in-memory TokenStore keyed by token hash,
// suitable for tests and single-node deployments seeded from config.
type MemoryTokenStore struct {
	records map[string]*TokenRecord
}

// NewMemoryTokenStore builds a store from a fixed set of records.
func NewMemoryTokenStore(records ...TokenRecord) *MemoryTokenStore {
	m := make(map[string]*TokenRecord, len(records))
	for i := range records {
		r := records[i]
		m[r.TokenHash] = &r
	}
	return &MemoryTokenStore{records: m}
}

// Lookup implements TokenStore.
func (s *MemoryTokenStore) Lookup(ctx context.Context, tokenHash string) (*TokenRecord, error) {
	return s.records[tokenHash], nil
}
