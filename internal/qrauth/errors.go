package qrauth

import "github.com/rotisserie/eris"

// ErrNotFound is returned when qr_id is unknown to the cache, whether it
// never existed or has already been removed (expired, denied, or evicted
// from the cache).
var ErrNotFound = eris.New("qrauth: qr session not found")

// ErrExpired is returned when a Pending session is polled after its
// business expires_at deadline; the entry is removed as a side effect.
var ErrExpired = eris.New("qrauth: qr session expired")

// ErrDenied is returned when the companion device rejects the login;
// the entry is removed as a side effect.
var ErrDenied = eris.New("qrauth: qr session denied")
