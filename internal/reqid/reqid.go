// Package reqid propagates a request correlation id through a context.
// Go has no task-local storage; context.Context values are the idiomatic
// stand-in for the original implementation's task-local binding.
package reqid

import (
	"context"
	"regexp"

	"github.com/google/uuid"
)

type ctxKey struct{}

var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// IsValid reports whether a client-supplied request id is safe to echo
// back verbatim.
func IsValid(id string) bool {
	return validIDPattern.MatchString(id)
}

// New generates a server-side request id in the "req_<uuid-simple>" shape.
func New() string {
	return "req_" + noDashes(uuid.New().String())
}

func noDashes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// WithID returns a child context carrying id, for propagation to
// subtasks including those rooted in a fresh context.Background().
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request id bound to ctx, or "" if absent.
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// Propagate copies the request id bound to src onto dst, so a subtask
// spawned on a fresh background context still carries it.
func Propagate(src, dst context.Context) context.Context {
	if id := FromContext(src); id != "" {
		return WithID(dst, id)
	}
	return dst
}
