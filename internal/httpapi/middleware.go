// Package httpapi wires the orchestrator, leaderboard store, catalog and
// QR login service into a chi router exposing the public and
// third-party-read-only HTTP surfaces.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/phigros-go/phigros-backend/internal/reqid"
)

// requestIDMiddleware binds a request id to the request context: the
// client-supplied X-Request-Id header if it is a safe token, otherwise a
// freshly generated one. The id is always echoed back on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" || !reqid.IsValid(id) {
			id = reqid.New()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := reqid.WithID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer is an alias for chi's panic-recovery middleware, kept as a
// named wrapper so the router's middleware chain reads as one vocabulary.
var recoverer = middleware.Recoverer
