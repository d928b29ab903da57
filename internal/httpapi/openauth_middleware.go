package httpapi

import (
	"errors"
	"net"
	"net/http"

	"github.com/phigros-go/phigros-backend/internal/apierr"
	"github.com/phigros-go/phigros-backend/internal/openauth"
)

// openAuthMiddleware authenticates a request on the X-OpenApi-Token
// header, enforces required, and rate-limits per token hash and client
// IP so a single third-party integration cannot starve the others.
func (s *Server) openAuthMiddleware(required openauth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-OpenApi-Token")
			rec, err := s.openAuth.Authorize(r.Context(), token, required)
			if err != nil {
				switch {
				case errors.Is(err, openauth.ErrInvalidToken):
					writeError(w, r, apierr.New(apierr.KindAuth, "missing or invalid open-platform token"))
				case errors.Is(err, openauth.ErrMissingScope):
					writeError(w, r, apierr.New(apierr.KindForbidden, "token lacks required scope"))
				default:
					writeError(w, r, err)
				}
				return
			}

			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if s.openLimiter != nil && !s.openLimiter.Allow(rec.TokenHash+":"+ip) {
				writeError(w, r, apierr.New(apierr.KindRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
