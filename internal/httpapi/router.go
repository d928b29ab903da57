package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/openauth"
	"github.com/phigros-go/phigros-backend/internal/orchestrator"
	"github.com/phigros-go/phigros-backend/internal/qrauth"
	"github.com/phigros-go/phigros-backend/internal/store"
)

// Server holds every dependency the HTTP surface needs. It is built once
// at startup and its handler methods are safe for concurrent use.
type Server struct {
	orch        *orchestrator.Orchestrator
	catalog     *catalog.Catalog
	store       store.Store
	qr          *qrauth.Service
	salt        string
	openAuth    *openauth.Authenticator
	openLimiter *openauth.LimiterRegistry
}

// NewServer wires a Server from its components. openAuth and
// openLimiter may both be nil, in which case the /open/* surface is not
// mounted.
func NewServer(orch *orchestrator.Orchestrator, cat *catalog.Catalog, st store.Store, qr *qrauth.Service, salt string, openAuth *openauth.Authenticator, openLimiter *openauth.LimiterRegistry) *Server {
	return &Server{orch: orch, catalog: cat, store: st, qr: qr, salt: salt, openAuth: openAuth, openLimiter: openLimiter}
}

// Router builds the full chi.Mux: request-id binding outermost, then
// panic recovery and CORS, followed by the public routes and, when
// configured, the token-authenticated read-only /open/* mirror.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id", "X-OpenApi-Token"},
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.handleHealth)

	r.Post("/save", s.handleSave)
	r.Post("/auth/qrcode", s.handleCreateQR)
	r.Get("/auth/qrcode/{qr_id}/status", s.handleQRStatus)
	r.Get("/songs/search", s.handleSongsSearch)
	r.Get("/leaderboard/rks/top", s.handleLeaderboardTop)
	r.Get("/leaderboard/rks/by-rank", s.handleLeaderboardByRank)
	r.Post("/leaderboard/me", s.handleLeaderboardMe)
	r.Put("/leaderboard/alias", s.handleLeaderboardAlias)
	r.Put("/leaderboard/profile", s.handleLeaderboardProfile)
	r.Get("/leaderboard/profile/{user_prefix}", s.handleLeaderboardProfileByPrefix)

	if s.openAuth != nil {
		r.Route("/open", func(or chi.Router) {
			or.With(s.openAuthMiddleware(openauth.ScopePublicRead)).Get("/songs/search", s.handleSongsSearch)
			or.With(s.openAuthMiddleware(openauth.ScopePublicRead)).Get("/leaderboard/rks/top", s.handleLeaderboardTop)
			or.With(s.openAuthMiddleware(openauth.ScopePublicRead)).Get("/leaderboard/rks/by-rank", s.handleLeaderboardByRank)
			or.With(s.openAuthMiddleware(openauth.ScopeProfileRead)).
				Get("/leaderboard/profile/{user_prefix}", s.handleLeaderboardProfileByPrefix)
		})
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
