package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phigros-go/phigros-backend/internal/apierr"
	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/fetcher"
	"github.com/phigros-go/phigros-backend/internal/identity"
	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/qrauth"
	"github.com/phigros-go/phigros-backend/internal/store"
)

func queryBool(r *http.Request, name string, def bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func resolveVersion(r *http.Request) fetcher.Version {
	if r.URL.Query().Get("region") == "global" {
		return fetcher.VersionGlobal
	}
	return fetcher.VersionCN
}

// handleSave runs the full save-retrieval-and-scoring pipeline.
// calculateRks=true (the default) also computes and asynchronously
// persists the player's leaderboard standing.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var cred model.Credential
	if err := decodeJSONBody(r, &cred); err != nil {
		writeError(w, r, err)
		return
	}

	calculateRKS := queryBool(r, "calculateRks", true)

	result, err := s.orch.SaveAndRKS(r.Context(), cred, resolveVersion(r), calculateRKS)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateQR(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("taptapVersion")
	res, err := s.qr.CreateQR(r.Context(), version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQRStatus(w http.ResponseWriter, r *http.Request) {
	qrID := chi.URLParam(r, "qr_id")
	outcome, err := s.qr.Poll(r.Context(), qrID)
	if err != nil {
		switch err {
		case qrauth.ErrNotFound:
			writeError(w, r, apierr.New(apierr.KindNotFound, "qr session not found"))
		case qrauth.ErrExpired:
			writeError(w, r, apierr.New(apierr.KindNotFound, "qr session expired"))
		case qrauth.ErrDenied:
			writeError(w, r, apierr.New(apierr.KindForbidden, "qr login denied"))
		default:
			writeError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleSongsSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	limit := catalog.DefaultLimit
	if raw := r.URL.Query().Get("limit"); r.URL.Query().Has("limit") {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, apierr.New(apierr.KindValidation, "limit must be an integer"))
			return
		}
		limit = v
	}
	offset := queryInt(r, "offset", 0)

	result, err := s.catalog.Search(q, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaderboardTop(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	lite := queryBool(r, "lite", false)

	var after *model.Cursor
	if scoreStr := r.URL.Query().Get("afterScore"); scoreStr != "" {
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			writeError(w, r, apierr.New(apierr.KindValidation, "afterScore must be numeric"))
			return
		}
		updated, err := time.Parse(time.RFC3339, r.URL.Query().Get("afterUpdatedAt"))
		if err != nil {
			writeError(w, r, apierr.New(apierr.KindValidation, "afterUpdatedAt must be RFC3339"))
			return
		}
		after = &model.Cursor{
			Score:     score,
			UpdatedAt: updated,
			UserKey:   r.URL.Query().Get("afterUser"),
		}
	}

	page, err := s.store.Top(r.Context(), limit, after, lite)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleLeaderboardByRank(w http.ResponseWriter, r *http.Request) {
	start := queryInt(r, "start", 1)
	count := queryInt(r, "count", 20)

	items, err := s.store.ByRank(r.Context(), start, count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) deriveUserKey(cred model.Credential) (string, error) {
	userKey, _ := identity.Derive(s.salt, cred)
	if userKey == nil {
		return "", apierr.New(apierr.KindValidation, "credential does not resolve to a user key")
	}
	return *userKey, nil
}

func (s *Server) handleLeaderboardMe(w http.ResponseWriter, r *http.Request) {
	var cred model.Credential
	if err := decodeJSONBody(r, &cred); err != nil {
		writeError(w, r, err)
		return
	}
	userKey, err := s.deriveUserKey(cred)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.store.RankOf(r.Context(), userKey)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, apierr.New(apierr.KindNotFound, "no leaderboard standing for this user"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type aliasRequest struct {
	Credential model.Credential `json:"credential"`
	Alias      string           `json:"alias"`
}

func (s *Server) handleLeaderboardAlias(w http.ResponseWriter, r *http.Request) {
	var req aliasRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userKey, err := s.deriveUserKey(req.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.PutAlias(r.Context(), userKey, req.Alias); err != nil {
		if err == store.ErrAliasTaken {
			writeError(w, r, apierr.New(apierr.KindConflict, "alias already taken"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"alias": req.Alias})
}

type profileRequest struct {
	Credential         model.Credential `json:"credential"`
	IsPublic           *bool            `json:"isPublic,omitempty"`
	ShowRksComposition *bool            `json:"showRksComposition,omitempty"`
	ShowBestTop3       *bool            `json:"showBestTop3,omitempty"`
	ShowAPTop3         *bool            `json:"showApTop3,omitempty"`
}

func (s *Server) handleLeaderboardProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userKey, err := s.deriveUserKey(req.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	flags := store.ProfileFlags{
		IsPublic:           req.IsPublic,
		ShowRksComposition: req.ShowRksComposition,
		ShowBestTop3:       req.ShowBestTop3,
		ShowAPTop3:         req.ShowAPTop3,
	}
	if err := s.store.PutProfile(r.Context(), userKey, flags); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLeaderboardProfileByPrefix(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "user_prefix")
	profile, err := s.store.Profile(r.Context(), prefix)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, apierr.New(apierr.KindNotFound, "no public profile for this prefix"))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
