package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/phigros-go/phigros-backend/internal/model"
)

const defaultTopLimit = 50
const maxTopLimit = 200
const maxTopLimitLite = 500

// Top returns a page of the public leaderboard, ranked
// (total_rks desc, updated_at asc, user_hash asc). lite trims the
// per-row top-3 detail blobs out of the response and raises the
// allowed page size, for callers that just want standings.
func (s *SQLiteStore) Top(ctx context.Context, limit int, after *model.Cursor, lite bool) (*model.LeaderboardTopPage, error) {
	limitCap := maxTopLimit
	if lite {
		limitCap = maxTopLimitLite
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > limitCap {
		limit = limitCap
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leaderboard_rks r
		JOIN user_profile p ON p.user_hash = r.user_hash
		WHERE p.is_public = 1`).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "store: count public rows")
	}

	query := `
		SELECT r.user_hash, r.total_rks, r.updated_at, p.alias,
		       p.show_best_top3, p.show_ap_top3,
		       d.best_top3_json, d.ap_top3_json
		FROM leaderboard_rks r
		JOIN user_profile p ON p.user_hash = r.user_hash
		LEFT JOIN leaderboard_details d ON d.user_hash = r.user_hash
		WHERE p.is_public = 1`
	args := []any{}
	if after != nil {
		query += ` AND (r.total_rks < ? OR (r.total_rks = ? AND r.updated_at > ?) OR (r.total_rks = ? AND r.updated_at = ? AND r.user_hash > ?))`
		args = append(args, after.Score, after.Score, after.UpdatedAt.UTC().Format(time.RFC3339), after.Score, after.UpdatedAt.UTC().Format(time.RFC3339), after.UserKey)
	}
	query += ` ORDER BY r.total_rks DESC, r.updated_at ASC, r.user_hash ASC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: query top page")
	}
	defer rows.Close()

	type row struct {
		userHash   string
		total      float64
		updatedAt  string
		alias      sql.NullString
		showBest   bool
		showAP     bool
		bestJSON   sql.NullString
		apJSON     sql.NullString
	}
	var fetched []row
	for rows.Next() {
		var r row
		var showBestInt, showAPInt int
		if err := rows.Scan(&r.userHash, &r.total, &r.updatedAt, &r.alias, &showBestInt, &showAPInt, &r.bestJSON, &r.apJSON); err != nil {
			return nil, eris.Wrap(err, "store: scan top row")
		}
		r.showBest = showBestInt != 0
		r.showAP = showAPInt != 0
		fetched = append(fetched, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate top rows")
	}

	hasMore := len(fetched) > limit
	if hasMore {
		fetched = fetched[:limit]
	}

	items := make([]model.LeaderboardTopItem, 0, len(fetched))
	for i, r := range fetched {
		updatedAt, err := time.Parse(time.RFC3339, r.updatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "store: parse updated_at")
		}
		item := model.LeaderboardTopItem{
			Rank:      int64(i + 1),
			User:      maskUserKey(r.userHash),
			Score:     r.total,
			UpdatedAt: updatedAt,
		}
		if r.alias.Valid {
			alias := r.alias.String
			item.Alias = &alias
		}
		if !lite {
			if r.showBest && r.bestJSON.Valid {
				_ = json.Unmarshal([]byte(r.bestJSON.String), &item.BestTop3)
			}
			if r.showAP && r.apJSON.Valid {
				_ = json.Unmarshal([]byte(r.apJSON.String), &item.APTop3)
			}
		}
		items = append(items, item)
	}

	page := &model.LeaderboardTopPage{Items: items, Total: total, HasMore: hasMore}
	if hasMore && len(fetched) > 0 {
		last := fetched[len(fetched)-1]
		lastUpdated, _ := time.Parse(time.RFC3339, last.updatedAt)
		masked := maskUserKey(last.userHash)
		page.NextAfterScore = &last.total
		page.NextAfterUpdated = &lastUpdated
		page.NextAfterUser = &masked
	}
	return page, nil
}

// ByRank returns the public rows whose competition rank lies in
// [start, start+count). start is 1-based; ties (equal total_rks) share a
// rank and the next distinct score skips accordingly, so a tie at the
// window's end can yield more than count rows.
func (s *SQLiteStore) ByRank(ctx context.Context, start, count int) ([]model.LeaderboardTopItem, error) {
	if start < 1 {
		start = 1
	}
	if count <= 0 {
		count = defaultTopLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_hash, total_rks, updated_at, rnk FROM (
			SELECT r.user_hash, r.total_rks, r.updated_at,
			       RANK() OVER (ORDER BY r.total_rks DESC) AS rnk
			FROM leaderboard_rks r
			JOIN user_profile p ON p.user_hash = r.user_hash
			WHERE p.is_public = 1
		)
		WHERE rnk >= ? AND rnk < ?
		ORDER BY total_rks DESC, updated_at ASC, user_hash ASC`, start, start+count)
	if err != nil {
		return nil, eris.Wrap(err, "store: query rank window")
	}
	defer rows.Close()

	items := make([]model.LeaderboardTopItem, 0, count)
	for rows.Next() {
		var userHash, updatedAtStr string
		var total float64
		var rank int64
		if err := rows.Scan(&userHash, &total, &updatedAtStr, &rank); err != nil {
			return nil, eris.Wrap(err, "store: scan rank row")
		}
		updatedAt, err := time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, eris.Wrap(err, "store: parse updated_at")
		}
		items = append(items, model.LeaderboardTopItem{
			Rank:      rank,
			User:      maskUserKey(userHash),
			Score:     total,
			UpdatedAt: updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate rank rows")
	}
	return items, nil
}

// RankOf computes a user's 1-based competition rank among public rows
// and the percentile that places them at, rounded to two decimals.
func (s *SQLiteStore) RankOf(ctx context.Context, userKey string) (*model.RankOfResult, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `SELECT total_rks FROM leaderboard_rks WHERE user_hash = ?`, userKey).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read own total")
	}

	var rank int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1 FROM leaderboard_rks r
		JOIN user_profile p ON p.user_hash = r.user_hash
		WHERE p.is_public = 1 AND r.total_rks > ?`, total).Scan(&rank); err != nil {
		return nil, eris.Wrap(err, "store: compute rank")
	}

	var totalCount int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leaderboard_rks r
		JOIN user_profile p ON p.user_hash = r.user_hash
		WHERE p.is_public = 1`).Scan(&totalCount); err != nil {
		return nil, eris.Wrap(err, "store: count public rows")
	}

	percentile := 100.0
	if totalCount > 0 {
		percentile = roundTo2(100 * float64(totalCount-rank+1) / float64(totalCount))
	}

	return &model.RankOfResult{Rank: rank, Score: total, Total: totalCount, Percentile: percentile}, nil
}

// Profile reads the privacy-projected public profile for a user
// identified by a hash prefix, honoring each visibility flag
// independently.
func (s *SQLiteStore) Profile(ctx context.Context, userKeyPrefix string) (*PublicProfile, error) {
	var userHash, alias sql.NullString
	var isPublic, showComp, showBest, showAP int
	var total float64
	var updatedAt string
	var bestJSON, apJSON, compJSON sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT r.user_hash, p.alias, p.is_public, p.show_rks_composition, p.show_best_top3, p.show_ap_top3,
		       r.total_rks, r.updated_at, d.best_top3_json, d.ap_top3_json, d.rks_composition_json
		FROM user_profile p
		JOIN leaderboard_rks r ON r.user_hash = p.user_hash
		LEFT JOIN leaderboard_details d ON d.user_hash = p.user_hash
		WHERE p.user_hash LIKE ? || '%'
		LIMIT 1`, userKeyPrefix).Scan(&userHash, &alias, &isPublic, &showComp, &showBest, &showAP, &total, &updatedAt, &bestJSON, &apJSON, &compJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: read profile")
	}
	if isPublic == 0 {
		return nil, ErrNotFound
	}

	out := &PublicProfile{
		UserKeyMasked: maskUserKey(userHash.String),
		TotalRKS:      total,
		UpdatedAt:     updatedAt,
	}
	if alias.Valid {
		out.Alias = alias.String
	}
	if showComp != 0 && compJSON.Valid {
		var comp model.RksComposition
		if json.Unmarshal([]byte(compJSON.String), &comp) == nil {
			out.RksComposition = &comp
		}
	}
	if showBest != 0 && bestJSON.Valid {
		_ = json.Unmarshal([]byte(bestJSON.String), &out.BestTop3)
	}
	if showAP != 0 && apJSON.Valid {
		_ = json.Unmarshal([]byte(apJSON.String), &out.APTop3)
	}
	return out, nil
}

// ErrNotFound is returned by read operations that find no matching,
// visible row.
var ErrNotFound = eris.New("store: not found")

// maskUserKey projects a full user_hash down to a 4-char prefix for the
// wire. Masked values double as keyset-pagination cursors: '*' (0x2A)
// sorts below every lowercase hex digit, so "abcd****" is a valid
// strict lower bound for any real hash starting with "abcd" in the
// r.user_hash > ? comparison in Top, without ever round-tripping the
// unmasked hash through the client.
func maskUserKey(userHash string) string {
	if len(userHash) <= 4 {
		return userHash + "****"
	}
	return userHash[:4] + "****"
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
