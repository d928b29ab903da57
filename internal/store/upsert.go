package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/model"
)

// ErrAliasTaken is returned when a requested alias already belongs to
// a different user under case-insensitive comparison.
var ErrAliasTaken = eris.New("store: alias already taken")

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// UpsertLeaderboardRKS applies the monotonic leaderboard write: absent
// rows are inserted outright; present rows are replaced only when the
// new total improves on the stored one. A worse or equal total is a
// no-op so a stale replay can never regress a player's rank. The
// suspicious flag is sticky: an improving write ORs the new flag into
// the stored one, so once set it is never cleared here.
func (s *SQLiteStore) UpsertLeaderboardRKS(ctx context.Context, userKey string, newTotal float64, sourceKey *string, penalty float64, suspicious bool, now string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin upsert")
	}
	defer func() { _ = tx.Rollback() }()

	var storedTotal float64
	var storedSuspicious bool
	err = tx.QueryRowContext(ctx, `SELECT total_rks, suspicious FROM leaderboard_rks WHERE user_hash = ?`, userKey).
		Scan(&storedTotal, &storedSuspicious)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboard_rks (user_hash, total_rks, source_key, penalty, suspicious, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userKey, newTotal, sourceKey, penalty, suspicious, now); err != nil {
			return eris.Wrap(err, "store: insert leaderboard row")
		}
	case err != nil:
		return eris.Wrap(err, "store: read existing leaderboard row")
	case newTotal > storedTotal:
		effectiveSuspicious := storedSuspicious || suspicious
		if _, err := tx.ExecContext(ctx, `
			UPDATE leaderboard_rks
			SET total_rks = ?, source_key = ?, penalty = ?, suspicious = ?, updated_at = ?
			WHERE user_hash = ? AND total_rks < ?`,
			newTotal, sourceKey, penalty, effectiveSuspicious, now, userKey, newTotal); err != nil {
			return eris.Wrap(err, "store: update leaderboard row")
		}
	default:
		// stored total is already >= newTotal: no-op, preserves monotonicity.
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profile (user_hash, is_public, show_rks_composition, show_best_top3, show_ap_top3, created_at, updated_at)
		VALUES (?, 0, 1, 1, 1, ?, ?)
		ON CONFLICT(user_hash) DO NOTHING`, userKey, now, now); err != nil {
		return eris.Wrap(err, "store: ensure profile row")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit upsert")
	}
	return nil
}

// PutDetails replaces the composition/top-list breakdown behind a
// player's total. It is written independently of UpsertLeaderboardRKS
// so a detail refresh never has to re-litigate the monotonic guard.
func (s *SQLiteStore) PutDetails(ctx context.Context, userKey string, composition model.RksComposition, bestTop3, apTop3 []model.ChartTextItem, now string) error {
	compJSON, err := json.Marshal(composition)
	if err != nil {
		return eris.Wrap(err, "store: marshal rks composition")
	}
	bestJSON, err := json.Marshal(bestTop3)
	if err != nil {
		return eris.Wrap(err, "store: marshal best top3")
	}
	apJSON, err := json.Marshal(apTop3)
	if err != nil {
		return eris.Wrap(err, "store: marshal ap top3")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leaderboard_details (user_hash, rks_composition_json, best_top3_json, ap_top3_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_hash) DO UPDATE SET
			rks_composition_json = excluded.rks_composition_json,
			best_top3_json = excluded.best_top3_json,
			ap_top3_json = excluded.ap_top3_json,
			updated_at = excluded.updated_at`,
		userKey, string(compJSON), string(bestJSON), string(apJSON), now)
	if err != nil {
		return eris.Wrap(err, "store: upsert leaderboard details")
	}
	return nil
}

// PutAlias assigns a case-insensitively unique display alias to a
// user. Validation and conflict detection happen under the fold so
// "Anna" and "anna" can never coexist as two different aliases.
func (s *SQLiteStore) PutAlias(ctx context.Context, userKey, alias string) error {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		return eris.New("store: alias must not be empty")
	}
	if len(trimmed) > 24 {
		return eris.New("store: alias exceeds 24 characters")
	}

	folded := catalog.Fold(trimmed)
	rows, err := s.db.QueryContext(ctx, `SELECT user_hash, alias FROM user_profile WHERE alias IS NOT NULL`)
	if err != nil {
		return eris.Wrap(err, "store: check alias uniqueness")
	}
	for rows.Next() {
		var owner, existingAlias string
		if err := rows.Scan(&owner, &existingAlias); err != nil {
			rows.Close()
			return eris.Wrap(err, "store: scan alias row")
		}
		if owner != userKey && catalog.Fold(existingAlias) == folded {
			rows.Close()
			return ErrAliasTaken
		}
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "store: iterate alias rows")
	}
	rows.Close()

	res, err := s.db.ExecContext(ctx, `UPDATE user_profile SET alias = ?, updated_at = ? WHERE user_hash = ?`,
		trimmed, nowRFC3339(), userKey)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return ErrAliasTaken
		}
		return eris.Wrap(err, "store: set alias")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected after alias update")
	}
	if n == 0 {
		return eris.New("store: no profile row for user")
	}
	return nil
}

// PutProfile applies only the non-nil visibility flags, leaving the
// rest of the row untouched.
func (s *SQLiteStore) PutProfile(ctx context.Context, userKey string, profile ProfileFlags) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profile (user_hash, is_public, show_rks_composition, show_best_top3, show_ap_top3, created_at, updated_at)
		VALUES (?, 0, 1, 1, 1, ?, ?)
		ON CONFLICT(user_hash) DO NOTHING`, userKey, nowRFC3339(), nowRFC3339())
	if err != nil {
		return eris.Wrap(err, "store: ensure profile row before update")
	}

	set := []string{"updated_at = ?"}
	args := []any{nowRFC3339()}
	if profile.IsPublic != nil {
		set = append(set, "is_public = ?")
		args = append(args, boolToInt(*profile.IsPublic))
	}
	if profile.ShowRksComposition != nil {
		set = append(set, "show_rks_composition = ?")
		args = append(args, boolToInt(*profile.ShowRksComposition))
	}
	if profile.ShowBestTop3 != nil {
		set = append(set, "show_best_top3 = ?")
		args = append(args, boolToInt(*profile.ShowBestTop3))
	}
	if profile.ShowAPTop3 != nil {
		set = append(set, "show_ap_top3 = ?")
		args = append(args, boolToInt(*profile.ShowAPTop3))
	}
	args = append(args, userKey)

	query := "UPDATE user_profile SET " + strings.Join(set, ", ") + " WHERE user_hash = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrap(err, "store: update profile flags")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
