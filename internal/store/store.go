// Package store is the leaderboard's persistence layer: a local embedded
// SQLite database holding the best known total_rks per pseudonymous
// user, plus the profile/alias rows that gate what a ranked read exposes.
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/phigros-go/phigros-backend/internal/model"
)

// Store is the leaderboard persistence contract. It is implemented by
// SQLiteStore; the interface exists so the orchestrator and HTTP layer
// depend on behavior, not on a concrete driver.
type Store interface {
	UpsertLeaderboardRKS(ctx context.Context, userKey string, newTotal float64, sourceKey *string, penalty float64, suspicious bool, now string) error
	PutDetails(ctx context.Context, userKey string, composition model.RksComposition, bestTop3, apTop3 []model.ChartTextItem, now string) error
	Top(ctx context.Context, limit int, after *model.Cursor, lite bool) (*model.LeaderboardTopPage, error)
	ByRank(ctx context.Context, start, count int) ([]model.LeaderboardTopItem, error)
	RankOf(ctx context.Context, userKey string) (*model.RankOfResult, error)
	PutAlias(ctx context.Context, userKey, alias string) error
	PutProfile(ctx context.Context, userKey string, profile ProfileFlags) error
	Profile(ctx context.Context, userKeyPrefix string) (*PublicProfile, error)
	Close() error
}

// ProfileFlags are the mutable visibility switches on a user_profile row.
type ProfileFlags struct {
	IsPublic            *bool
	ShowRksComposition  *bool
	ShowBestTop3        *bool
	ShowAPTop3          *bool
}

// PublicProfile is the privacy-projected view of a user_profile row plus
// its current leaderboard standing, suitable for the public endpoint.
type PublicProfile struct {
	UserKeyMasked      string
	Alias              string
	TotalRKS           float64
	RksComposition     *model.RksComposition
	BestTop3           []model.ChartTextItem
	APTop3             []model.ChartTextItem
	UpdatedAt          string
}

// SQLiteStore implements Store using modernc.org/sqlite, following the
// teacher's DSN-pragma-string and bounded-pool-size idioms.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) the leaderboard database at dsn.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "store: ping")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const schemaMigration = `
CREATE TABLE IF NOT EXISTS leaderboard_rks (
	user_hash  TEXT PRIMARY KEY,
	total_rks  REAL NOT NULL,
	source_key TEXT,
	penalty    REAL NOT NULL DEFAULT 0,
	suspicious INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_rks_ranked
	ON leaderboard_rks(total_rks DESC, updated_at, user_hash);

CREATE TABLE IF NOT EXISTS leaderboard_details (
	user_hash            TEXT PRIMARY KEY REFERENCES leaderboard_rks(user_hash),
	rks_composition_json TEXT,
	best_top3_json       TEXT,
	ap_top3_json         TEXT,
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profile (
	user_hash              TEXT PRIMARY KEY,
	alias                  TEXT UNIQUE,
	is_public              INTEGER NOT NULL DEFAULT 0,
	show_rks_composition   INTEGER NOT NULL DEFAULT 1,
	show_best_top3         INTEGER NOT NULL DEFAULT 1,
	show_ap_top3           INTEGER NOT NULL DEFAULT 1,
	user_kind              TEXT NOT NULL DEFAULT 'standard',
	created_at             TEXT NOT NULL,
	updated_at             TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_profile_alias_fold ON user_profile(alias);
`

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(schemaMigration); err != nil {
		return eris.Wrap(err, "store: run migration")
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
