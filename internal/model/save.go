package model

import (
	"encoding/json"
	"time"
)

// DifficultyRecord is a single chart's recorded play result, as decoded
// from gameRecord, optionally enriched with catalog + RKS-engine output.
type DifficultyRecord struct {
	Difficulty    Difficulty   `json:"difficulty"`
	Score         uint32       `json:"score"`
	Accuracy      float32      `json:"accuracy"`
	IsFullCombo   bool         `json:"isFullCombo"`
	ChartConstant *float32     `json:"chartConstant,omitempty"`
	PushAcc       *float64     `json:"pushAcc,omitempty"`
	PushAccHint   *PushAccHint `json:"pushAccHint,omitempty"`
}

// PushAccHint classifies what a push-ACC target means for a given record.
type PushAccHint string

const (
	PushAccHintTargetAcc   PushAccHint = "TargetAcc"
	PushAccHintPhiOnly     PushAccHint = "PhiOnly"
	PushAccHintUnreachable PushAccHint = "Unreachable"
	PushAccHintAlreadyPhi  PushAccHint = "AlreadyPhi"
)

// SaveSummary is the decoded header block of a save (the `summary` field
// of the upstream metadata, base64-decoded and binary-parsed).
type SaveSummary struct {
	SaveVersion       uint8   `json:"saveVersion"`
	ChallengeModeRank uint8   `json:"challengeModeRank"`
	RankingScore      float32 `json:"rankingScore"`
	GameVersion       uint8   `json:"gameVersion"`
	AvatarRef         string  `json:"avatarRef"`
	ProgressBitmap    []byte  `json:"-"`
}

// SaveDocument is the fully parsed form of a player's save.
type SaveDocument struct {
	UpdatedAt         time.Time                     `json:"updatedAt"`
	Summary           *SaveSummary                  `json:"summaryParsed,omitempty"`
	SummaryParseError string                        `json:"summaryParseError,omitempty"`
	GameRecord        map[string][]DifficultyRecord `json:"gameRecord"`
	GameProgress      json.RawMessage               `json:"gameProgress"`
	User              json.RawMessage               `json:"user"`
	Settings          json.RawMessage               `json:"settings"`
	GameKey           json.RawMessage               `json:"gameKey"`

	// EntryErrors records per-entry decrypt/parse diagnostics keyed by
	// container entry name; it never fails the overall parse unless the
	// gameRecord entry itself is unreadable.
	EntryErrors map[string]string `json:"-"`
}
