package parse

import (
	"encoding/base64"

	"github.com/rotisserie/eris"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// avatarRefFieldLen is the fixed width of the length-prefixed avatar
// reference field: one length byte followed by up to 15 content bytes.
const avatarRefFieldLen = 16

// ParseSummaryBase64 decodes and parses the base64-encoded summary
// header. A malformed summary never fails the overall save request; the
// caller is expected to record the error as SummaryParseError and carry
// on with summary_parsed = nil.
func ParseSummaryBase64(summaryB64 string) (*model.SaveSummary, error) {
	raw, err := base64.StdEncoding.DecodeString(summaryB64)
	if err != nil {
		return nil, eris.Wrap(err, "parse: decode summary base64")
	}
	return ParseSummary(raw)
}

// ParseSummary decodes the fixed-layout summary header:
//
//	u8 save_version | u8 challenge_mode_rank | u32 ranking_score (f32 LE) |
//	u8 game_version | u8[16] avatar_ref (length-prefixed) | progress_bitmap (rest)
func ParseSummary(raw []byte) (*model.SaveSummary, error) {
	c := newCursor(raw)

	saveVersion, err := c.u8()
	if err != nil {
		return nil, eris.Wrap(err, "parse: summary save_version")
	}
	challengeModeRank, err := c.u8()
	if err != nil {
		return nil, eris.Wrap(err, "parse: summary challenge_mode_rank")
	}
	rankingScore, err := c.f32LE()
	if err != nil {
		return nil, eris.Wrap(err, "parse: summary ranking_score")
	}
	gameVersion, err := c.u8()
	if err != nil {
		return nil, eris.Wrap(err, "parse: summary game_version")
	}

	avatarField, err := c.take(avatarRefFieldLen)
	if err != nil {
		return nil, eris.Wrap(err, "parse: summary avatar_ref")
	}
	avatarLen := int(avatarField[0])
	if avatarLen > avatarRefFieldLen-1 {
		avatarLen = avatarRefFieldLen - 1
	}
	avatarRef := string(avatarField[1 : 1+avatarLen])

	progressBitmap := append([]byte{}, c.rest()...)

	return &model.SaveSummary{
		SaveVersion:       saveVersion,
		ChallengeModeRank: challengeModeRank,
		RankingScore:      rankingScore,
		GameVersion:       gameVersion,
		AvatarRef:         avatarRef,
		ProgressBitmap:    progressBitmap,
	}, nil
}
