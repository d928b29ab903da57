package parse_test

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/parse"
)

func buildSummaryBytes(t *testing.T, saveVersion, challengeModeRank, gameVersion uint8, rankingScore float32, avatarRef string, progressBitmap []byte) []byte {
	t.Helper()
	buf := make([]byte, 0, 4+16+len(progressBitmap))
	buf = append(buf, saveVersion, challengeModeRank)
	rsBits := math.Float32bits(rankingScore)
	rsBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(rsBytes, rsBits)
	buf = append(buf, rsBytes...)
	buf = append(buf, gameVersion)

	avatarField := make([]byte, 16)
	require.LessOrEqual(t, len(avatarRef), 15)
	avatarField[0] = byte(len(avatarRef))
	copy(avatarField[1:], avatarRef)
	buf = append(buf, avatarField...)

	buf = append(buf, progressBitmap...)
	return buf
}

func TestParseSummary_RoundTrip(t *testing.T) {
	raw := buildSummaryBytes(t, 3, 7, 2, 123456.5, "myavatar", []byte{0xFF, 0x00, 0x12})

	summary, err := parse.ParseSummary(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), summary.SaveVersion)
	assert.Equal(t, uint8(7), summary.ChallengeModeRank)
	assert.InDelta(t, 123456.5, summary.RankingScore, 0.01)
	assert.Equal(t, uint8(2), summary.GameVersion)
	assert.Equal(t, "myavatar", summary.AvatarRef)
	assert.Equal(t, []byte{0xFF, 0x00, 0x12}, summary.ProgressBitmap)
}

func TestParseSummaryBase64_DecodesThenParses(t *testing.T) {
	raw := buildSummaryBytes(t, 1, 0, 1, 0, "", nil)
	b64 := base64.StdEncoding.EncodeToString(raw)

	summary, err := parse.ParseSummaryBase64(b64)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), summary.SaveVersion)
	assert.Equal(t, "", summary.AvatarRef)
}

func TestParseSummaryBase64_InvalidBase64Errors(t *testing.T) {
	_, err := parse.ParseSummaryBase64("not-valid-base64!!!")
	assert.Error(t, err)
}

func TestParseSummary_TruncatedInputErrors(t *testing.T) {
	_, err := parse.ParseSummary([]byte{1, 2})
	assert.Error(t, err)
}
