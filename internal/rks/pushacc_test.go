package rks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/rks"
)

func TestPushAccFor_NoCharts(t *testing.T) {
	out := rks.PushAccFor(nil, model.PlayerRksResult{})
	assert.Empty(t, out)
}

func TestPushAccFor_AlreadyPhi(t *testing.T) {
	charts := []model.ChartRankingScore{
		{SongID: "a", Difficulty: model.DifficultyAT, ChartConstant: 15, Accuracy: 100, IsFullCombo: true},
	}
	result := rks.Compute(charts)
	out := rks.PushAccFor(charts, result)
	target := out[rks.KeyOf(charts[0])]
	assert.Equal(t, model.PushAccHintAlreadyPhi, target.Hint)
}

func TestPushAccFor_MemberChartTargetAcc(t *testing.T) {
	charts := []model.ChartRankingScore{
		{SongID: "a", Difficulty: model.DifficultyAT, ChartConstant: 15, Accuracy: 90},
	}
	result := rks.Compute(charts)
	out := rks.PushAccFor(charts, result)
	target := out[rks.KeyOf(charts[0])]
	require.Equal(t, model.PushAccHintTargetAcc, target.Hint)
	assert.Greater(t, target.Accuracy, 90.0)
	assert.Less(t, target.Accuracy, 100.0)

	// Verify: the solved accuracy, applied back, should raise total_rks by
	// ~0.01 (n=1 here, so the chart's own rks carries the whole total).
	bumped := rks.ChartRKS(target.Accuracy, 15)
	original := rks.ChartRKS(90, 15)
	assert.InDelta(t, 0.01, bumped-original, 1e-3)
}

func TestPushAccFor_Unreachable(t *testing.T) {
	// constant so low that even 100% accuracy can't supply the needed delta
	// when this chart must displace a much stronger best27 cutoff.
	charts := make([]model.ChartRankingScore, 0, 28)
	for i := 0; i < 27; i++ {
		charts = append(charts, model.ChartRankingScore{
			SongID: "strong" + string(rune('a'+i)), Difficulty: model.DifficultyAT,
			ChartConstant: 16, Accuracy: 100, IsFullCombo: true,
		})
	}
	weak := model.ChartRankingScore{SongID: "weak", Difficulty: model.DifficultyAT, ChartConstant: 1, Accuracy: 50}
	charts = append(charts, weak)

	result := rks.Compute(charts)
	out := rks.PushAccFor(charts, result)
	target := out[rks.KeyOf(weak)]
	assert.Equal(t, model.PushAccHintUnreachable, target.Hint)
}

func TestPushAccFor_SkipsUnknownConstant(t *testing.T) {
	charts := []model.ChartRankingScore{
		{SongID: "a", Difficulty: model.DifficultyAT, ChartConstant: 0, Accuracy: 90},
	}
	result := rks.Compute(charts)
	out := rks.PushAccFor(charts, result)
	_, ok := out[rks.KeyOf(charts[0])]
	assert.False(t, ok)
}
