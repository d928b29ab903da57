package rks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/rks"
)

func TestChartRKS_BelowFloorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, rks.ChartRKS(69.999, 15.0))
	assert.Equal(t, 0.0, rks.ChartRKS(0, 15.0))
}

func TestChartRKS_Formula(t *testing.T) {
	// acc=100, constant=15 => ((100-55)/45)^2 * 15 = 1*15 = 15
	assert.InDelta(t, 15.0, rks.ChartRKS(100, 15.0), 1e-9)
	// acc=70 exactly: ((70-55)/45)^2 * 15 = (1/3)^2*15 = 1.6666...
	assert.InDelta(t, 15.0/9.0, rks.ChartRKS(70, 15.0), 1e-9)
}

func TestIsAP(t *testing.T) {
	assert.True(t, rks.IsAP(100))
	assert.False(t, rks.IsAP(99.999))
}

func chartsWithValues(n int, valueFn func(i int) float64) []model.ChartRankingScore {
	out := make([]model.ChartRankingScore, n)
	for i := 0; i < n; i++ {
		v := valueFn(i)
		out[i] = model.ChartRankingScore{
			SongID:        "song" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Difficulty:    model.DifficultyAT,
			ChartConstant: v,
			Accuracy:      100, // AP, so rks == constant exactly
			Score:         1000000,
			IsFullCombo:   true,
		}
	}
	return out
}

// TestCompute_Best27WithAPOverlap: 30 charts with distinct rks values
// 1..30 (achieved via AP plays, constant==value). best27 holds 4..30
// (sum 459) and, since every chart is AP, ap_top3 holds 30,29,28 (sum 87)
// and folds into the same sum: total_rks = (459+87)/30 = 18.2.
func TestCompute_Best27WithAPOverlap(t *testing.T) {
	charts := chartsWithValues(30, func(i int) float64 { return float64(i + 1) })
	result := rks.Compute(charts)

	require.Len(t, result.BestN, 27)
	require.Len(t, result.APTop3, 3)

	// best27 = values 4..30 (highest 27 of 1..30)
	assert.InDelta(t, 30.0, result.BestN[0].RKS, 1e-9)
	assert.InDelta(t, 4.0, result.BestN[26].RKS, 1e-9)

	// ap_top3 = the 3 highest AP charts = values 30,29,28
	assert.InDelta(t, 30.0, result.APTop3[0].RKS, 1e-9)
	assert.InDelta(t, 28.0, result.APTop3[2].RKS, 1e-9)

	sumBest27 := 0.0
	for v := 4; v <= 30; v++ {
		sumBest27 += float64(v)
	}
	sumAP3 := 30.0 + 29.0 + 28.0
	wantTotal := (sumBest27 + sumAP3) / 30.0
	assert.InDelta(t, wantTotal, result.TotalRKS, 1e-9)
}

func TestCompute_FewerThan27Charts(t *testing.T) {
	charts := chartsWithValues(5, func(i int) float64 { return float64(i + 1) })
	result := rks.Compute(charts)
	require.Len(t, result.BestN, 5)
	require.Len(t, result.APTop3, 3)
	// n = 5 + 3 = 8; sum(best5) = 1+2+3+4+5=15; sum(ap3) = 5+4+3=12
	assert.InDelta(t, 27.0/8.0, result.TotalRKS, 1e-9)
}

func TestCompute_NoCharts(t *testing.T) {
	result := rks.Compute(nil)
	assert.Equal(t, 0.0, result.TotalRKS)
	assert.Empty(t, result.BestN)
	assert.Empty(t, result.APTop3)
}

func TestCompute_TieBreakDeterministic(t *testing.T) {
	charts := []model.ChartRankingScore{
		{SongID: "zzz", Difficulty: model.DifficultyAT, ChartConstant: 10, Accuracy: 100, Score: 1000000, IsFullCombo: true},
		{SongID: "aaa", Difficulty: model.DifficultyAT, ChartConstant: 10, Accuracy: 100, Score: 1000000, IsFullCombo: true},
	}
	result := rks.Compute(charts)
	require.Len(t, result.BestN, 2)
	// equal rks/accuracy/score: song_id asc breaks the tie
	assert.Equal(t, "aaa", result.BestN[0].SongID)
	assert.Equal(t, "zzz", result.BestN[1].SongID)
}

func TestCompute_GradeCounts(t *testing.T) {
	charts := []model.ChartRankingScore{
		{SongID: "a", Difficulty: model.DifficultyIN, ChartConstant: 10, Accuracy: 100, IsFullCombo: true},
		{SongID: "b", Difficulty: model.DifficultyIN, ChartConstant: 10, Accuracy: 80, IsFullCombo: true},
		{SongID: "c", Difficulty: model.DifficultyAT, ChartConstant: 10, Accuracy: 50, IsFullCombo: false},
	}
	result := rks.Compute(charts)
	assert.Equal(t, uint32(2), result.Counts.IN.C)
	assert.Equal(t, uint32(2), result.Counts.IN.FC)
	assert.Equal(t, uint32(1), result.Counts.IN.P)
	assert.Equal(t, uint32(1), result.Counts.AT.C)
	assert.Equal(t, uint32(0), result.Counts.AT.FC)
}
