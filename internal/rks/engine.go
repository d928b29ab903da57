// Package rks implements the deterministic RKS (rating score) algorithm:
// per-chart scoring, best-N selection with a total tie-break order, and
// the player-level aggregate used by the leaderboard.
package rks

import (
	"sort"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// BestNSize is the number of top charts ("best27") folded into total_rks.
const BestNSize = 27

// APTopSize is the number of all-perfect charts folded into total_rks.
const APTopSize = 3

// accuracyFloor is the minimum accuracy that yields a non-zero rks.
const accuracyFloor = 70.0

// ChartRKS computes the per-chart rating for a single play.
//
//	accuracy < 70  => 0
//	otherwise      => ((accuracy-55)/45)^2 * constant
func ChartRKS(accuracy, constant float64) float64 {
	if accuracy < accuracyFloor {
		return 0
	}
	norm := (accuracy - 55) / 45
	return norm * norm * constant
}

// IsAP reports whether an accuracy value counts as "all perfect".
func IsAP(accuracy float64) bool {
	return accuracy == 100.0
}

// sortCharts orders charts by the deterministic best-N rule: rks desc,
// accuracy desc, score desc, (song_id, difficulty) asc.
func sortCharts(charts []model.ChartRankingScore) {
	sort.SliceStable(charts, func(i, j int) bool {
		return charts[i].Less(charts[j])
	})
}

// Compute builds the full PlayerRksResult from a player's charted scores.
// charts need not be pre-sorted or have RKS/IsAP populated; Compute fills
// them in from Accuracy and ChartConstant.
func Compute(charts []model.ChartRankingScore) model.PlayerRksResult {
	working := make([]model.ChartRankingScore, len(charts))
	copy(working, charts)
	for i := range working {
		working[i].RKS = ChartRKS(working[i].Accuracy, working[i].ChartConstant)
		working[i].IsAP = IsAP(working[i].Accuracy)
	}

	var counts model.GradeCountsByDifficulty
	for _, c := range working {
		counts.Add(c.Difficulty, c.IsFullCombo, c.IsAP)
	}

	sortCharts(working)

	bestN := working
	if len(bestN) > BestNSize {
		bestN = working[:BestNSize]
	}
	bestN = append([]model.ChartRankingScore{}, bestN...)

	var apCandidates []model.ChartRankingScore
	for _, c := range working {
		if c.IsAP {
			apCandidates = append(apCandidates, c)
		}
	}
	// apCandidates is already sorted by the same total order as working.
	apTop3 := apCandidates
	if len(apTop3) > APTopSize {
		apTop3 = apCandidates[:APTopSize]
	}
	apTop3 = append([]model.ChartRankingScore{}, apTop3...)

	n := len(bestN) + len(apTop3)
	var total float64
	if n > 0 {
		var sum float64
		for _, c := range bestN {
			sum += c.RKS
		}
		for _, c := range apTop3 {
			sum += c.RKS
		}
		total = sum / float64(n)
	}

	return model.PlayerRksResult{
		TotalRKS: total,
		BestN:    bestN,
		APTop3:   apTop3,
		Counts:   counts,
	}
}
