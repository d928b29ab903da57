package rks

import (
	"math"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// pushAccEpsilon absorbs floating-point slack when comparing a solved
// target accuracy against the 100% ceiling.
const pushAccEpsilon = 1e-9

// PushAccTarget is the minimal accuracy bump that would raise a player's
// total_rks by 0.01, for a single chart.
type PushAccTarget struct {
	Accuracy float64
	Hint     model.PushAccHint
}

// ChartKey identifies a chart independent of its slice position. It is
// the key type of the map returned by PushAccFor.
type ChartKey struct {
	SongID     string
	Difficulty model.Difficulty
}

// KeyOf derives a chart's ChartKey from its ranking score.
func KeyOf(c model.ChartRankingScore) ChartKey {
	return ChartKey{SongID: c.SongID, Difficulty: c.Difficulty}
}

// PushAccFor computes, for every chart in `charts`, the minimal accuracy
// needed to raise `result.TotalRKS` by 0.01 ("push_acc"). Charts already
// at 100% accuracy are skipped (AlreadyPhi). Charts with a non-positive
// chart constant are skipped and get no entry in the result.
//
// The member set (best27 ∪ ap-top3) never shrinks as accuracy rises, so
// a chart already in that set only needs its own rks to rise by
// 0.01*n. A chart outside the set must first rise enough to displace
// the weakest current best27 member (the "cutoff"); reaching that
// requires clearing cutoffRks + 0.01*n instead of its own current rks.
func PushAccFor(charts []model.ChartRankingScore, result model.PlayerRksResult) map[ChartKey]PushAccTarget {
	out := make(map[ChartKey]PushAccTarget, len(charts))

	n := len(result.BestN) + len(result.APTop3)
	if n == 0 {
		return out
	}

	member := make(map[ChartKey]model.ChartRankingScore, n)
	for _, c := range result.BestN {
		member[KeyOf(c)] = c
	}
	for _, c := range result.APTop3 {
		if _, ok := member[KeyOf(c)]; !ok {
			member[KeyOf(c)] = c
		}
	}

	cutoffRks := math.Inf(1)
	if len(result.BestN) > 0 {
		cutoffRks = result.BestN[len(result.BestN)-1].RKS
	}

	delta := 0.01 * float64(n)

	for _, c := range charts {
		if c.Accuracy >= 100 {
			out[KeyOf(c)] = PushAccTarget{Hint: model.PushAccHintAlreadyPhi}
			continue
		}
		if c.ChartConstant <= 0 {
			continue
		}

		var base float64
		if m, ok := member[KeyOf(c)]; ok {
			base = m.RKS
		} else {
			base = cutoffRks
		}
		needed := base + delta

		maxRks := c.ChartConstant // rks at accuracy=100
		if needed > maxRks+pushAccEpsilon {
			out[KeyOf(c)] = PushAccTarget{Hint: model.PushAccHintUnreachable}
			continue
		}
		if needed > maxRks-pushAccEpsilon {
			out[KeyOf(c)] = PushAccTarget{Accuracy: 100, Hint: model.PushAccHintPhiOnly}
			continue
		}

		target := 55 + 45*math.Sqrt(needed/c.ChartConstant)
		target = math.Round(target*1000) / 1000
		if target >= 100 {
			target = 100
			out[KeyOf(c)] = PushAccTarget{Accuracy: target, Hint: model.PushAccHintPhiOnly}
			continue
		}
		out[KeyOf(c)] = PushAccTarget{Accuracy: target, Hint: model.PushAccHintTargetAcc}
	}

	return out
}
