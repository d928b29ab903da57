package model

// ChartRankingScore is a single chart's ranked input to the RKS engine.
type ChartRankingScore struct {
	SongID        string     `json:"songId"`
	Difficulty    Difficulty `json:"difficulty"`
	ChartConstant float64    `json:"chartConstant"`
	Accuracy      float64    `json:"accuracy"`
	Score         uint32     `json:"score"`
	RKS           float64    `json:"rks"`
	IsFullCombo   bool       `json:"isFullCombo"`
	IsAP          bool       `json:"isAp"`
}

// Less implements the deterministic best-N ordering:
// rks desc, accuracy desc, score desc, (song_id, difficulty) asc.
func (c ChartRankingScore) Less(o ChartRankingScore) bool {
	if c.RKS != o.RKS {
		return c.RKS > o.RKS
	}
	if c.Accuracy != o.Accuracy {
		return c.Accuracy > o.Accuracy
	}
	if c.Score != o.Score {
		return c.Score > o.Score
	}
	if c.SongID != o.SongID {
		return c.SongID < o.SongID
	}
	return c.Difficulty < o.Difficulty
}

// GradeCounts is the cumulative (C, FC, P) triple for one difficulty.
type GradeCounts struct {
	C  uint32 `json:"C"`
	FC uint32 `json:"FC"`
	P  uint32 `json:"P"`
}

// GradeCountsByDifficulty holds the per-difficulty GradeCounts, always
// present for all four difficulties (zero-valued when absent).
type GradeCountsByDifficulty struct {
	EZ GradeCounts `json:"EZ"`
	HD GradeCounts `json:"HD"`
	IN GradeCounts `json:"IN"`
	AT GradeCounts `json:"AT"`
}

// Add accumulates one chart's result into the appropriate difficulty bucket.
func (g *GradeCountsByDifficulty) Add(d Difficulty, isFullCombo bool, isAP bool) {
	bucket := g.bucket(d)
	bucket.C++
	if isFullCombo {
		bucket.FC++
	}
	if isAP {
		bucket.P++
	}
}

func (g *GradeCountsByDifficulty) bucket(d Difficulty) *GradeCounts {
	switch d {
	case DifficultyEZ:
		return &g.EZ
	case DifficultyHD:
		return &g.HD
	case DifficultyIN:
		return &g.IN
	default:
		return &g.AT
	}
}

// PlayerRksResult is the RKS engine's full per-player output.
type PlayerRksResult struct {
	TotalRKS  float64                 `json:"totalRks"`
	BestN     []ChartRankingScore     `json:"bestN"`
	APTop3    []ChartRankingScore     `json:"apTop3"`
	Counts    GradeCountsByDifficulty `json:"counts"`
}
