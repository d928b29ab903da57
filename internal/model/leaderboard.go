package model

import "time"

// LeaderboardRow is the persisted best-score record for one user.
type LeaderboardRow struct {
	UserKey            string          `json:"-"`
	TotalRKS           float64         `json:"totalRks"`
	SourceKey          *string         `json:"sourceKey,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Suspicious         bool            `json:"suspicious"`
	Alias              *string         `json:"alias,omitempty"`
	IsPublic           bool            `json:"isPublic"`
	ShowRksComposition bool            `json:"showRksComposition"`
	ShowBestTop3       bool            `json:"showBestTop3"`
	ShowApTop3         bool            `json:"showApTop3"`
	BestTop3           []ChartTextItem `json:"bestTop3,omitempty"`
	APTop3             []ChartTextItem `json:"apTop3,omitempty"`
}

// ChartTextItem is a human-readable projection of a ChartRankingScore,
// used in leaderboard composition displays.
type ChartTextItem struct {
	Song       string  `json:"song"`
	Difficulty string  `json:"difficulty"`
	Acc        float64 `json:"acc"`
	RKS        float64 `json:"rks"`
}

// RksComposition summarizes how a total RKS was built from its parts.
type RksComposition struct {
	Best27Sum float64 `json:"best27Sum"`
	APTop3Sum float64 `json:"apTop3Sum"`
}

// LeaderboardTopItem is one ranked row on the wire, privacy-projected.
type LeaderboardTopItem struct {
	Rank      int64           `json:"rank"`
	Alias     *string         `json:"alias,omitempty"`
	User      string          `json:"user"`
	Score     float64         `json:"score"`
	UpdatedAt time.Time       `json:"updatedAt"`
	BestTop3  []ChartTextItem `json:"bestTop3,omitempty"`
	APTop3    []ChartTextItem `json:"apTop3,omitempty"`
}

// LeaderboardTopPage is the paginated response for top(limit, after).
type LeaderboardTopPage struct {
	Items            []LeaderboardTopItem `json:"items"`
	Total            int64                `json:"total"`
	HasMore          bool                 `json:"hasMore"`
	NextAfterScore   *float64             `json:"nextAfterScore,omitempty"`
	NextAfterUpdated *time.Time           `json:"nextAfterUpdated,omitempty"`
	NextAfterUser    *string              `json:"nextAfterUser,omitempty"`
}

// RankOfResult is the self-rank lookup response.
type RankOfResult struct {
	Rank       int64   `json:"rank"`
	Score      float64 `json:"score"`
	Total      int64   `json:"total"`
	Percentile float64 `json:"percentile"`
}

// Cursor identifies the last row returned from a ranked read, used to
// resume pagination deterministically.
type Cursor struct {
	Score     float64
	UpdatedAt time.Time
	UserKey   string
}
