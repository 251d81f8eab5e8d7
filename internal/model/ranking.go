package model

// RankingEntry is one participant's aggregate within a single tournament.
// Derived on read, never persisted.
type RankingEntry struct {
	PlayerID          PlayerID `json:"playerId"`
	Points            int      `json:"points"`
	Matches           int      `json:"matches"`
	Wins              int      `json:"wins"`
	AvgPointsPerMatch float64  `json:"avgPointsPerMatch"`
	WinRate           int      `json:"winRate"`
}

// PlayerStats aggregates a player across every tournament of a club
type PlayerStats struct {
	PlayerID          PlayerID `json:"playerId"`
	DisplayName       string   `json:"displayName"`
	TournamentsPlayed int      `json:"tournamentsPlayed"`
	Matches           int      `json:"matches"`
	Wins              int      `json:"wins"`
	Points            int      `json:"points"`
	BestMatchScore    int      `json:"bestMatchScore"`
	WinRate           int      `json:"winRate"`
	AvgPointsPerMatch float64  `json:"avgPointsPerMatch"`
}

// AchievementMetric selects which statistic an achievement tracks
type AchievementMetric string

const (
	MetricMatches   AchievementMetric = "matches"
	MetricWins      AchievementMetric = "wins"
	MetricBestScore AchievementMetric = "best_score"
)

// AchievementDefinition is a static threshold on one metric
type AchievementDefinition struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Metric      AchievementMetric `json:"metric"`
	Threshold   int               `json:"threshold"`
}

// AchievementStatus is recomputed from current stats on every read
type AchievementStatus struct {
	Definition AchievementDefinition `json:"definition"`
	Value      int                   `json:"value"`
	Progress   float64               `json:"progress"`
	Unlocked   bool                  `json:"unlocked"`
}
