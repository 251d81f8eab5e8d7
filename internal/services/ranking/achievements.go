package ranking

import "github.com/mcoot/doublesclub/internal/model"

var achievements = []model.AchievementDefinition{
	{ID: "first-match", Name: "First Serve", Description: "Play your first match", Metric: model.MetricMatches, Threshold: 1},
	{ID: "regular", Name: "Regular", Description: "Play 10 matches", Metric: model.MetricMatches, Threshold: 10},
	{ID: "veteran", Name: "Veteran", Description: "Play 50 matches", Metric: model.MetricMatches, Threshold: 50},
	{ID: "first-win", Name: "First Win", Description: "Win a match", Metric: model.MetricWins, Threshold: 1},
	{ID: "winner", Name: "Winner", Description: "Win 10 matches", Metric: model.MetricWins, Threshold: 10},
	{ID: "champion", Name: "Champion", Description: "Win 25 matches", Metric: model.MetricWins, Threshold: 25},
	{ID: "perfect-game", Name: "Perfect Game", Description: "Take all 4 points in a match", Metric: model.MetricBestScore, Threshold: model.MaxTeamScore},
}

// Achievements returns the fixed achievement definitions
func Achievements() []model.AchievementDefinition {
	out := make([]model.AchievementDefinition, len(achievements))
	copy(out, achievements)
	return out
}

// AchievementProgress evaluates every definition against stats. Nothing is
// stored; progress is derived on each call.
func AchievementProgress(stats model.PlayerStats) []model.AchievementStatus {
	out := make([]model.AchievementStatus, 0, len(achievements))
	for _, def := range achievements {
		value := metricValue(stats, def.Metric)
		progress := 100.0
		if def.Threshold > 0 {
			progress = min(float64(value)*100/float64(def.Threshold), 100)
		}
		out = append(out, model.AchievementStatus{
			Definition: def,
			Value:      value,
			Progress:   progress,
			Unlocked:   value >= def.Threshold,
		})
	}
	return out
}

func metricValue(stats model.PlayerStats, metric model.AchievementMetric) int {
	switch metric {
	case model.MetricMatches:
		return stats.Matches
	case model.MetricWins:
		return stats.Wins
	case model.MetricBestScore:
		return stats.BestMatchScore
	}
	return 0
}
