package ranking

import (
	"cmp"
	"math"
	"slices"

	"github.com/thoas/go-funk"

	"github.com/mcoot/doublesclub/internal/model"
)

// ByTournamentPoints orders tournament rankings by points, highest first.
// There is no secondary key; use it with a stable sort so ties keep their
// seeded order.
func ByTournamentPoints(a, b model.RankingEntry) int {
	return cmp.Compare(b.Points, a.Points)
}

// ByClubAverage orders club stats by average points per match, then by win
// rate, highest first
func ByClubAverage(a, b model.PlayerStats) int {
	return cmp.Or(
		cmp.Compare(b.AvgPointsPerMatch, a.AvgPointsPerMatch),
		cmp.Compare(b.WinRate, a.WinRate),
	)
}

// RoundTo1 rounds to one decimal place
func RoundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// WinRate returns wins as a whole percentage of matches, 0 when no matches
func WinRate(wins, matches int) int {
	if matches == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(matches) * 100))
}

// average returns points per match rounded to one decimal, 0 when no matches
func average(points, matches int) float64 {
	if matches == 0 {
		return 0
	}
	return RoundTo1(float64(points) / float64(matches))
}

// ComputeRanking aggregates completed matches of a tournament. Entries are
// seeded in participant order, followed by any other ids found in matches
// sorted by id, then stably sorted by points. The result does not depend on
// the order of the match list.
func ComputeRanking(t *model.Tournament) []model.RankingEntry {
	index := make(map[model.PlayerID]int)
	entries := make([]model.RankingEntry, 0, t.ParticipantCount())
	add := func(id model.PlayerID) {
		if _, ok := index[id]; ok {
			return
		}
		index[id] = len(entries)
		entries = append(entries, model.RankingEntry{PlayerID: id})
	}

	for _, id := range t.Participants() {
		add(id)
	}

	var extras []model.PlayerID
	for _, m := range t.Matches {
		for _, id := range m.Participants() {
			if _, ok := index[id]; !ok && !slices.Contains(extras, id) {
				extras = append(extras, id)
			}
		}
	}
	slices.Sort(extras)
	for _, id := range extras {
		add(id)
	}

	for _, m := range t.Matches {
		if !m.IsCompleted() {
			continue
		}
		s1, s2 := m.TeamScore(1), m.TeamScore(2)
		for _, id := range m.Team1 {
			e := &entries[index[id]]
			e.Points += s1
			e.Matches++
			if s1 > s2 {
				e.Wins++
			}
		}
		for _, id := range m.Team2 {
			e := &entries[index[id]]
			e.Points += s2
			e.Matches++
			if s2 > s1 {
				e.Wins++
			}
		}
	}

	for i := range entries {
		entries[i].AvgPointsPerMatch = average(entries[i].Points, entries[i].Matches)
		entries[i].WinRate = WinRate(entries[i].Wins, entries[i].Matches)
	}

	slices.SortStableFunc(entries, ByTournamentPoints)
	return entries
}

// ComputeClubAggregateStats sums a player's results across every tournament
// of the club. A tournament counts when playerID is on its member roster or,
// failing that, when displayName appears in its guest list.
func ComputeClubAggregateStats(tournaments []*model.Tournament, clubID model.ClubID, playerID model.PlayerID, displayName string) model.PlayerStats {
	stats := model.PlayerStats{PlayerID: playerID, DisplayName: displayName}

	for _, t := range tournaments {
		if t.ClubID != clubID {
			continue
		}

		id, ok := playerInTournament(t, playerID, displayName)
		if !ok {
			continue
		}
		stats.TournamentsPlayed++

		for _, m := range t.Matches {
			if !m.IsCompleted() {
				continue
			}
			team := m.TeamOf(id)
			if team == 0 {
				continue
			}
			own, other := m.TeamScore(team), m.TeamScore(3-team)
			stats.Matches++
			stats.Points += own
			if own > other {
				stats.Wins++
			}
			stats.BestMatchScore = max(stats.BestMatchScore, own)
		}
	}

	stats.WinRate = WinRate(stats.Wins, stats.Matches)
	stats.AvgPointsPerMatch = average(stats.Points, stats.Matches)
	return stats
}

// playerInTournament resolves the id a player used in a tournament
func playerInTournament(t *model.Tournament, playerID model.PlayerID, displayName string) (model.PlayerID, bool) {
	if funk.Contains(t.Players, playerID) {
		return playerID, true
	}
	if displayName == "" {
		return "", false
	}
	keys := funk.Map(t.GuestPlayers, model.GuestNameKey).([]string)
	if i := funk.IndexOf(keys, model.GuestNameKey(displayName)); i >= 0 {
		return model.GuestPlayerID(i), true
	}
	return "", false
}

// ClubLeaderboard returns stats for every member with at least one completed
// match, sorted with ByClubAverage
func ClubLeaderboard(tournaments []*model.Tournament, clubID model.ClubID, members []*model.User) []model.PlayerStats {
	board := make([]model.PlayerStats, 0, len(members))
	for _, u := range members {
		stats := ComputeClubAggregateStats(tournaments, clubID, u.PlayerID(), u.Name)
		if stats.Matches == 0 {
			continue
		}
		board = append(board, stats)
	}
	slices.SortStableFunc(board, ByClubAverage)
	return board
}
