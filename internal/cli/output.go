package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Club:
		o.printClub(v)
	case []Club:
		for _, c := range v {
			fmt.Printf("%s  %s (%d members)\n", c.ID, c.Name, len(c.MemberIDs))
		}
	case ClubDetail:
		o.printClubDetail(v)
	case []Tournament:
		o.printTournamentList(v)
	case TournamentView:
		o.printTournamentView(v)
	case []RankingEntry:
		o.printRanking(v)
	case []PlayerStats:
		o.printLeaderboard(v)
	case PlayerStats:
		o.printPlayerStats(v)
	case []PendingScore:
		o.printPending(v)
	case []Notification:
		o.printNotifications(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	ActiveClubID string `json:"active_club_id,omitempty"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Club response type
type Club struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
	CreatedBy string   `json:"created_by"`
}

// ClubDetail response type
type ClubDetail struct {
	Club
	Members []User `json:"members"`
}

// Match response type
type Match struct {
	ID         string    `json:"id"`
	Team1      [2]string `json:"team1"`
	Team2      [2]string `json:"team2"`
	Team1Names [2]string `json:"team1_names"`
	Team2Names [2]string `json:"team2_names"`
	ScoreTeam1 *int      `json:"score_team1"`
	ScoreTeam2 *int      `json:"score_team2"`
	Status     string    `json:"status"`
	Pending    bool      `json:"pending,omitempty"`
}

// Tournament response type
type Tournament struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ClubID       string   `json:"club_id"`
	Players      []string `json:"players"`
	GuestPlayers []string `json:"guest_players"`
	Matches      []Match  `json:"matches"`
	Status       string   `json:"status"`
	Version      int64    `json:"version"`
}

// RankingEntry response type
type RankingEntry struct {
	PlayerID          string  `json:"player_id"`
	Name              string  `json:"name"`
	Points            int     `json:"points"`
	Matches           int     `json:"matches"`
	Wins              int     `json:"wins"`
	AvgPointsPerMatch float64 `json:"avg_points_per_match"`
	WinRate           int     `json:"win_rate"`
}

// TournamentView response type
type TournamentView struct {
	Tournament
	Ranking      []RankingEntry `json:"ranking"`
	PendingCount int            `json:"pending_count"`
}

// Achievement response type
type Achievement struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Value    int     `json:"value"`
	Progress float64 `json:"progress"`
	Unlocked bool    `json:"unlocked"`
}

// PlayerStats response type
type PlayerStats struct {
	PlayerID          string        `json:"player_id"`
	DisplayName       string        `json:"display_name"`
	TournamentsPlayed int           `json:"tournaments_played"`
	Matches           int           `json:"matches"`
	Wins              int           `json:"wins"`
	Points            int           `json:"points"`
	BestMatchScore    int           `json:"best_match_score"`
	WinRate           int           `json:"win_rate"`
	AvgPointsPerMatch float64       `json:"avg_points_per_match"`
	Achievements      []Achievement `json:"achievements,omitempty"`
}

// PendingScore response type
type PendingScore struct {
	MatchID string `json:"match_id"`
	Team1   *int   `json:"team1"`
	Team2   *int   `json:"team2"`
}

// Notification response type
type Notification struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.Name, u.ID)
	fmt.Printf("Username: %s\n", u.Username)
	if u.ActiveClubID != "" {
		fmt.Printf("Active Club: %s\n", u.ActiveClubID)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printClub(c Club) {
	fmt.Printf("Club: %s (%s)\n", c.Name, c.ID)
	fmt.Printf("Members: %d\n", len(c.MemberIDs))
}

func (o *Output) printClubDetail(c ClubDetail) {
	fmt.Printf("Club: %s (%s)\n", c.Name, c.ID)
	fmt.Printf("Members (%d):\n", len(c.Members))
	for _, m := range c.Members {
		fmt.Printf("  - %s (%s)\n", m.Name, m.ID)
	}
}

func (o *Output) printTournamentList(ts []Tournament) {
	if len(ts) == 0 {
		fmt.Println("No tournaments")
		return
	}
	for _, t := range ts {
		done := 0
		for _, m := range t.Matches {
			if m.Status == "completed" {
				done++
			}
		}
		fmt.Printf("%s  %-24s %-9s %d/%d matches\n", t.ID, t.Name, t.Status, done, len(t.Matches))
	}
}

func (o *Output) printTournamentView(v TournamentView) {
	fmt.Printf("Tournament: %s (%s)\n", v.Name, v.ID)
	fmt.Printf("Status: %s\n", v.Status)
	if len(v.GuestPlayers) > 0 {
		fmt.Printf("Guests: %s\n", strings.Join(v.GuestPlayers, ", "))
	}

	fmt.Printf("\nMatches (%d):\n", len(v.Matches))
	for i, m := range v.Matches {
		score := "  -  "
		if m.ScoreTeam1 != nil || m.ScoreTeam2 != nil {
			score = fmt.Sprintf("%s - %s", scoreText(m.ScoreTeam1), scoreText(m.ScoreTeam2))
		}
		marker := ""
		if m.Pending {
			marker = " *"
		}
		fmt.Printf("  %d. %s & %s  %s  %s & %s  [%s]%s\n",
			i+1,
			m.Team1Names[0], m.Team1Names[1],
			score,
			m.Team2Names[0], m.Team2Names[1],
			m.ID, marker,
		)
	}
	if v.PendingCount > 0 {
		fmt.Printf("\n%d unsaved score(s) marked *\n", v.PendingCount)
	}

	fmt.Println()
	o.printRanking(v.Ranking)
}

func scoreText(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

func (o *Output) printRanking(rs []RankingEntry) {
	fmt.Println("Ranking:")
	for i, r := range rs {
		fmt.Printf("  %d. %-16s %3d pts  %2d played  %2d won  %.1f avg\n",
			i+1, r.Name, r.Points, r.Matches, r.Wins, r.AvgPointsPerMatch)
	}
}

func (o *Output) printLeaderboard(stats []PlayerStats) {
	if len(stats) == 0 {
		fmt.Println("No completed matches yet")
		return
	}
	fmt.Println("Leaderboard:")
	for i, s := range stats {
		fmt.Printf("  %d. %-16s %.1f avg  %3d%% won  %d matches\n",
			i+1, s.DisplayName, s.AvgPointsPerMatch, s.WinRate, s.Matches)
	}
}

func (o *Output) printPlayerStats(s PlayerStats) {
	fmt.Printf("Player: %s (%s)\n", s.DisplayName, s.PlayerID)
	fmt.Printf("Tournaments: %d\n", s.TournamentsPlayed)
	fmt.Printf("Matches: %d (%d won, %d%%)\n", s.Matches, s.Wins, s.WinRate)
	fmt.Printf("Points: %d (%.1f avg, best %d)\n", s.Points, s.AvgPointsPerMatch, s.BestMatchScore)
	if len(s.Achievements) > 0 {
		fmt.Println("Achievements:")
		for _, a := range s.Achievements {
			state := fmt.Sprintf("%3.0f%%", a.Progress)
			if a.Unlocked {
				state = "done"
			}
			fmt.Printf("  [%s] %s\n", state, a.Name)
		}
	}
}

func (o *Output) printPending(ps []PendingScore) {
	if len(ps) == 0 {
		fmt.Println("No unsaved scores")
		return
	}
	for _, p := range ps {
		fmt.Printf("%s: %s - %s\n", p.MatchID, scoreText(p.Team1), scoreText(p.Team2))
	}
}

func (o *Output) printNotifications(ns []Notification) {
	if len(ns) == 0 {
		fmt.Println("No notifications")
		return
	}
	for _, n := range ns {
		fmt.Printf("[%s] %s: %s\n", n.CreatedAt.Format("15:04:05"), strings.ToUpper(n.Level), n.Message)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
