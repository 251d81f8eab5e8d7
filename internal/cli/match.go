package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match and score commands",
	}

	cmd.AddCommand(newMatchAddCmd())
	cmd.AddCommand(newMatchDeleteCmd())
	cmd.AddCommand(newMatchScoreCmd())

	return cmd
}

func matchPath(tournamentID, matchID string) string {
	return fmt.Sprintf("%s/matches/%s", tournamentPath(tournamentID), matchID)
}

func newMatchAddCmd() *cobra.Command {
	var balanced bool

	cmd := &cobra.Command{
		Use:   "add <tournament-id>",
		Short: "Generate one more match",
		Long: `Generate one more match for a tournament. By default the pairing favours
the players who have played least; --balanced also pairs teams by
average points.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Post(tournamentPath(args[0])+"/matches", map[string]bool{"balanced": balanced}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&balanced, "balanced", false, "Balance teams by average points")

	return cmd
}

func newMatchDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tournament-id> <match-id>",
		Short: "Delete a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Delete(matchPath(args[0], args[1]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <tournament-id> <match-id> <team1> <team2>",
		Short: "Record a final score and complete the match immediately",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			team1, team2, err := parseScores(args[2], args[3])
			if err != nil {
				return err
			}
			var result TournamentView

			req := map[string]int{"team1": team1, "team2": team2}
			if err := client.Put(matchPath(args[0], args[1])+"/score", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func parseScores(a, b string) (int, int, error) {
	team1, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid team1 score %q", a)
	}
	team2, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid team2 score %q", b)
	}
	return team1, team2, nil
}
