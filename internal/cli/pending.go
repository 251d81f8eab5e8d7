package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Unsaved score entry for the current session",
		Long: `Scores entered with "pending set" are held against your session and are
not visible to anyone else, nor counted in rankings, until "pending save"
writes them all at once.`,
	}

	cmd.AddCommand(newPendingSetCmd())
	cmd.AddCommand(newPendingDiscardCmd())
	cmd.AddCommand(newPendingListCmd())
	cmd.AddCommand(newPendingSaveCmd())

	return cmd
}

// pendingSide maps "-" to an unset side
func pendingSide(arg string) (any, error) {
	if arg == "-" {
		return nil, nil
	}
	v, err := strconv.Atoi(arg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func newPendingSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <tournament-id> <match-id> <team1|-> <team2|->",
		Short: "Set an unsaved score; use - to leave a side empty",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			team1, err := pendingSide(args[2])
			if err != nil {
				return err
			}
			team2, err := pendingSide(args[3])
			if err != nil {
				return err
			}
			var result TournamentView

			req := map[string]any{"team1": team1, "team2": team2}
			if err := client.Put(matchPath(args[0], args[1])+"/pending", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPendingDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <tournament-id> <match-id>",
		Short: "Drop an unsaved score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Delete(matchPath(args[0], args[1])+"/pending", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPendingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <tournament-id>",
		Short: "List unsaved scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []PendingScore

			if err := client.Get(tournamentPath(args[0])+"/pending", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPendingSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <tournament-id>",
		Short: "Save every unsaved score in one write",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Post(tournamentPath(args[0])+"/save", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
