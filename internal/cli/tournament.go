package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTournamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tournament",
		Aliases: []string{"t"},
		Short:   "Tournament commands",
	}

	cmd.AddCommand(newTournamentCreateCmd())
	cmd.AddCommand(newTournamentListCmd())
	cmd.AddCommand(newTournamentGetCmd())
	cmd.AddCommand(newTournamentRenameCmd())
	cmd.AddCommand(newTournamentDeleteCmd())
	cmd.AddCommand(newTournamentStatusCmd("complete", "Mark a tournament completed"))
	cmd.AddCommand(newTournamentStatusCmd("reopen", "Reopen a completed tournament"))
	cmd.AddCommand(newTournamentRankingCmd())

	return cmd
}

func tournamentPath(id string) string {
	return fmt.Sprintf("/api/v1/tournaments/%s", id)
}

func newTournamentCreateCmd() *cobra.Command {
	var name, clubID string
	var players, guests []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tournament and generate its schedule",
		Long: `Create a tournament for a club. Players are member user ids; guests are
free-text names. At least four participants are required.

If --club is omitted the caller's active club is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"name":          name,
				"players":       players,
				"guest_players": guests,
			}
			if clubID != "" {
				req["club_id"] = clubID
			}
			var result TournamentView

			if err := client.Post("/api/v1/tournaments", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Tournament name (required)")
	cmd.Flags().StringVar(&clubID, "club", "", "Club ID (defaults to the active club)")
	cmd.Flags().StringSliceVar(&players, "player", nil, "Member user ID (repeatable)")
	cmd.Flags().StringSliceVar(&guests, "guest", nil, "Guest player name (repeatable)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newTournamentListCmd() *cobra.Command {
	var clubID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a club's tournaments",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/tournaments"
			if clubID != "" {
				path += "?club_id=" + clubID
			}
			var result []Tournament

			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&clubID, "club", "", "Club ID (defaults to the active club)")

	return cmd
}

func newTournamentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <tournament-id>",
		Short: "Show a tournament with its matches and ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Get(tournamentPath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newTournamentRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <tournament-id> <name>",
		Short: "Rename a tournament",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Patch(tournamentPath(args[0]), map[string]string{"name": args[1]}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newTournamentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tournament-id>",
		Short: "Delete a tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(tournamentPath(args[0]), nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Deleted tournament " + args[0])
			return nil
		},
	}
}

func newTournamentStatusCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <tournament-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TournamentView

			if err := client.Post(tournamentPath(args[0])+"/"+action, nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newTournamentRankingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranking <tournament-id>",
		Short: "Show the ranking over saved scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []RankingEntry

			if err := client.Get(tournamentPath(args[0])+"/ranking", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
