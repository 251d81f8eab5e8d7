package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "club",
		Short: "Club commands",
	}

	cmd.AddCommand(newClubCreateCmd())
	cmd.AddCommand(newClubListCmd())
	cmd.AddCommand(newClubGetCmd())
	cmd.AddCommand(newClubMembershipCmd("join", "Join a club", "Joined"))
	cmd.AddCommand(newClubMembershipCmd("leave", "Leave a club", "Left"))
	cmd.AddCommand(newClubActivateCmd())
	cmd.AddCommand(newClubLeaderboardCmd())
	cmd.AddCommand(newClubStatsCmd())

	return cmd
}

func newClubCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a club and become its first member",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Club

			if err := client.Post("/api/v1/clubs", map[string]string{"name": name}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Club name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newClubListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every club",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Club

			if err := client.Get("/api/v1/clubs", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newClubGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <club-id>",
		Short: "Show a club and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ClubDetail

			if err := client.Get(fmt.Sprintf("/api/v1/clubs/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newClubMembershipCmd(action, short, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <club-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Club

			if err := client.Post(fmt.Sprintf("/api/v1/clubs/%s/%s", args[0], action), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(result)
			} else {
				out.PrintMessage(fmt.Sprintf("%s club %s", verb, result.Name))
			}
			return nil
		},
	}
}

func newClubActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <club-id>",
		Short: "Make a club the default for tournament commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User

			if err := client.Post(fmt.Sprintf("/api/v1/clubs/%s/activate", args[0]), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newClubLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <club-id>",
		Short: "Show the club leaderboard across all tournaments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []PlayerStats

			if err := client.Get(fmt.Sprintf("/api/v1/clubs/%s/leaderboard", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newClubStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <club-id> <user-id>",
		Short: "Show a member's statistics and achievements",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerStats

			if err := client.Get(fmt.Sprintf("/api/v1/clubs/%s/players/%s/stats", args[0], args[1]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
