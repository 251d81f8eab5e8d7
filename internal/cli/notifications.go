package cli

import (
	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show and clear queued notifications for this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Notification

			if err := client.Get("/api/v1/notifications", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
