// Package approve resolves held detections from the command line.
package approve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/securitas/internal/app"
	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore/entities"
)

// Command creates the approve command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		approvedBy string
		expire     bool
	)

	cmd := &cobra.Command{
		Use:   "approve DETECTION_ID...",
		Short: "Approve or expire detections held for review",
		Long: `Approve or expire detections held for review. All ids must exist and
be pending, otherwise nothing changes. Approved detections are alerted.

Examples:
  securitas approve det-1 det-2 --by operator-7
  securitas approve det-3 --expire`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			value := entities.ApprovalYes
			if expire {
				value = entities.ApprovalExpired
			}
			var by *string
			if approvedBy != "" {
				by = &approvedBy
			}

			dets, err := a.Detections.Gate().ApproveBulk(cmd.Context(), args, value, by)
			if err != nil {
				return err
			}
			for _, d := range dets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Approved)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&approvedBy, "by", "", "Operator recorded as approver")
	cmd.Flags().BoolVar(&expire, "expire", false, "Expire instead of approve; no alert is sent")

	return cmd
}
