// Package notify resends the alert for a stored detection.
package notify

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/securitas/internal/app"
	"github.com/tphakala/securitas/internal/conf"
)

// Command returns a cobra command that delivers the alert for one detection
// through the configured transport and reports the outcome.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "notify DETECTION_ID",
		Short: "Send the alert for a stored detection",
		Long: `Send the alert for a stored detection through the configured transport.

The approval state is not checked or changed. Use this to verify a company's
channel configuration or to resend an alert that failed.

Examples:
  securitas notify 3f2b9c1e-0d7a-4c55-9a8e-1b2f3c4d5e6f`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Dispatcher == nil {
				return fmt.Errorf("notifications are disabled, set notification.enabled to true")
			}

			ctx := cmd.Context()
			if settings.Notification.DispatchTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, settings.Notification.DispatchTimeout)
				defer cancel()
			}

			det, err := a.Detections.Get(ctx, args[0])
			if err != nil {
				return err
			}
			monitor, err := a.Directory.Monitors.Get(ctx, det.MonitorID)
			if err != nil {
				return err
			}
			if err := a.Dispatcher.Deliver(ctx, monitor.CompanyCode, det); err != nil {
				return fmt.Errorf("alert for %s not delivered: %w", det.ID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Alert for %s sent to %s via %s\n",
				det.ID, monitor.CompanyCode, a.Dispatcher.Transport())
			return nil
		},
	}
}
