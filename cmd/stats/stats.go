// Package stats prints a statistics report as JSON.
package stats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/securitas/internal/app"
	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/statistics"
)

const dateLayout = "2006-01-02"

// Command creates the stats command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		from     string
		to       string
		timezone string
		groupBy  string
	)

	cmd := &cobra.Command{
		Use:   "stats COMPANY_CODE",
		Short: "Print per-engine detection counts for a company",
		Long: `Print per-engine detection counts for a company, bucketed by day or hour.

Examples:
  securitas stats ACME --from 2024-06-01 --to 2024-06-07
  securitas stats ACME --from 2024-06-01T00:00:00Z --to 2024-06-01T23:59:59Z --group-by hour --timezone Asia/Ho_Chi_Minh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseTime(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			toTime, err := parseTime(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			a, err := app.New(settings)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Statistics.Aggregate(cmd.Context(), &statistics.Request{
				CompanyCode: args[0],
				From:        fromTime,
				To:          toTime,
				Timezone:    timezone,
				GroupBy:     statistics.GroupBy(groupBy),
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Range end, inclusive (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA zone or UTC offset used for bucketing")
	cmd.Flags().StringVar(&groupBy, "group-by", string(statistics.GroupByDay), "Bucket size: day or hour")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, v)
}
