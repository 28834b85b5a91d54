package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/llmdash/internal/dashboard"
)

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the usage dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d dashboard.Dashboard
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/dashboard", nil, &d, nil); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(d)
			}
			_, _ = fmt.Fprintf(c.out, "Requests:  %s\nTokens:    %s\nCost:      %s\nKeys:      %s\n",
				d.TotalRequests, d.TotalTokens, d.EstimatedCost, d.KeyCount)

			_, _ = fmt.Fprintln(c.out, "\nLast 7 days:")
			tw := c.table()
			_, _ = fmt.Fprintln(tw, "DAY\tTOKENS\tCOST")
			for _, p := range d.UsageHistory {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t$%.2f\n", p.Label, humanize.Comma(p.Tokens), p.CostUSD)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(d.ProviderDistribution) > 0 {
				_, _ = fmt.Fprintln(c.out, "\nProviders:")
				tw = c.table()
				_, _ = fmt.Fprintln(tw, "PROVIDER\tREQUESTS\tSHARE")
				for _, p := range d.ProviderDistribution {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", p.Provider, humanize.Comma(p.Requests), p.Share)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			if len(d.ModelUsage) > 0 {
				_, _ = fmt.Fprintln(c.out, "\nModels:")
				tw = c.table()
				_, _ = fmt.Fprintln(tw, "MODEL\tPROVIDER\tTOKENS\tINPUT\tOUTPUT\tCOST")
				for _, m := range d.ModelUsage {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t$%.2f\n", m.ModelName, m.Provider,
						humanize.Comma(m.Tokens), humanize.Comma(m.InputTokens), humanize.Comma(m.OutputTokens), m.CostUSD)
				}
				return tw.Flush()
			}
			return nil
		},
	}
}
