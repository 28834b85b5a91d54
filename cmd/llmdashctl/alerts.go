package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/llmdash/internal/alerts"
)

func (c *cli) alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alerts",
		Aliases: []string{"alert"},
		Short:   "Manage spend alerts",
	}
	cmd.AddCommand(
		c.alertsListCmd(),
		c.alertsAddCmd(),
		c.alertsUpdateCmd(),
		c.alertsToggleCmd("enable", true),
		c.alertsToggleCmd("disable", false),
		c.alertsDeleteCmd(),
		c.alertsStatusCmd(),
	)
	return cmd
}

func (c *cli) printAlerts(list []alerts.Alert) error {
	if c.asJSON {
		return c.printJSON(list)
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(c.out, "No alerts configured.")
		return nil
	}
	tw := c.table()
	_, _ = fmt.Fprintln(tw, "ID\tTYPE\tTHRESHOLD\tENABLED")
	for _, a := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t$%.2f\t%t\n", a.ID, a.Type, a.Threshold, a.Enabled)
	}
	return tw.Flush()
}

func (c *cli) alertsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Alerts []alerts.Alert `json:"alerts"`
			}
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/alerts", nil, &resp, nil); err != nil {
				return err
			}
			return c.printAlerts(resp.Alerts)
		},
	}
}

// patchFlags binds the optional alert fields; only flags the user set end
// up in the patch.
type patchFlags struct {
	typ       string
	threshold float64
	disabled  bool
}

func (f *patchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "alert period: daily, weekly or monthly")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "spend threshold in USD")
}

func (f *patchFlags) patch(cmd *cobra.Command) alerts.Patch {
	var p alerts.Patch
	if cmd.Flags().Changed("type") {
		t := alerts.Type(f.typ)
		p.Type = &t
	}
	if cmd.Flags().Changed("threshold") {
		v := f.threshold
		p.Threshold = &v
	}
	if cmd.Flags().Changed("disabled") {
		enabled := !f.disabled
		p.Enabled = &enabled
	}
	return p
}

func (c *cli) alertsAddCmd() *cobra.Command {
	f := &patchFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an alert (defaults: daily, $100, enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var a alerts.Alert
			if err := c.api.do(cmd.Context(), "POST", "/api/v1/alerts", f.patch(cmd), &a, nil); err != nil {
				return err
			}
			return c.printAlerts([]alerts.Alert{a})
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "create the alert disabled")
	return cmd
}

func (c *cli) alertsUpdateCmd() *cobra.Command {
	f := &patchFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an alert's type or threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.patchAlert(cmd, args[0], f.patch(cmd))
		},
	}
	f.bind(cmd)
	return cmd
}

func (c *cli) alertsToggleCmd(name string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: fmt.Sprintf("%s an alert", map[bool]string{true: "Enable", false: "Disable"}[enabled]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.patchAlert(cmd, args[0], alerts.Patch{Enabled: &enabled})
		},
	}
}

func (c *cli) patchAlert(cmd *cobra.Command, id string, p alerts.Patch) error {
	var a alerts.Alert
	if err := c.api.do(cmd.Context(), "PATCH", "/api/v1/alerts/"+url.PathEscape(id), p, &a, nil); err != nil {
		return err
	}
	return c.printAlerts([]alerts.Alert{a})
}

func (c *cli) alertsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an alert",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.do(cmd.Context(), "DELETE", "/api/v1/alerts/"+url.PathEscape(args[0]), nil, nil, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) alertsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Evaluate alerts against current spend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Spend  alerts.Spend    `json:"spend"`
				Alerts []alerts.Status `json:"alerts"`
			}
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/alerts/status", nil, &resp, nil); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(resp)
			}
			_, _ = fmt.Fprintf(c.out, "Spend:  daily $%s  weekly $%s  monthly $%s\n\n",
				resp.Spend.Daily.StringFixed(2), resp.Spend.Weekly.StringFixed(2), resp.Spend.Monthly.StringFixed(2))
			tw := c.table()
			_, _ = fmt.Fprintln(tw, "ID\tTYPE\tTHRESHOLD\tSPEND\tSTATE")
			for _, s := range resp.Alerts {
				state := "ok"
				switch {
				case !s.Alert.Enabled:
					state = "disabled"
				case s.Triggered:
					state = "TRIGGERED"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t$%.2f\t$%.2f\t%s\n", s.Alert.ID, s.Alert.Type, s.Alert.Threshold, s.SpendUSD, state)
			}
			return tw.Flush()
		},
	}
}
