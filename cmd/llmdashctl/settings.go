package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/llmdash/internal/alerts"
	"github.com/jordanhubbard/llmdash/internal/settings"
)

func (c *cli) channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Show or change alert notification channels",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show notification channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ch alerts.Channels
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/alerts/channels", nil, &ch, nil); err != nil {
				return err
			}
			return c.printChannels(ch)
		},
	}

	var (
		email, webhook            string
		emailEnabled, hookEnabled bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change notification channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ch alerts.Channels
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/alerts/channels", nil, &ch, nil); err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("email") {
				ch.Email.Address = email
			}
			if fl.Changed("email-enabled") {
				ch.Email.Enabled = emailEnabled
			}
			if fl.Changed("webhook") {
				ch.Webhook.URL = webhook
			}
			if fl.Changed("webhook-enabled") {
				ch.Webhook.Enabled = hookEnabled
			}
			var got alerts.Channels
			if err := c.api.do(cmd.Context(), "PUT", "/api/v1/alerts/channels", ch, &got, nil); err != nil {
				return err
			}
			return c.printChannels(got)
		},
	}
	set.Flags().StringVar(&email, "email", "", "notification email address")
	set.Flags().BoolVar(&emailEnabled, "email-enabled", false, "enable email notifications")
	set.Flags().StringVar(&webhook, "webhook", "", "webhook URL")
	set.Flags().BoolVar(&hookEnabled, "webhook-enabled", false, "enable webhook notifications")

	cmd.AddCommand(get, set)
	return cmd
}

func (c *cli) printChannels(ch alerts.Channels) error {
	if c.asJSON {
		return c.printJSON(ch)
	}
	tw := c.table()
	_, _ = fmt.Fprintln(tw, "CHANNEL\tENABLED\tTARGET")
	_, _ = fmt.Fprintf(tw, "email\t%t\t%s\n", ch.Email.Enabled, ch.Email.Address)
	_, _ = fmt.Fprintf(tw, "slack\t%t\t-\n", ch.Slack.Enabled)
	_, _ = fmt.Fprintf(tw, "webhook\t%t\t%s\n", ch.Webhook.Enabled, ch.Webhook.URL)
	return tw.Flush()
}

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show display settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s settings.Settings
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/settings", nil, &s, nil); err != nil {
				return err
			}
			return c.printSettings(s)
		},
	}

	var (
		theme, language, currency string
		autoRefresh               bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change display settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p settings.Patch
			fl := cmd.Flags()
			if fl.Changed("theme") {
				p.Theme = &theme
			}
			if fl.Changed("language") {
				p.Language = &language
			}
			if fl.Changed("currency") {
				p.Currency = &currency
			}
			if fl.Changed("auto-refresh") {
				p.AutoRefresh = &autoRefresh
			}
			var s settings.Settings
			if err := c.api.do(cmd.Context(), "PUT", "/api/v1/settings", p, &s, nil); err != nil {
				return err
			}
			return c.printSettings(s)
		},
	}
	set.Flags().StringVar(&theme, "theme", "", "light, dark or system")
	set.Flags().StringVar(&language, "language", "", "ko, en or ja")
	set.Flags().StringVar(&currency, "currency", "", "USD, KRW or EUR")
	set.Flags().BoolVar(&autoRefresh, "auto-refresh", true, "refresh the dashboard automatically")

	cmd.AddCommand(get, set)
	return cmd
}

func (c *cli) printSettings(s settings.Settings) error {
	if c.asJSON {
		return c.printJSON(s)
	}
	_, _ = fmt.Fprintf(c.out, "Theme:         %s\nLanguage:      %s\nCurrency:      %s\nAuto refresh:  %t\n",
		s.Theme, s.Language, s.Currency, s.AutoRefresh)
	return nil
}
