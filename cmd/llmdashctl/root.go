package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand.
type cli struct {
	out     io.Writer
	url     string
	timeout time.Duration
	asJSON  bool
	api     *client
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "llmdashctl",
		Short: "CLI for the llmdash API usage dashboard",
		Long: `llmdashctl talks to a running llmdash server.

Environment:
  LLMDASH_URL       Base URL (default: http://localhost:8080)

  ~/.llmdash/env    Auto-sourced on startup, together with ./.env.
                    Explicit environment variables take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			c.api = newClient(c.url, c.timeout)
		},
	}
	root.SetOut(out)

	defURL := os.Getenv("LLMDASH_URL")
	if defURL == "" {
		defURL = defaultURL
	}
	root.PersistentFlags().StringVar(&c.url, "url", defURL, "llmdash base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		c.versionCmd(),
		c.healthCmd(),
		c.keysCmd(),
		c.dashboardCmd(),
		c.alertsCmd(),
		c.channelsCmd(),
		c.settingsCmd(),
	)
	return root
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			_, _ = fmt.Fprintf(c.out, "llmdashctl %s\n", version)
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var h struct {
				Status string `json:"status"`
				Keys   int    `json:"keys"`
			}
			if err := c.api.do(cmd.Context(), "GET", "/healthz", nil, &h, nil); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(h)
			}
			_, _ = fmt.Fprintf(c.out, "Server:  %s\nStatus:  %s\nKeys:    %d\n", c.url, h.Status, h.Keys)
			return nil
		},
	}
}

func (c *cli) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}
