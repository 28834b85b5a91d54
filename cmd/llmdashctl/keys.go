package main

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/llmdash/internal/idempotency"
	"github.com/jordanhubbard/llmdash/internal/keystore"
)

func (c *cli) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"key"},
		Short:   "Manage registered provider API keys",
	}
	cmd.AddCommand(c.keysListCmd(), c.keysAddCmd(), c.keysDeleteCmd(), c.keysResetCmd(), c.keysTestCmd())
	return cmd
}

func (c *cli) keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Keys []keystore.Record `json:"keys"`
			}
			if err := c.api.do(cmd.Context(), "GET", "/api/v1/keys", nil, &resp, nil); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(resp.Keys)
			}
			if len(resp.Keys) == 0 {
				_, _ = fmt.Fprintln(c.out, "No API keys registered.")
				return nil
			}
			tw := c.table()
			_, _ = fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tKEY\tSTATUS\tCHECKED\tADDED")
			for _, k := range resp.Keys {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					k.ID, k.Provider, k.Name, k.SecretDisplay, k.Status, k.LastCheckedLabel, humanize.Time(k.CreatedAt))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) keysAddCmd() *cobra.Command {
	var name, idemKey string
	cmd := &cobra.Command{
		Use:   "add <provider> <key>",
		Short: "Register a provider API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"provider": args[0], "key": args[1], "name": name}
			var headers map[string]string
			if idemKey != "" {
				headers = map[string]string{idempotency.HeaderKey: idemKey}
			}
			var rec keystore.Record
			if err := c.api.do(cmd.Context(), "POST", "/api/v1/keys", body, &rec, headers); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(rec)
			}
			_, _ = fmt.Fprintf(c.out, "Added %s (%s) %s: %s\n", rec.Name, rec.ID, rec.SecretDisplay, rec.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default \"<Provider> Key\")")
	cmd.Flags().StringVar(&idemKey, "idempotency-key", "", "replay-safe request key")
	return cmd
}

func (c *cli) keysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.do(cmd.Context(), "DELETE", "/api/v1/keys/"+url.PathEscape(args[0]), nil, nil, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) keysResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every key and the stored slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset deletes every key; pass --yes to confirm")
			}
			if err := c.api.do(cmd.Context(), "POST", "/api/v1/keys/reset", nil, nil, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.out, "All keys removed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func (c *cli) keysTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Refresh a key's last-checked label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec keystore.Record
			if err := c.api.do(cmd.Context(), "POST", "/api/v1/keys/"+url.PathEscape(args[0])+"/test", nil, &rec, nil); err != nil {
				return err
			}
			if c.asJSON {
				return c.printJSON(rec)
			}
			_, _ = fmt.Fprintf(c.out, "%s: %s (checked %s)\n", rec.Name, rec.Status, rec.LastCheckedLabel)
			return nil
		},
	}
}
