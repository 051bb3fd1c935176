package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// optoutCmd represents the optout command
var optoutCmd = &cobra.Command{
	Use:   "optout",
	Short: "Manage addresses that must never be emailed",
}

var optoutAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add an address to the opt-out list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if a.db == nil {
				return errNeedsSQLite
			}
			if err := a.db.AddOptOut(ctx, args[0], reason); err != nil {
				return err
			}
			fmt.Printf("Opted out %s\n", args[0])
			return nil
		})
	},
}

var optoutRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove an address from the opt-out list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if a.db == nil {
				return errNeedsSQLite
			}
			if err := a.db.RemoveOptOut(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s from the opt-out list\n", args[0])
			return nil
		})
	},
}

var optoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List opted-out addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tSOURCE\tSINCE\tREASON\t")
		for _, e := range a.cfg.Outreach.OptOuts {
			fmt.Fprintf(w, "%s\tconfig\t-\t-\t\n", e)
		}
		if a.db != nil {
			list, err := a.db.ListOptOuts(ctx)
			if err != nil {
				return err
			}
			for _, o := range list {
				fmt.Fprintf(w, "%s\tdb\t%s\t%s\t\n", o.Email, o.CreatedAt.Local().Format("2006-01-02"), orDash(o.Reason))
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(optoutCmd)
	optoutCmd.AddCommand(optoutAddCmd)
	optoutCmd.AddCommand(optoutRemoveCmd)
	optoutCmd.AddCommand(optoutListCmd)
	optoutAddCmd.Flags().String("reason", "", "Why the address opted out")
}
