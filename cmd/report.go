package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the contact list and outreach progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		typesRaw, _ := cmd.Flags().GetString("target-type")
		all, _ := cmd.Flags().GetBool("all")
		explain, _ := cmd.Flags().GetBool("explain")

		types, err := parseTypes(typesRaw)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now()
		r := store.BuildReport(a.store.All(), now)

		fmt.Printf("OUTREACH REPORT (%s)\n\n", now.Format("2006-01-02 15:04"))
		fmt.Printf("Total contacts:    %d\n", r.Total)
		fmt.Printf("Reached (last 7d): %d\n\n", r.RecentlyReached)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "STATUS\tCONTACTS\t")
		for _, st := range contact.AllStatuses() {
			if n := r.ByStatus[st]; n > 0 {
				fmt.Fprintf(w, "%s\t%d\t\n", st, n)
			}
		}
		fmt.Fprintln(w, " \t \t")
		fmt.Fprintln(w, "TYPE\tCONTACTS\t")
		for _, t := range contact.AllTypes() {
			if n := r.ByType[t]; n > 0 {
				fmt.Fprintf(w, "%s\t%d\t\n", t, n)
			}
		}
		w.Flush()

		if last := r.LastResponses(5); len(last) > 0 {
			fmt.Println("\nRecent responses:")
			for i := len(last) - 1; i >= 0; i-- {
				c := last[i]
				fmt.Printf("  %s  %s  %s\n", formatTime(c.ResponseDate), c.Name, utils.Truncate(c.ResponseContent, 60))
			}
		}

		if !all && !explain {
			return nil
		}

		filter := a.filter()
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINGERPRINT\tNAME\tTYPE\tSTATUS\tSENT\tLAST\tELIGIBILITY\t")
		for _, c := range a.store.All() {
			if len(types) > 0 && !typeIn(types, c.Type) {
				continue
			}
			reason := filter.Explain(c, now, types)
			if reason == "" {
				reason = "eligible"
			} else if !explain {
				reason = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t\n",
				c.Fingerprint, utils.Truncate(c.Name, 32), c.Type, c.Status, c.OutreachCount, formatTime(c.LastOutreach), reason)
		}
		return w.Flush()
	},
}

func typeIn(types []contact.Type, t contact.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("target-type", "t", "", "Only list contacts of these comma-separated types")
	reportCmd.Flags().BoolP("all", "a", false, "List every contact")
	reportCmd.Flags().BoolP("explain", "e", false, "List every contact with the reason it is or is not eligible")
}
