package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the pages discovery has scraped and their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		statusRaw, _ := cmd.Flags().GetString("status")
		var want sources.Status
		if statusRaw != "" {
			s, err := sources.ParseStatus(statusRaw)
			if err != nil {
				return err
			}
			want = s
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

		ts, err := a.store.Sources(ctx)
		if err != nil {
			return err
		}
		sort.Slice(ts, func(i, j int) bool { return ts[i].LastScraped.After(ts[j].LastScraped) })

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "URL\tSTATUS\tSCRAPES\tFOUND\tSUCCESS\tLAST\t")
		for _, t := range ts {
			if want != "" && t.Status != want {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\t%s\t\n",
				utils.Truncate(t.URL, 60), t.Status, t.ScrapeCount, t.ContactsFound, t.SuccessRate*100, formatTime(&t.LastScraped))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().String("status", "", "Only show sources with this status (active, exhausted, blocked, error)")
}
