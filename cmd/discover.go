package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/engine"
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search the web for new contacts and add the confident ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			eng, err := a.engine(ctx, true)
			if err != nil {
				return err
			}
			utils.Log.Infof("Discovering up to %d new contacts...", limit)
			d, err := eng.Discover(ctx, limit, dryRun)
			printDiscovery(d, dryRun)
			return err
		})
	},
}

func printDiscovery(d engine.Discovery, dryRun bool) {
	if len(d.Listed) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tCONFIDENCE\tCHANNEL\t")
		for _, c := range d.Listed {
			channel := c.Email
			if channel == "" {
				channel = c.ContactFormURL
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t\n", utils.Truncate(c.Name, 40), c.Type, c.ConfidenceScore, channel)
		}
		w.Flush()
		fmt.Println()
	}

	verb, n := "Added", d.Added
	if dryRun {
		verb, n = "Would add", d.Discovered-d.BelowThreshold
	}
	fmt.Printf("Discovered %d candidates. %s %d, %d duplicates, %d below threshold.\n",
		d.Discovered, verb, n, d.Duplicates, d.BelowThreshold)
	if errs := d.FetchErrors + d.ParseErrors + d.SearchErrors; errs > 0 {
		fmt.Printf("%d sources failed (%d fetch, %d parse, %d search), %d skipped.\n",
			errs, d.FetchErrors, d.ParseErrors, d.SearchErrors, d.SkippedSources)
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().Int("limit", engine.DefaultDiscoverLimit, "Maximum number of new contacts to discover")
	discoverCmd.Flags().Bool("dry-run", false, "List candidates without adding them")
}
