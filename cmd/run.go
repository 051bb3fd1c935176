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

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover new contacts and send outreach to the eligible ones",
	Long: `Runs one outreach pass: discovery (skipped on dry runs), search engine
submission, then emails and manual form submissions to eligible contacts.

With --daily the per-type quotas and daily cap come from the outreach plan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noDiscover, _ := cmd.Flags().GetBool("no-discover")
		maxNew, _ := cmd.Flags().GetInt("discover")
		daily, _ := cmd.Flags().GetBool("daily")
		typesRaw, _ := cmd.Flags().GetString("target-type")

		types, err := parseTypes(typesRaw)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			opts := engine.Options{
				Discover: !noDiscover,
				MaxNew:   maxNew,
				Types:    types,
				Limit:    limit,
				DailyCap: a.cfg.Outreach.DailyCap,
				DryRun:   dryRun,
			}
			if daily {
				plan, err := a.loadPlan()
				if err != nil {
					return err
				}
				if !plan.Daily.Enabled {
					utils.Log.Info("Daily outreach is disabled in the plan")
					return nil
				}
				dist, err := plan.Distribution()
				if err != nil {
					return err
				}
				opts.Distribution = dist
				opts.DailyCap = plan.Daily.MaxContactsPerDay
				opts.Discover = opts.Discover && plan.Daily.DiscoveryEnabled
				if maxNew == 0 {
					opts.MaxNew = plan.Daily.MaxNewSourcesPerDay
				}
			} else {
				opts.SubmitSearchEngines = true
			}

			eng, err := a.engine(ctx, opts.Discover && !dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				utils.Log.Info("DRY RUN MODE - no emails will be sent")
			}
			sum, err := eng.Run(ctx, opts)
			if sum != nil {
				printRunSummary(sum)
			}
			return err
		})
	},
}

func printRunSummary(s *engine.Summary) {
	if len(s.Outcomes) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONTACT\tRESULT\tSUBJECT\t")
		for _, o := range s.Outcomes {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", utils.Truncate(o.Name, 40), o.Kind, utils.Truncate(o.Message.Subject, 60))
		}
		w.Flush()
		fmt.Println()
	}

	if s.Discovered > 0 || s.Added > 0 {
		fmt.Printf("Discovery: %d candidates, %d added, %d below threshold\n", s.Discovered, s.Added, s.BelowThreshold)
	}
	if s.Submitted > 0 {
		fmt.Printf("Search engines flagged for submission: %d\n", s.Submitted)
	}
	fmt.Printf("Eligible: %d  Scheduled: %d  Sent: %d  Manual: %d  Failed: %d  Opted out: %d",
		s.Eligible, s.Scheduled, s.Sent, s.Manual, s.Failed, s.OptedOut)
	if s.DryRun {
		fmt.Printf("  Planned: %d", s.Planned)
	}
	fmt.Println()
	if !s.DryRun {
		fmt.Printf("Run %s\n", s.RunID)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("limit", 0, "Maximum contacts to reach in this run (0 = plan or daily cap)")
	runCmd.Flags().Bool("dry-run", false, "Show what would be sent without sending or saving")
	runCmd.Flags().StringP("target-type", "t", "", "Comma-separated contact types to target (e.g. publication,curator)")
	runCmd.Flags().Bool("no-discover", false, "Skip the discovery step")
	runCmd.Flags().Int("discover", 0, fmt.Sprintf("New contacts to look for before sending (default %d)", engine.DefaultRunDiscovery))
	runCmd.Flags().Bool("daily", false, "Use the daily plan's distribution, cap and discovery settings")
}
