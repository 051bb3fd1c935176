package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/pkg/schedule"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage the daily outreach plan",
}

var planInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default plan file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, err := currentPlanPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := schedule.SavePlan(path, schedule.DefaultPlan()); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the plan and today's per-type quotas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := currentPlanPath()
		if err != nil {
			return err
		}
		p, err := schedule.LoadPlan(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Printf("No plan at %s, showing defaults\n\n", path)
		case err != nil:
			return err
		default:
			fmt.Printf("Plan %s\n\n", path)
		}

		fmt.Printf("Enabled:             %t\n", p.Daily.Enabled)
		fmt.Printf("Max contacts/day:    %d\n", p.Daily.MaxContactsPerDay)
		fmt.Printf("Discovery:           %t (%d new/day)\n", p.Daily.DiscoveryEnabled, p.Daily.MaxNewSourcesPerDay)
		fmt.Printf("Follow-ups (days):   %d, %d, %d\n\n", p.FollowUp.FirstDays, p.FollowUp.SecondDays, p.FollowUp.FinalDays)

		dist, err := p.Distribution()
		if err != nil {
			return err
		}
		sort.SliceStable(dist, func(i, j int) bool { return dist[i].Fraction > dist[j].Fraction })
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "TYPE\tSHARE\tQUOTA\t")
		for _, s := range dist {
			fmt.Fprintf(w, "%s\t%.0f%%\t%d\t\n", s.Type, s.Fraction*100, s.Quota(p.Daily.MaxContactsPerDay))
		}
		return w.Flush()
	},
}

func currentPlanPath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	path, err := storePath(cfg)
	if err != nil {
		return "", err
	}
	a := &app{cfg: cfg, path: path}
	return a.planPath(), nil
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planInitCmd)
	planCmd.AddCommand(planShowCmd)
	planInitCmd.Flags().Bool("force", false, "Overwrite an existing plan")
}
