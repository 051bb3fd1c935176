package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent contact changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			status := c.ToStatus
			if c.FromStatus != "" && c.FromStatus != c.ToStatus {
				status = c.FromStatus + " -> " + c.ToStatus
			}
			run := c.RunID
			if len(run) > 8 {
				run = run[:8]
			}
			fmt.Printf("%s  %-7s  %-8s  %s  %s  %s  sent=%d\n", ts, c.ChangeType, orDash(run), c.Fingerprint, c.Name, status, c.OutreachCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
