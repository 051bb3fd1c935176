package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/replies"
)

// repliesCmd represents the replies command
var repliesCmd = &cobra.Command{
	Use:   "replies",
	Short: "Check the IMAP inbox for answers and mark those contacts as responded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sinceDays, _ := cmd.Flags().GetInt("since-days")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if sinceDays <= 0 {
				sinceDays = a.cfg.IMAP.LookbackDays
			}
			src := &replies.IMAP{
				Addr:     a.cfg.IMAP.Addr,
				Username: a.cfg.IMAP.Username,
				Password: a.cfg.IMAP.Password,
				Mailbox:  a.cfg.IMAP.Mailbox,
			}
			since := time.Now().AddDate(0, 0, -sinceDays)
			utils.Log.Infof("Reading replies since %s from %s", since.Format("2006-01-02"), src.Addr)

			rs, err := src.Replies(ctx, since)
			if err != nil {
				return fmt.Errorf("read replies: %w", err)
			}
			ms := replies.MatchReplies(a.store.All(), rs)
			for _, m := range ms {
				fmt.Printf("%s  %s  %s\n", m.Reply.Date.Local().Format("2006-01-02 15:04"), m.Name, utils.Truncate(m.Reply.Subject, 60))
			}
			if dryRun {
				fmt.Printf("%d of %d messages match contacts awaiting a reply\n", len(ms), len(rs))
				return nil
			}
			n, err := replies.Record(ctx, a.store, ms)
			fmt.Printf("Recorded %d responses (%d messages read)\n", n, len(rs))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(repliesCmd)
	repliesCmd.Flags().Int("since-days", 0, "Look back this many days (default imap.lookback_days)")
	repliesCmd.Flags().Bool("dry-run", false, "Only list matching replies")
}
