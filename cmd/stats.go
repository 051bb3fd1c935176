package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/pkg/storage"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints per-type statistics about the contacts in the database.",
	Long:  "Prints, per contact type, how many contacts are stored, reached, responded and rejected.",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats(context.Background())
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		fmt.Println("No data in the database to generate stats.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TYPE\tCONTACTS\tREACHED\tRESPONDED\tREJECTED\t")

	var total storage.TypeStats
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", s.Type, s.Contacts, s.Reached, s.Responded, s.Rejected)
		total.Contacts += s.Contacts
		total.Reached += s.Reached
		total.Responded += s.Responded
		total.Rejected += s.Rejected
	}

	fmt.Fprintln(w, " \t \t \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t%d\t\n", total.Contacts, total.Reached, total.Responded, total.Rejected)

	w.Flush()

	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
