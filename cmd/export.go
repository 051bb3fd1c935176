package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

type exportDoc struct {
	Generated     time.Time         `json:"generated"`
	TotalContacts int               `json:"total_contacts"`
	Contacts      []contact.Contact `json:"contacts"`
	PressKit      outreach.PressKit `json:"press_kit"`
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the contact list and press kit as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		cs := a.store.All()
		doc := exportDoc{
			Generated:     time.Now().UTC(),
			TotalContacts: len(cs),
			Contacts:      cs,
			PressKit:      a.cfg.PressKit,
		}

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if w != os.Stdout {
			utils.Log.Infof("Exported %d contacts to %s", len(cs), output)
		}
		return nil
	},
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <contacts.json>",
	Short: "Import contacts (and optionally sources) from the legacy JSON files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcesFile, _ := cmd.Flags().GetString("sources")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cs, errs := store.ImportLegacyContacts(data, time.Now())
		for _, e := range errs {
			utils.Log.Warnf("Skipping %v", e)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.store.UpsertAll(ctx, cs)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d of %d contacts (%d already stored, %d invalid)\n", n, len(cs)+len(errs), len(cs)-n, len(errs))

			if sourcesFile == "" {
				return nil
			}
			data, err := os.ReadFile(sourcesFile)
			if err != nil {
				return err
			}
			ts, err := store.ImportLegacySources(data)
			if err != nil {
				return err
			}
			if err := a.store.SaveSources(ctx, ts); err != nil {
				return err
			}
			fmt.Printf("Imported %d sources\n", len(ts))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	importCmd.Flags().String("sources", "", "Legacy sources JSON file to import as well")
}
