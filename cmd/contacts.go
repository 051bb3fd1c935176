package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add the built-in starter contacts that are not stored yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.store.Seed(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Added %d seed contacts (%d total)\n", n, a.store.Len())
			return nil
		})
	},
}

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a contact by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		email, _ := cmd.Flags().GetString("email")
		form, _ := cmd.Flags().GetString("form")
		website, _ := cmd.Flags().GetString("website")
		desc, _ := cmd.Flags().GetString("description")
		genres, _ := cmd.Flags().GetStringSlice("genre")

		t, err := contact.ParseType(typ)
		if err != nil {
			return err
		}
		c, err := contact.New(contact.Params{
			Name:           args[0],
			Type:           t,
			Email:          email,
			ContactFormURL: form,
			Website:        website,
			Description:    desc,
			GenreFocus:     genres,
		}, time.Now())
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			added, err := a.store.Upsert(ctx, c)
			if err != nil {
				return err
			}
			if !added {
				fmt.Printf("%s is already stored (%s)\n", c.Name, c.Fingerprint)
				return nil
			}
			fmt.Printf("Added %s (%s)\n", c.Name, c.Fingerprint)
			return nil
		})
	},
}

// respondCmd represents the respond command
var respondCmd = &cobra.Command{
	Use:   "respond <fingerprint|name|email>",
	Short: "Record a response from a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			c, err := findOne(a.store, args[0])
			if err != nil {
				return err
			}
			c, err = a.store.Modify(ctx, c.Fingerprint, func(c *contact.Contact) error {
				return c.RecordResponse(time.Now(), strings.TrimSpace(note))
			})
			if err != nil {
				return err
			}
			utils.Log.Infof("Recorded response from %s", c.Name)
			return nil
		})
	},
}

// rejectCmd represents the reject command
var rejectCmd = &cobra.Command{
	Use:   "reject <fingerprint|name|email>",
	Short: "Retire a contact so it is never contacted again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			c, err := findOne(a.store, args[0])
			if err != nil {
				return err
			}
			c, err = a.store.Modify(ctx, c.Fingerprint, func(c *contact.Contact) error {
				c.Reject()
				return nil
			})
			if err != nil {
				return err
			}
			utils.Log.Infof("Rejected %s", c.Name)
			return nil
		})
	},
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <fingerprint|name|email|domain>",
	Short: "Print the stored record of matching contacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		found := a.store.Find(args[0])
		if len(found) == 0 {
			return fmt.Errorf("no contact matches %q", args[0])
		}
		now := time.Now()
		for i, c := range found {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%s (%s)\n", c.Name, c.Fingerprint)
			fmt.Printf("  type:        %s\n", c.Type)
			fmt.Printf("  status:      %s\n", c.Status)
			fmt.Printf("  email:       %s\n", orDash(c.Email))
			fmt.Printf("  form:        %s\n", orDash(c.ContactFormURL))
			fmt.Printf("  website:     %s\n", orDash(c.Website))
			fmt.Printf("  genres:      %s\n", orDash(strings.Join(c.GenreFocus, ", ")))
			fmt.Printf("  outreach:    %d (last %s)\n", c.OutreachCount, formatTime(c.LastOutreach))
			fmt.Printf("  responded:   %t %s\n", c.ResponseReceived, formatTime(c.ResponseDate))
			fmt.Printf("  confidence:  %.2f\n", c.ConfidenceScore)
			if reason := a.filter().Explain(c, now, nil); reason != "" {
				fmt.Printf("  not eligible: %s\n", reason)
			}
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(showCmd)

	addCmd.Flags().String("type", "", "Contact type (publication, curator, platform, ...)")
	addCmd.Flags().String("email", "", "Contact email")
	addCmd.Flags().String("form", "", "Contact form URL")
	addCmd.Flags().String("website", "", "Website URL")
	addCmd.Flags().String("description", "", "Short description")
	addCmd.Flags().StringSlice("genre", nil, "Genre focus (repeatable)")
	_ = addCmd.MarkFlagRequired("type")

	respondCmd.Flags().StringP("note", "n", "", "Response summary to store with the contact")
}
