package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/pkg/mail"
	"github.com/NullRecords/nullrecords-cms/pkg/replies"
)

// secretCmd represents the secret command
var secretCmd = &cobra.Command{
	Use:   "secret <smtp|imap>",
	Short: "Store the SMTP or IMAP password in the OS keyring",
	Long: `Reads a password from stdin and stores it in the OS keyring under the
configured username, so it does not have to live in the config file or .env.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"smtp", "imap"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var account string
		switch args[0] {
		case "smtp":
			account = cfg.SMTP.Username
		case "imap":
			if cfg.IMAP.Username != "" {
				account = replies.KeyringAccount(cfg.IMAP.Username)
			}
		}
		if account == "" {
			return fmt.Errorf("%s.username is not configured", args[0])
		}

		fmt.Fprintf(os.Stderr, "Password for %s: ", account)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return errors.New("empty password")
		}
		if err := mail.StorePassword(account, pw); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Stored password for %s in the keyring\n", account)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
}
