package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the contact list and outreach stats as a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		user, _ := cmd.Flags().GetString("user")
		pass, _ := cmd.Flags().GetString("password")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.store.Backend(), a.path, user, pass)
		srv.Filter = a.filter()
		if a.db != nil {
			srv.OptOuts = a.db
		}
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().String("user", "", "Basic auth username")
	serveCmd.Flags().String("password", "", "Basic auth password")
}
