package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NullRecords/nullrecords-cms/internal/config"
	"github.com/NullRecords/nullrecords-cms/internal/utils"

	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `
	 _   _       _ _ ____                       _
	| \ | |_   _| | |  _ \ ___  ___ ___  _ __ __| |___
	|  \| | | | | | | |_) / _ \/ __/ _ \| '__/ _` + "`" + ` / __|
	| |\  | |_| | | |  _ <  __/ (_| (_) | | | (_| \__ \
	|_| \_|\__,_|_|_|_| \_\___|\___\___/|_|  \__,_|___/

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Music industry contact discovery and outreach for NullRecords.",
	Long: LOGO + `outreach discovers publications, curators and platforms, keeps a deduplicated
contact list and sends press-kit emails on a frequency-limited schedule.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.outreach.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("store", "", "Path to the contact store (default: ~/.config/nullrecords/outreach.sqlite)")
	rootCmd.PersistentFlags().String("backend", "", "Store backend: sqlite or json (overrides config)")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("backend"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// SMTP credentials usually live in a .env next to the deployment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		path, err := config.DefaultPath()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(viper.ConfigFileUsed()); os.IsNotExist(statErr) && cfgFile == "" {
			// Config file not found; create it with defaults.
			if err := viper.SafeWriteConfigAs(viper.ConfigFileUsed()); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
