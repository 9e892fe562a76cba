// Package cmd implements the Waypost CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waypost/waypost/internal/waypostctl/config"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "waypostctl",
	Short: "Waypost telemetry control tool",
	Long: `waypostctl exercises the Waypost telemetry pipeline from the command
line. It can send synthetic telemetry events through a fully wired collector
and simulate user journeys against the built-in journey catalog.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.waypostctl/config.yaml)")
	rootCmd.PersistentFlags().String("endpoint", "", "ingestion endpoint base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	// Add commands
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newJourneyCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	// Allow command line flags to override config file
	if endpoint, _ := rootCmd.PersistentFlags().GetString("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if debug {
		cfg.Debug = true
	}
}
