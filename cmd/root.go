// Package cmd implements mwctl's CLI commands using the cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"middleware.otus.dev/mw/internal/log"
)

// Global flags.
var configFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mwctl",
	Short: "mwctl drives the fragmenting transport middleware",
	Long: `mwctl loads the middleware's INI configuration and exercises its two
transport endpoints: an unreliable (UDP-like) endpoint that fragments and
reassembles datagrams larger than one MTU, and a reliable (TCP-like)
endpoint with MSS and congestion-control tuning applied from the same
configuration.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() and only needs to run once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "middleware_config.ini",
		"middleware INI configuration file path")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(udpEchoCmd)
	rootCmd.AddCommand(tcpEchoCmd)

	log.Init(log.DefaultLoggerConfig())
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
