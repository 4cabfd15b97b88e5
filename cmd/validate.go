package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"middleware.otus.dev/mw/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the middleware configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("failed to load configuration", err)
		}
		fmt.Printf("mtu=%d fragment_timeout=%ds congestion_algorithm=%s echo_config_path=%v\n",
			cfg.MTU, cfg.FragmentTimeout, cfg.CongestionAlgorithm, cfg.EchoConfigPath)
		if cfg.EchoConfigPath {
			fmt.Println(configFile)
		}
	},
}
