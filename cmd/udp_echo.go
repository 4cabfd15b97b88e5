package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/log"
	"middleware.otus.dev/mw/internal/transport"
)

var udpListenAddr string

var udpEchoCmd = &cobra.Command{
	Use:   "udp-echo",
	Short: "Run an unreliable-endpoint echo server (demonstrates fragmentation/reassembly)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("failed to load configuration", err)
		}

		ep, err := transport.NewUnreliableEndpoint(cfg)
		if err != nil {
			exitWithError("failed to construct unreliable endpoint", err)
		}
		defer ep.Close()

		if err := ep.Bind(udpListenAddr); err != nil {
			exitWithError("failed to bind", err)
		}

		l := log.GetLogger()
		if l != nil {
			l.WithField("addr", ep.LocalAddr().String()).Info("udp-echo: listening")
		}
		fmt.Printf("listening on %s (max payload %d bytes)\n", ep.LocalAddr(), ep.MaxPayloadSize())

		for {
			payload, peer, err := ep.RecvFrom()
			if err != nil {
				exitWithError("recv_from failed", err)
			}
			if err := ep.SendTo(payload, peer); err != nil {
				exitWithError("send_to failed", err)
			}
		}
	},
}

func init() {
	udpEchoCmd.Flags().StringVar(&udpListenAddr, "listen", ":9000", "address to bind the unreliable endpoint to")
}
