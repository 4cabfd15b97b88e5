package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/log"
	"middleware.otus.dev/mw/internal/transport"
)

var tcpListenAddr string

var tcpEchoCmd = &cobra.Command{
	Use:   "tcp-echo",
	Short: "Run a reliable-endpoint echo server (demonstrates MSS/congestion tuning)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("failed to load configuration", err)
		}

		ep, err := transport.NewReliableEndpoint(cfg)
		if err != nil {
			exitWithError("failed to construct reliable endpoint", err)
		}
		defer ep.Close()

		if err := ep.Bind(tcpListenAddr); err != nil {
			exitWithError("failed to bind", err)
		}
		if err := ep.Listen(16); err != nil {
			exitWithError("failed to listen", err)
		}

		l := log.GetLogger()
		fmt.Printf("listening on %s (mss %d)\n", ep.LocalAddr(), ep.GetMSS())

		for {
			conn, peer, err := ep.Accept()
			if err != nil {
				exitWithError("accept failed", err)
			}
			if l != nil {
				l.WithField("peer", peer.String()).Info("tcp-echo: accepted connection")
			}
			go serveTCPEcho(conn)
		}
	},
}

func serveTCPEcho(conn *transport.ReliableEndpoint) {
	defer conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Recv(buf)
		if err != nil {
			if l := log.GetLogger(); l != nil {
				l.WithError(err).Debug("tcp-echo: connection closed")
			}
			return
		}
		if err := conn.SendAll(buf[:n]); err != nil {
			if l := log.GetLogger(); l != nil {
				l.WithError(err).Warn("tcp-echo: send failed")
			}
			return
		}
	}
}

func init() {
	tcpEchoCmd.Flags().StringVar(&tcpListenAddr, "listen", ":9001", "address to bind the reliable endpoint to")
}
