package sockopt_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/sockopt"
)

func TestSetAndGetTOSRoundTrips(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, sockopt.SetTOS(conn, 0x10))
	got, err := sockopt.GetTOS(conn)
	require.NoError(t, err)
	assert.Equal(t, 0x10, got)
}

func TestPeekUDPSizeReportsFullDatagramLength(t *testing.T) {
	server, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	client, err := net.DialUDP("udp4", nil, server.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	payload := make([]byte, 500)
	_, err = client.Write(payload)
	require.NoError(t, err)

	size, err := sockopt.PeekUDPSize(server)
	require.NoError(t, err)
	assert.Equal(t, 500, size)

	// The datagram is still queued: a real read must return all of it.
	buf := make([]byte, size)
	n, _, err := server.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, 500, n)
}

func TestSetMSSAndCongestionAlgorithmOnTCPSocket(t *testing.T) {
	ln, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	conn, err := net.DialTCP("tcp4", nil, ln.Addr().(*net.TCPAddr))
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, sockopt.SetMSS(conn, 1400))
	assert.NoError(t, sockopt.SetCongestionAlgorithm(conn, "cubic"))
	assert.NoError(t, sockopt.ClearIPOptions(conn))

	<-done
}
