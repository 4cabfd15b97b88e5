package transport_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/transport"
)

func loadedConfig(t *testing.T, mtu int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "middleware_config.ini")
	body := "[middleware_configuration]\nmtu = " + strconv.Itoa(mtu) + "\nfragment_timeout = 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func newBoundUnreliable(t *testing.T, mtu int) *transport.UnreliableEndpoint {
	t.Helper()
	ep, err := transport.NewUnreliableEndpoint(loadedConfig(t, mtu))
	require.NoError(t, err)
	require.NoError(t, ep.Bind("127.0.0.1:0"))
	t.Cleanup(func() { ep.Close() })
	return ep
}

func TestNewUnreliableEndpointRequiresLoadedConfig(t *testing.T) {
	_, err := transport.NewUnreliableEndpoint(&config.Config{})
	require.Error(t, err)
}

func TestSendToAndRecvFromRoundTripSmallPayload(t *testing.T) {
	server := newBoundUnreliable(t, 1500)
	client := newBoundUnreliable(t, 1500)

	deadline := 2 * time.Second
	server.SetTimeout(&deadline)
	client.SetTimeout(&deadline)

	serverAddr := server.LocalAddr()
	payload := []byte("hello middleware")

	require.NoError(t, client.SendTo(payload, serverAddr))

	got, _, err := server.RecvFrom()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSendToAndRecvFromRoundTripFragmentedPayload(t *testing.T) {
	server := newBoundUnreliable(t, 64) // tiny MTU forces multiple fragments
	client := newBoundUnreliable(t, 64)

	deadline := 2 * time.Second
	server.SetTimeout(&deadline)
	client.SetTimeout(&deadline)

	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}

	require.NoError(t, client.SendTo(payload, server.LocalAddr()))

	got, _, err := server.RecvFrom()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRecvFromTimesOutWhenNothingArrives(t *testing.T) {
	server := newBoundUnreliable(t, 1500)
	timeout := 100 * time.Millisecond
	server.SetTimeout(&timeout)

	_, _, err := server.RecvFrom()
	require.Error(t, err)
}

func TestMaxPayloadSizeIsStableAcrossMTU(t *testing.T) {
	small := newBoundUnreliable(t, 64)
	large := newBoundUnreliable(t, 1500)
	assert.Equal(t, small.MaxPayloadSize(), large.MaxPayloadSize())
}
