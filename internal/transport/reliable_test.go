package transport_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/transport"
)

func TestNewReliableEndpointRequiresLoadedConfig(t *testing.T) {
	_, err := transport.NewReliableEndpoint(&config.Config{})
	require.Error(t, err)
}

func TestReliableEndpointConnectSendRecv(t *testing.T) {
	cfg := loadedConfig(t, 1500)

	server, err := transport.NewReliableEndpoint(cfg)
	require.NoError(t, err)
	require.NoError(t, server.Bind("127.0.0.1:0"))
	require.NoError(t, server.Listen(16))
	t.Cleanup(func() { server.Close() })

	accepted := make(chan *transport.ReliableEndpoint, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, _, err := server.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	client, err := transport.NewReliableEndpoint(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Connect(server.LocalAddr().String()))

	select {
	case err := <-acceptErr:
		t.Fatalf("accept failed: %v", err)
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })

		deadline := 2 * time.Second
		client.SetTimeout(&deadline)
		conn.SetTimeout(&deadline)

		payload := []byte("stream payload")
		require.NoError(t, client.SendAll(payload))

		buf := make([]byte, len(payload))
		n, err := conn.Recv(buf)
		require.NoError(t, err)
		assert.Equal(t, payload, buf[:n])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
}

func TestReliableEndpointGetMSS(t *testing.T) {
	cfg := loadedConfig(t, 1500)
	ep, err := transport.NewReliableEndpoint(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1460, ep.GetMSS())
}
