// Package transport implements the UDP-like and TCP-like endpoint façades
// the middleware exposes to applications, each wrapping a real net.Conn (or
// net.Listener) together with the fragmentation/reassembly and socket-option
// machinery the spec layers on top of it.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/core"
	"middleware.otus.dev/mw/internal/fragment"
	"middleware.otus.dev/mw/internal/log"
	"middleware.otus.dev/mw/internal/reassembly"
	"middleware.otus.dev/mw/internal/sockopt"
	"middleware.otus.dev/mw/internal/wire"
)

const initialRecvBufSize = 2048

// UnreliableEndpoint is a UDP-like socket that transparently fragments
// outbound payloads larger than one MTU-sized datagram and reassembles
// inbound fragments back into whole payloads before handing them to the
// caller.
type UnreliableEndpoint struct {
	conn       *net.UDPConn
	fragmenter *fragment.Fragmenter
	table      *reassembly.Table

	mtu     int
	tos     int
	timeout *time.Duration // nil: block indefinitely. *0: non-blocking.
	closed  bool
}

// NewUnreliableEndpoint builds an endpoint from a loaded configuration. It
// fails with core.ErrConfigNotLoaded if cfg was never populated by a
// successful config.Load.
func NewUnreliableEndpoint(cfg *config.Config) (*UnreliableEndpoint, error) {
	if !cfg.Loaded() {
		return nil, core.ErrConfigNotLoaded
	}
	frg, err := fragment.New(cfg.MTU)
	if err != nil {
		return nil, err
	}
	return &UnreliableEndpoint{
		fragmenter: frg,
		table:      reassembly.New(time.Duration(cfg.FragmentTimeout) * time.Second),
		mtu:        cfg.MTU,
	}, nil
}

// Bind opens the underlying UDP socket on localAddr ("host:port", or
// ":0" for an ephemeral port).
func (e *UnreliableEndpoint) Bind(localAddr string) error {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return fmt.Errorf("transport: resolving %q: %w", localAddr, core.ErrTransport)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: binding %q: %w: %v", localAddr, core.ErrTransport, err)
	}
	e.conn = conn
	if e.tos != 0 {
		if err := sockopt.SetTOS(conn, e.tos); err != nil {
			return err
		}
	}
	return nil
}

// SetTimeout sets the deadline applied to every subsequent SendTo/RecvFrom
// call. A nil duration blocks indefinitely; a zero duration makes the
// endpoint non-blocking.
func (e *UnreliableEndpoint) SetTimeout(d *time.Duration) {
	e.timeout = d
}

// GetTimeout returns the currently configured timeout.
func (e *UnreliableEndpoint) GetTimeout() *time.Duration {
	return e.timeout
}

// SetTOS sets the IP_TOS value used for subsequently sent datagrams. Safe
// to call before or after Bind.
func (e *UnreliableEndpoint) SetTOS(tos int) error {
	e.tos = tos
	if e.conn == nil {
		return nil
	}
	return sockopt.SetTOS(e.conn, tos)
}

// GetTOS reads back the socket's current IP_TOS value.
func (e *UnreliableEndpoint) GetTOS() (int, error) {
	if e.conn == nil {
		return e.tos, nil
	}
	return sockopt.GetTOS(e.conn)
}

// GetMTU returns the MTU this endpoint was configured with.
func (e *UnreliableEndpoint) GetMTU() int {
	return e.mtu
}

// LocalAddr returns the address Bind chose, including an OS-assigned port
// when the caller bound to port 0.
func (e *UnreliableEndpoint) LocalAddr() *net.UDPAddr {
	if e.conn == nil {
		return nil
	}
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// GetMSS returns the per-fragment application payload budget at this
// endpoint's MTU: the MTU less the IP, UDP, and fragment header overhead.
func (e *UnreliableEndpoint) GetMSS() int {
	return wire.MaxFragPayload(e.mtu)
}

// MaxPayloadSize returns the largest payload a single SendTo call may
// carry, independent of the configured MTU.
func (e *UnreliableEndpoint) MaxPayloadSize() int {
	return wire.MaxDatagramPayload
}

func (e *UnreliableEndpoint) applyDeadline() error {
	if e.conn == nil {
		return fmt.Errorf("transport: %w", core.ErrTransport)
	}
	switch {
	case e.timeout == nil:
		return e.conn.SetDeadline(time.Time{})
	case *e.timeout == 0:
		return e.conn.SetDeadline(time.Now())
	default:
		return e.conn.SetDeadline(time.Now().Add(*e.timeout))
	}
}

func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrTransport, err)
}

// SendTo fragments payload and writes every fragment to peer, in order.
// A fragment write failure (including a timeout) aborts the remaining
// fragments; the datagram is left partially delivered.
func (e *UnreliableEndpoint) SendTo(payload []byte, peer *net.UDPAddr) error {
	if e.closed {
		return core.ErrClosed
	}
	fragments, err := e.fragmenter.Fragment(payload)
	if err != nil {
		return err
	}
	for _, frag := range fragments {
		if err := e.applyDeadline(); err != nil {
			return err
		}
		if _, err := e.conn.WriteToUDP(frag, peer); err != nil {
			return classifyNetError(err)
		}
	}
	return nil
}

// RecvFrom blocks (subject to the configured timeout) until a complete
// datagram has been reassembled from one or more inbound fragments, then
// returns it along with the peer that sent it.
func (e *UnreliableEndpoint) RecvFrom() ([]byte, *net.UDPAddr, error) {
	if e.closed {
		return nil, nil, core.ErrClosed
	}

	buf := make([]byte, initialRecvBufSize)
	for {
		if payload, peer, ok := e.table.TakeCompleted(); ok {
			return payload, peer.(*net.UDPAddr), nil
		}

		if err := e.applyDeadline(); err != nil {
			return nil, nil, err
		}
		size, err := sockopt.PeekUDPSize(e.conn)
		if err != nil {
			return nil, nil, classifyNetError(err)
		}
		for size > len(buf) {
			buf = make([]byte, len(buf)*2)
		}

		if err := e.applyDeadline(); err != nil {
			return nil, nil, err
		}
		n, peer, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			return nil, nil, classifyNetError(err)
		}

		now := time.Now()
		e.table.AgeOut(now)
		e.table.Accept(buf[:n], peer, now)

		if payload, from, ok := e.table.TakeCompleted(); ok {
			return payload, from.(*net.UDPAddr), nil
		}

		if l := log.GetLogger(); l != nil {
			l.WithField("peer", peer.String()).Debug("transport: fragment received, datagram still incomplete")
		}
	}
}

// Close releases the underlying socket. SendTo and RecvFrom called
// afterwards return core.ErrClosed.
func (e *UnreliableEndpoint) Close() error {
	e.closed = true
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}
