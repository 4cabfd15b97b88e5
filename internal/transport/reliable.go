package transport

import (
	"fmt"
	"net"
	"time"

	"middleware.otus.dev/mw/internal/config"
	"middleware.otus.dev/mw/internal/core"
	"middleware.otus.dev/mw/internal/sockopt"
)

// ReliableEndpoint is a TCP-like socket. It does not fragment application
// data itself — TCP already presents a byte stream — but it configures the
// connection's MSS and congestion-control algorithm from the same
// configuration the unreliable endpoint uses, and clears IP options so the
// header-size arithmetic the spec relies on stays accurate.
type ReliableEndpoint struct {
	conn *net.TCPConn
	ln   *net.TCPListener

	mtu                 int
	tos                 int
	congestionAlgorithm string
	timeout             *time.Duration
	closed              bool
}

// NewReliableEndpoint builds an endpoint from a loaded configuration. It
// fails with core.ErrConfigNotLoaded if cfg was never populated by a
// successful config.Load.
func NewReliableEndpoint(cfg *config.Config) (*ReliableEndpoint, error) {
	if !cfg.Loaded() {
		return nil, core.ErrConfigNotLoaded
	}
	return &ReliableEndpoint{
		mtu:                 cfg.MTU,
		congestionAlgorithm: cfg.CongestionAlgorithm,
	}, nil
}

func mss(mtu int) int {
	const ipHeaderSize = 20
	const tcpHeaderSize = 20
	return mtu - ipHeaderSize - tcpHeaderSize
}

func (e *ReliableEndpoint) configureSocket(conn *net.TCPConn) error {
	if err := sockopt.SetMSS(conn, mss(e.mtu)); err != nil {
		return err
	}
	if err := sockopt.ClearIPOptions(conn); err != nil {
		return err
	}
	if err := sockopt.SetCongestionAlgorithm(conn, e.congestionAlgorithm); err != nil {
		return err
	}
	if e.tos != 0 {
		if err := sockopt.SetTOS(conn, e.tos); err != nil {
			return err
		}
	}
	return nil
}

// Bind resolves localAddr and opens a TCP listener on it, so the endpoint
// accepts connections as soon as Bind returns. Connect does not use the
// bound address; it dials from an OS-chosen local address.
func (e *ReliableEndpoint) Bind(localAddr string) error {
	addr, err := net.ResolveTCPAddr("tcp", localAddr)
	if err != nil {
		return fmt.Errorf("transport: resolving %q: %w", localAddr, core.ErrTransport)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: binding %q: %w: %v", localAddr, core.ErrTransport, err)
	}
	e.ln = ln
	return nil
}

// Listen checks that Bind has opened the listener; the socket is already
// listening by then. backlog is accepted for interface parity with a raw
// listen(2) call; Go's net package does not expose a way to override the
// kernel's default backlog through net.ListenTCP, so the value is ignored
// and the kernel's default backlog applies.
func (e *ReliableEndpoint) Listen(backlog int) error {
	if e.ln == nil {
		return fmt.Errorf("transport: listen before bind: %w", core.ErrTransport)
	}
	return nil
}

// Accept blocks until a peer connects, returning a new ReliableEndpoint for
// that connection (sharing this endpoint's MTU, TOS, and congestion
// settings) and the peer's address.
func (e *ReliableEndpoint) Accept() (*ReliableEndpoint, net.Addr, error) {
	if e.closed {
		return nil, nil, core.ErrClosed
	}
	if e.ln == nil {
		return nil, nil, fmt.Errorf("transport: accept before listen: %w", core.ErrTransport)
	}
	conn, err := e.ln.AcceptTCP()
	if err != nil {
		return nil, nil, classifyNetError(err)
	}
	child := &ReliableEndpoint{
		conn:                conn,
		mtu:                 e.mtu,
		tos:                 e.tos,
		congestionAlgorithm: e.congestionAlgorithm,
	}
	if err := child.configureSocket(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return child, conn.RemoteAddr(), nil
}

// Connect dials peerAddr ("host:port") and configures the resulting
// connection's socket options.
func (e *ReliableEndpoint) Connect(peerAddr string) error {
	addr, err := net.ResolveTCPAddr("tcp", peerAddr)
	if err != nil {
		return fmt.Errorf("transport: resolving %q: %w", peerAddr, core.ErrTransport)
	}
	conn, err := net.DialTCP("tcp", nil, addr)
	if err != nil {
		return fmt.Errorf("transport: connecting to %q: %w: %v", peerAddr, core.ErrTransport, err)
	}
	if err := e.configureSocket(conn); err != nil {
		conn.Close()
		return err
	}
	e.conn = conn
	return nil
}

// SetTimeout sets the deadline applied to every subsequent Send/Recv call.
// A nil duration blocks indefinitely; a zero duration makes the endpoint
// non-blocking.
func (e *ReliableEndpoint) SetTimeout(d *time.Duration) {
	e.timeout = d
}

// GetTimeout returns the currently configured timeout.
func (e *ReliableEndpoint) GetTimeout() *time.Duration {
	return e.timeout
}

// SetTOS sets IP_TOS on the connection, or records it for the next Connect
// if no connection exists yet.
func (e *ReliableEndpoint) SetTOS(tos int) error {
	e.tos = tos
	if e.conn == nil {
		return nil
	}
	return sockopt.SetTOS(e.conn, tos)
}

// GetTOS reads back the socket's current IP_TOS value.
func (e *ReliableEndpoint) GetTOS() (int, error) {
	if e.conn == nil {
		return e.tos, nil
	}
	return sockopt.GetTOS(e.conn)
}

// GetMTU returns the MTU this endpoint was configured with.
func (e *ReliableEndpoint) GetMTU() int {
	return e.mtu
}

// LocalAddr returns the listener's or connection's local address, including
// an OS-assigned port when the caller bound to port 0.
func (e *ReliableEndpoint) LocalAddr() net.Addr {
	if e.ln != nil {
		return e.ln.Addr()
	}
	if e.conn != nil {
		return e.conn.LocalAddr()
	}
	return nil
}

// GetMSS returns the maximum segment size this endpoint advertises,
// assuming no IP or TCP options are in use.
func (e *ReliableEndpoint) GetMSS() int {
	return mss(e.mtu)
}

func (e *ReliableEndpoint) applyDeadline() error {
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

// Send writes payload to the connection once, returning the number of
// bytes actually written — callers needing all-or-nothing semantics should
// use SendAll.
func (e *ReliableEndpoint) Send(payload []byte) (int, error) {
	if e.closed {
		return 0, core.ErrClosed
	}
	if err := e.applyDeadline(); err != nil {
		return 0, err
	}
	n, err := e.conn.Write(payload)
	if err != nil {
		return n, classifyNetError(err)
	}
	return n, nil
}

// SendAll writes the entirety of payload, looping over partial writes
// until it is all sent or an error occurs.
func (e *ReliableEndpoint) SendAll(payload []byte) error {
	for len(payload) > 0 {
		n, err := e.Send(payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// Recv reads up to len(buf) bytes into buf, returning the number of bytes
// read.
func (e *ReliableEndpoint) Recv(buf []byte) (int, error) {
	if e.closed {
		return 0, core.ErrClosed
	}
	if err := e.applyDeadline(); err != nil {
		return 0, err
	}
	n, err := e.conn.Read(buf)
	if err != nil {
		return n, classifyNetError(err)
	}
	return n, nil
}

// Close releases the underlying connection and/or listener. Send, SendAll,
// Recv, and Accept called afterwards return core.ErrClosed.
func (e *ReliableEndpoint) Close() error {
	e.closed = true
	var err error
	if e.conn != nil {
		err = e.conn.Close()
	}
	if e.ln != nil {
		if lnErr := e.ln.Close(); err == nil {
			err = lnErr
		}
	}
	return err
}
