// Package sockopt applies the raw socket options the transport endpoints
// need and that net.Conn does not expose directly: IP_TOS, TCP_MAXSEG,
// TCP_CONGESTION, clearing IP_OPTIONS, and peeking a UDP datagram's size
// before choosing a receive buffer. Every option is set through
// golang.org/x/sys/unix against the fd underneath a net.Conn, resolving the
// fd through SyscallConn and checking the error of each Setsockopt* call.
package sockopt

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"middleware.otus.dev/mw/internal/core"
)

func withFd(conn syscall.Conn, fn func(fd int) error) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("sockopt: %w: %v", core.ErrTransport, err)
	}
	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	})
	if err != nil {
		return fmt.Errorf("sockopt: %w: %v", core.ErrTransport, err)
	}
	if opErr != nil {
		return fmt.Errorf("sockopt: %w: %v", core.ErrTransport, opErr)
	}
	return nil
}

// SetTOS sets IP_TOS on the given connection's socket.
func SetTOS(conn syscall.Conn, tos int) error {
	return withFd(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
	})
}

// GetTOS reads back IP_TOS from the given connection's socket.
func GetTOS(conn syscall.Conn) (int, error) {
	var got int
	err := withFd(conn, func(fd int) error {
		v, err := unix.GetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS)
		if err != nil {
			return err
		}
		got = v
		return nil
	})
	return got, err
}

// SetMSS sets TCP_MAXSEG on the given TCP socket so its advertised maximum
// segment size matches the configured MTU.
func SetMSS(conn syscall.Conn, mss int) error {
	return withFd(conn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_MAXSEG, mss)
	})
}

// SetCongestionAlgorithm sets TCP_CONGESTION on the given TCP socket.
func SetCongestionAlgorithm(conn syscall.Conn, algorithm string) error {
	return withFd(conn, func(fd int) error {
		return unix.SetsockoptString(fd, unix.IPPROTO_TCP, unix.TCP_CONGESTION, algorithm)
	})
}

// ClearIPOptions ensures the socket carries no IP options, keeping the IP
// header at its fixed 20-byte size so the MSS/header-budget arithmetic
// stays accurate.
func ClearIPOptions(conn syscall.Conn) error {
	return withFd(conn, func(fd int) error {
		return unix.SetsockoptString(fd, unix.IPPROTO_IP, unix.IP_OPTIONS, "")
	})
}

// PeekUDPSize returns the full size of the next datagram queued on conn
// without consuming it, using MSG_PEEK combined with MSG_TRUNC so the
// kernel reports the datagram's real length even though the peek buffer
// itself is tiny. It waits until a datagram is queued or conn's deadline
// passes. The caller uses the result to size its receive buffer before the
// real read.
func PeekUDPSize(conn *net.UDPConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("sockopt: %w: %v", core.ErrTransport, err)
	}

	peekBuf := make([]byte, 16)
	var n int
	var recvErr error
	err = raw.Read(func(fd uintptr) bool {
		n, _, recvErr = unix.Recvfrom(int(fd), peekBuf, unix.MSG_PEEK|unix.MSG_TRUNC)
		// Nothing queued yet: return false so the runtime waits for the
		// socket to become readable, subject to conn's deadline.
		return recvErr != unix.EAGAIN && recvErr != unix.EWOULDBLOCK
	})
	if err != nil {
		return 0, fmt.Errorf("sockopt: %w: %w", core.ErrTransport, err)
	}
	if recvErr != nil {
		return 0, fmt.Errorf("sockopt: %w: %v", core.ErrTransport, recvErr)
	}
	return n, nil
}
