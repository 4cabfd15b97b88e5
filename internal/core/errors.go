// Package core defines the sentinel errors shared by the fragmentation,
// reassembly, transport, and configuration packages.
package core

import "errors"

// Sentinel errors, one per error-taxonomy kind from the design (§7).
// Call sites wrap these with fmt.Errorf("...: %w", ErrX) so callers can
// still use errors.Is against the sentinel.
var (
	// ErrConfigInvalid is returned for ill-formed INI input, unknown
	// sections/options, or type-coercion failures. Fatal at startup.
	ErrConfigInvalid = errors.New("middleware: invalid configuration")

	// ErrConfigNotLoaded is returned by the endpoint constructors when given
	// a Config that did not come from a successful Load — the "first read
	// before load fails loudly" rule.
	ErrConfigNotLoaded = errors.New("middleware: configuration not loaded")

	// ErrPayloadTooLarge is returned by the fragmenter when send_to's
	// payload exceeds MaxDatagramPayload. Fatal to the call; the endpoint
	// remains usable.
	ErrPayloadTooLarge = errors.New("middleware: payload exceeds maximum datagram size")

	// ErrEncoding marks a bug or out-of-range field at header-encode time.
	ErrEncoding = errors.New("middleware: fragment header encoding error")

	// ErrDecoding marks a fragment too short to carry a valid header.
	// Inbound decode errors are swallowed by the reassembler per spec; this
	// sentinel exists so codec callers (and its own tests) can assert on it.
	ErrDecoding = errors.New("middleware: fragment header decoding error")

	// ErrTransport wraps an error bubbled up from the underlying socket
	// (connection reset, closed socket, address-family mismatch).
	ErrTransport = errors.New("middleware: transport error")

	// ErrTimeout wraps an error surfaced when the endpoint's configured
	// timeout elapses on a blocking socket call.
	ErrTimeout = errors.New("middleware: operation timed out")

	// ErrClosed is returned by an endpoint's send, receive, and accept
	// operations performed after Close.
	ErrClosed = errors.New("middleware: endpoint closed")
)
