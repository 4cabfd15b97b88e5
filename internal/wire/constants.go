// Package wire implements the on-the-wire fragment header: a fixed 5-byte
// little-endian encoding of a fragment index, a final-fragment flag, and a
// datagram identifier, packed into a single 40-bit field.
package wire

const (
	// FragIndexBits is the width of the fragment-index field.
	FragIndexBits = 11
	// DatagramIDBits is the width of the datagram-identifier field.
	DatagramIDBits = 28

	// HeaderSize is the on-wire size, in bytes, of the fragment header.
	HeaderSize = 5

	// MaxFragIndex is the largest fragment index a header can carry.
	MaxFragIndex = 1<<FragIndexBits - 1

	// MaxDatagramID is the largest datagram identifier a header can carry;
	// identifiers wrap modulo MaxDatagramID+1.
	MaxDatagramID = 1<<DatagramIDBits - 1

	// UDPIPHeaderSize is the assumed size of the IPv4+UDP headers beneath
	// a fragment; through TotalHeaderSize it sizes both MaxFragPayload and
	// MaxDatagramPayload.
	UDPIPHeaderSize = 28

	// MWHeaderSize is HeaderSize restated as a named constant alongside
	// UDPIPHeaderSize, matching the design's header-budget accounting.
	MWHeaderSize = HeaderSize

	// TotalHeaderSize is the combined IP+UDP+fragment header overhead
	// subtracted from a configured MTU to get a fragment's usable payload.
	TotalHeaderSize = UDPIPHeaderSize + MWHeaderSize

	// MTUMin is the smallest MTU the middleware will operate at. A
	// datagram's maximum payload is derived from this floor rather than
	// from the configured MTU, so MaxDatagramPayload never changes
	// underneath a sender mid-session even if the path MTU does.
	MTUMin = 64

	// MaxDatagramPayload is the largest payload a single send_to() may
	// carry, computed from MTUMin so it is stable regardless of the
	// configured MTU: (MTUMin-TotalHeaderSize) bytes per fragment times
	// the number of distinct fragment indices a header can address.
	MaxDatagramPayload = (MTUMin - TotalHeaderSize) * (MaxFragIndex + 1)
)

// MaxFragPayload returns the number of payload bytes that fit in one
// fragment at the given MTU, i.e. the MTU less the IP, UDP, and fragment
// header overhead.
func MaxFragPayload(mtu int) int {
	return mtu - TotalHeaderSize
}
