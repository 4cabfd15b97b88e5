package wire

import (
	"fmt"

	"middleware.otus.dev/mw/internal/core"
)

// Encode packs a fragment index, final-fragment flag, and datagram ID into
// the 5-byte header and prepends it to body, returning the full fragment.
//
// The header is a 40-bit little-endian field: bits [0,11) hold fragIndex,
// bit 11 holds isFinal, and bits [12,40) hold datagramID. Laid out this way
// on disk/wire this is the same shift-and-mask packing the teacher used to
// read IPv4 fragment offset/flags out of a raw header byte run, just
// produced instead of parsed.
func Encode(datagramID uint32, isFinal bool, fragIndex uint16, body []byte) ([]byte, error) {
	if fragIndex > MaxFragIndex {
		return nil, fmt.Errorf("wire: fragment index %d exceeds %d: %w", fragIndex, MaxFragIndex, core.ErrEncoding)
	}
	if datagramID > MaxDatagramID {
		return nil, fmt.Errorf("wire: datagram id %d exceeds %d: %w", datagramID, MaxDatagramID, core.ErrEncoding)
	}

	var header uint64
	header = uint64(fragIndex)
	if isFinal {
		header |= 1 << FragIndexBits
	}
	header |= uint64(datagramID) << (FragIndexBits + 1)

	out := make([]byte, HeaderSize+len(body))
	for i := 0; i < HeaderSize; i++ {
		out[i] = byte(header >> (8 * i))
	}
	copy(out[HeaderSize:], body)
	return out, nil
}

// Decode splits a received fragment back into its header fields and body.
// A fragment shorter than HeaderSize is malformed; callers on the receive
// path (the reassembly table) are expected to drop it silently rather than
// surface the error to the application.
func Decode(data []byte) (datagramID uint32, isFinal bool, fragIndex uint16, body []byte, err error) {
	if len(data) < HeaderSize {
		err = fmt.Errorf("wire: fragment of %d bytes shorter than header: %w", len(data), core.ErrDecoding)
		return
	}

	var header uint64
	for i := 0; i < HeaderSize; i++ {
		header |= uint64(data[i]) << (8 * i)
	}

	fragIndex = uint16(header & MaxFragIndex)
	isFinal = header&(1<<FragIndexBits) != 0
	datagramID = uint32((header >> (FragIndexBits + 1)) & MaxDatagramID)
	body = data[HeaderSize:]
	return
}
