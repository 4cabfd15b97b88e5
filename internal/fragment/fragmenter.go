// Package fragment splits outbound datagrams into wire-sized fragments.
package fragment

import (
	"fmt"
	"math"

	"middleware.otus.dev/mw/internal/core"
	"middleware.otus.dev/mw/internal/wire"
)

// Fragmenter carries the per-endpoint monotonic datagram-id counter and the
// per-fragment payload budget derived from the endpoint's configured MTU.
// A Fragmenter is owned by exactly one UnreliableEndpoint and is not safe
// for concurrent use by multiple goroutines without external locking.
type Fragmenter struct {
	maxFragPayload int
	nextDatagramID uint32
}

// New builds a Fragmenter for the given MTU. It fails if the MTU leaves no
// room for payload bytes once the IP, UDP, and fragment headers are
// subtracted (mtu <= wire.TotalHeaderSize).
func New(mtu int) (*Fragmenter, error) {
	maxFragPayload := wire.MaxFragPayload(mtu)
	if maxFragPayload <= 0 {
		return nil, fmt.Errorf("fragment: mtu %d leaves no room for a fragment payload: %w", mtu, core.ErrConfigInvalid)
	}
	return &Fragmenter{maxFragPayload: maxFragPayload}, nil
}

// Fragment splits payload into one or more wire-encoded fragments sharing a
// single datagram id, which advances (mod 2^28) on every call regardless of
// whether the payload is empty. An empty payload still yields one fragment
// carrying a zero-length body, so the peer observes a datagram that was
// sent.
func (f *Fragmenter) Fragment(payload []byte) ([][]byte, error) {
	if len(payload) > wire.MaxDatagramPayload {
		return nil, fmt.Errorf("fragment: payload of %d bytes exceeds max %d: %w", len(payload), wire.MaxDatagramPayload, core.ErrPayloadTooLarge)
	}

	datagramID := f.nextDatagramID
	f.nextDatagramID = (f.nextDatagramID + 1) % (wire.MaxDatagramID + 1)

	fragCount := 1
	if len(payload) > 0 {
		fragCount = int(math.Ceil(float64(len(payload)) / float64(f.maxFragPayload)))
	}

	fragments := make([][]byte, 0, fragCount)
	for i := 0; i < fragCount; i++ {
		start := i * f.maxFragPayload
		end := start + f.maxFragPayload
		if end > len(payload) {
			end = len(payload)
		}
		isFinal := i == fragCount-1
		frag, err := wire.Encode(datagramID, isFinal, uint16(i), payload[start:end])
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, frag)
	}
	return fragments, nil
}
