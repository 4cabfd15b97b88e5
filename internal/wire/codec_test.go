package wire_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/core"
	"middleware.otus.dev/mw/internal/wire"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		datagramID uint32
		isFinal    bool
		fragIndex  uint16
		body       []byte
	}{
		{"zero values", 0, false, 0, nil},
		{"final flag set", 42, true, 7, []byte("hello")},
		{"max fragment index", 1, false, wire.MaxFragIndex, []byte{1, 2, 3}},
		{"max datagram id", wire.MaxDatagramID, true, 0, []byte{9}},
		{"empty body", 5, true, 0, []byte{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frag, err := wire.Encode(tc.datagramID, tc.isFinal, tc.fragIndex, tc.body)
			require.NoError(t, err)
			assert.Len(t, frag, wire.HeaderSize+len(tc.body))

			gotID, gotFinal, gotIdx, gotBody, err := wire.Decode(frag)
			require.NoError(t, err)
			assert.Equal(t, tc.datagramID, gotID)
			assert.Equal(t, tc.isFinal, gotFinal)
			assert.Equal(t, tc.fragIndex, gotIdx)
			assert.Equal(t, len(tc.body), len(gotBody))
		})
	}
}

func TestEncodeRejectsOutOfRangeFields(t *testing.T) {
	_, err := wire.Encode(0, false, wire.MaxFragIndex+1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEncoding))

	_, err = wire.Encode(wire.MaxDatagramID+1, false, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEncoding))
}

func TestDecodeRejectsShortFragment(t *testing.T) {
	_, _, _, _, err := wire.Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDecoding))
}

func TestMaxDatagramPayloadIsStableAcrossMTU(t *testing.T) {
	// MaxDatagramPayload is derived from MTUMin, not the configured MTU,
	// so it must not change when MaxFragPayload does.
	assert.Equal(t, 63488, wire.MaxDatagramPayload)
	assert.Equal(t, wire.MTUMin-wire.TotalHeaderSize, wire.MaxFragPayload(wire.MTUMin))
	assert.Greater(t, wire.MaxFragPayload(1500), wire.MaxFragPayload(wire.MTUMin))
}
