package reassembly_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middleware.otus.dev/mw/internal/reassembly"
	"middleware.otus.dev/mw/internal/wire"
)

func addr(s string) net.Addr {
	a, _ := net.ResolveUDPAddr("udp", s)
	return a
}

func frag(t *testing.T, id uint32, final bool, idx uint16, body []byte) []byte {
	t.Helper()
	b, err := wire.Encode(id, final, idx, body)
	require.NoError(t, err)
	return b
}

func TestReassemblesInOrderFragments(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peer := addr("10.0.0.1:5000")
	now := time.Unix(0, 0)

	tbl.Accept(frag(t, 1, false, 0, []byte("hel")), peer, now)
	tbl.Accept(frag(t, 1, false, 1, []byte("lo ")), peer, now)
	tbl.Accept(frag(t, 1, true, 2, []byte("world")), peer, now)

	payload, from, ok := tbl.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, "hello world", string(payload))
	assert.Equal(t, peer.String(), from.String())
}

func TestReassemblesPermutedFragments(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peer := addr("10.0.0.1:5000")
	now := time.Unix(0, 0)

	tbl.Accept(frag(t, 1, true, 2, []byte("world")), peer, now)
	tbl.Accept(frag(t, 1, false, 0, []byte("hel")), peer, now)
	tbl.Accept(frag(t, 1, false, 1, []byte("lo ")), peer, now)

	payload, _, ok := tbl.TakeCompleted()
	require.True(t, ok)
	assert.Equal(t, "hello world", string(payload))
}

func TestDuplicateFragmentIsIdempotentAndDoesNotRefreshTimestamp(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peer := addr("10.0.0.1:5000")
	t0 := time.Unix(0, 0)

	tbl.Accept(frag(t, 1, false, 0, []byte("a")), peer, t0)
	// Resend fragment 0 much later; if the timestamp refreshed, the entry
	// would survive the age-out check below.
	tbl.Accept(frag(t, 1, false, 0, []byte("a")), peer, t0.Add(2*time.Second))

	tbl.AgeOut(t0.Add(2 * time.Second))
	assert.Equal(t, 0, tbl.Len())
}

func TestAgeOutDropsIncompleteDatagramsAfterTimeout(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peer := addr("10.0.0.1:5000")
	t0 := time.Unix(0, 0)

	tbl.Accept(frag(t, 1, false, 0, []byte("a")), peer, t0)
	tbl.AgeOut(t0.Add(500 * time.Millisecond))
	assert.Equal(t, 1, tbl.Len(), "not yet past timeout")

	tbl.AgeOut(t0.Add(time.Second))
	assert.Equal(t, 0, tbl.Len(), "past timeout")
}

func TestMalformedFragmentIsDroppedSilently(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peer := addr("10.0.0.1:5000")

	tbl.Accept([]byte{1, 2}, peer, time.Unix(0, 0))
	assert.Equal(t, 0, tbl.Len())

	_, _, ok := tbl.TakeCompleted()
	assert.False(t, ok)
}

func TestPeersAreIsolated(t *testing.T) {
	tbl := reassembly.New(time.Second)
	peerA := addr("10.0.0.1:5000")
	peerB := addr("10.0.0.2:6000")
	now := time.Unix(0, 0)

	tbl.Accept(frag(t, 1, true, 0, []byte("a")), peerA, now)
	tbl.Accept(frag(t, 1, true, 0, []byte("b")), peerB, now)

	assert.Equal(t, 2, tbl.Len())
	first, firstPeer, ok := tbl.TakeCompleted()
	require.True(t, ok)
	second, secondPeer, ok := tbl.TakeCompleted()
	require.True(t, ok)

	assert.NotEqual(t, firstPeer.String(), secondPeer.String())
	assert.ElementsMatch(t, []string{"a", "b"}, []string{string(first), string(second)})
}
