// Package reassembly tracks in-flight datagrams being rebuilt from
// fragments arriving out of order, possibly duplicated, from possibly many
// peers at once.
//
// The table's shape — a mutex-guarded map of partial records keyed by peer
// and stamped with an arrival time, aged out by an explicit sweep rather
// than a background goroutine — follows the same pattern the teacher used
// for IPv4 fragment reassembly, generalized from IP datagrams to the
// middleware's own wire fragments and from a ticker-driven cleanup() loop
// to an AgeOut call the endpoint makes itself between receives.
package reassembly

import (
	"net"
	"sync"
	"time"

	"middleware.otus.dev/mw/internal/log"
	"middleware.otus.dev/mw/internal/wire"
)

type key struct {
	peer       string
	datagramID uint32
}

type partial struct {
	peer              net.Addr
	timestamp         time.Time
	seenFinal         bool
	expectedFragCount int
	fragments         map[uint16][]byte
}

func (p *partial) complete() bool {
	if !p.seenFinal || len(p.fragments) != p.expectedFragCount {
		return false
	}
	for i := 0; i < p.expectedFragCount; i++ {
		if _, ok := p.fragments[uint16(i)]; !ok {
			return false
		}
	}
	return true
}

func (p *partial) assemble() []byte {
	size := 0
	for i := 0; i < p.expectedFragCount; i++ {
		size += len(p.fragments[uint16(i)])
	}
	out := make([]byte, 0, size)
	for i := 0; i < p.expectedFragCount; i++ {
		out = append(out, p.fragments[uint16(i)]...)
	}
	return out
}

// Table reassembles fragments into complete datagrams, one partial record
// per (peer, datagram id) pair. A Table is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[key]*partial
}

// New builds a Table that ages out partial datagrams after timeout has
// elapsed since their first fragment arrived.
func New(timeout time.Duration) *Table {
	return &Table{
		timeout: timeout,
		entries: make(map[key]*partial),
	}
}

// Accept feeds one received fragment into the table. A fragment that fails
// to decode is dropped silently — the spec treats a malformed inbound
// fragment as noise, not as an error the application ever sees. A fragment
// that duplicates one already recorded at the same index is accepted
// idempotently: it does not refresh the partial datagram's timestamp, so a
// peer that only ever resends fragment 0 still ages out on schedule.
func (t *Table) Accept(fragmentBytes []byte, peer net.Addr, now time.Time) {
	datagramID, isFinal, fragIndex, body, err := wire.Decode(fragmentBytes)
	if err != nil {
		if l := log.GetLogger(); l != nil {
			l.WithError(err).Debug("reassembly: dropping malformed fragment")
		}
		return
	}

	k := key{peer: peer.String(), datagramID: datagramID}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[k]
	if !ok {
		p = &partial{
			peer:      peer,
			timestamp: now,
			fragments: make(map[uint16][]byte),
		}
		t.entries[k] = p
	}

	bodyCopy := make([]byte, len(body))
	copy(bodyCopy, body)
	p.fragments[fragIndex] = bodyCopy

	if isFinal {
		p.seenFinal = true
		p.expectedFragCount = int(fragIndex) + 1
	}
}

// AgeOut discards every partial datagram whose first fragment arrived at
// least timeout ago, as measured against now. Callers are expected to call
// this between receives rather than relying on a background sweep.
func (t *Table) AgeOut(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, p := range t.entries {
		if now.Sub(p.timestamp) >= t.timeout {
			delete(t.entries, k)
			if l := log.GetLogger(); l != nil {
				l.WithField("peer", p.peer.String()).WithField("datagram_id", k.datagramID).Debug("reassembly: aged out incomplete datagram")
			}
		}
	}
}

// TakeCompleted removes and returns one fully reassembled datagram, if any
// is ready. It returns ok=false when nothing is complete yet.
func (t *Table) TakeCompleted() (payload []byte, peer net.Addr, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, p := range t.entries {
		if p.complete() {
			delete(t.entries, k)
			return p.assemble(), p.peer, true
		}
	}
	return nil, nil, false
}

// Len reports the number of partial datagrams currently tracked. Exposed
// for tests and diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
