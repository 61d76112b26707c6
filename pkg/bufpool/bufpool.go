// Package bufpool provides a sync.Pool-backed reuse of fixed-size byte
// slices for the worker's head-read buffer and the relay's per-direction
// scratch buffers, avoiding a fresh allocation on every accepted
// connection.
package bufpool

import (
	"sync"
	"sync/atomic"

	"github.com/kestrelproxy/kestrel/pkg/constants"
)

// HeadSize is the worker's request-head read buffer size (spec §4.E
// step 1).
const HeadSize = constants.HeadBufferSize

// RelaySize is the relay's per-direction scratch read size (spec §4.F).
const RelaySize = constants.RelayBufferSize

// Pool hands out fixed-size []byte slabs and tracks basic reuse counters.
// Pool is shared across every worker goroutine (via the package-level
// Head and Relay pools below), so its counters are atomic.
type Pool struct {
	size   int
	pool   sync.Pool
	gets   atomic.Uint64
	puts   atomic.Uint64
	misses atomic.Uint64
}

// New returns a Pool whose Get always returns a slice of size bytes.
func New(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		p.misses.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Head is the package-level pool for worker head-read buffers.
var Head = New(HeadSize)

// Relay is the package-level pool for relay scratch buffers.
var Relay = New(RelaySize)

// Get returns a buffer whose length is the pool's configured size, ready
// for direct indexing or use as a Read target.
func (p *Pool) Get() []byte {
	p.gets.Add(1)
	buf := p.pool.Get().(*[]byte)
	return (*buf)[:p.size]
}

// Put returns buf to the pool. buf must have been obtained from Get (or
// have the pool's configured size); slices of the wrong size are dropped
// rather than pooled, to keep every pooled slice a uniform size class
// (grounded on the sized buffer pools in the corpus's HTTP server
// toolkit).
func (p *Pool) Put(buf []byte) {
	p.puts.Add(1)
	if cap(buf) != p.size {
		return
	}
	buf = buf[:cap(buf)]
	p.pool.Put(&buf)
}

// Stats reports lifetime Get/Put counts for this pool.
type Stats struct {
	Gets, Puts, Hits, Misses uint64
}

// Stats returns a snapshot of this pool's lifetime counters. Hits is
// derived (gets minus misses) rather than tracked separately, since a
// "hit" is defined only by the absence of a New() call for that Get.
func (p *Pool) Stats() Stats {
	gets, misses := p.gets.Load(), p.misses.Load()
	hits := gets - misses
	if misses > gets {
		hits = 0
	}
	return Stats{Gets: gets, Puts: p.puts.Load(), Hits: hits, Misses: misses}
}
