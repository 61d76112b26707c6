// Package relay implements the full-duplex byte pump between a client
// connection and an upstream connection (spec §4.F). It uses two
// goroutines, one per direction, joined at the end — the alternative
// spec §9 explicitly allows to a single select-based readiness loop,
// since net.Conn does not expose a shared readiness primitive across two
// arbitrary connections in Go's blocking-socket model.
package relay

import (
	"io"
	"sync"

	"github.com/kestrelproxy/kestrel/pkg/bufpool"
)

// Counters receives byte totals as the relay runs, for metrics
// instrumentation. A nil Counters is valid and simply discards counts.
type Counters interface {
	AddClientToUpstream(n int64)
	AddUpstreamToClient(n int64)
}

// noopCounters discards all counts.
type noopCounters struct{}

func (noopCounters) AddClientToUpstream(int64) {}
func (noopCounters) AddUpstreamToClient(int64) {}

// Pump relays bytes bidirectionally between client and upstream until
// either side reaches EOF or a read/write error occurs on either leg.
// Each direction reads up to one bufpool.Relay-sized buffer at a time
// and writes the same bytes to the other side; there is no buffering
// beyond that one scratch region per direction (spec §4.F). A worker
// terminates when either socket returns EOF (spec §5), so Pump closes
// both sockets as soon as the first direction finishes, unblocking
// whichever Read the other direction's goroutine is parked in, rather
// than waiting for both directions to finish on their own. Pump blocks
// until both directions have terminated.
func Pump(client, upstream io.ReadWriteCloser, counters Counters) {
	if counters == nil {
		counters = noopCounters{}
	}

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			client.Close()
			upstream.Close()
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n := copyDirection(upstream, client)
		counters.AddClientToUpstream(n)
		closeBoth()
	}()
	go func() {
		defer wg.Done()
		n := copyDirection(client, upstream)
		counters.AddUpstreamToClient(n)
		closeBoth()
	}()

	wg.Wait()
}

// copyDirection reads from src and writes to dst using a pooled scratch
// buffer until src returns EOF/error or a write to dst fails. It returns
// the number of bytes successfully relayed.
func copyDirection(dst io.Writer, src io.Reader) int64 {
	buf := bufpool.Relay.Get()
	defer bufpool.Relay.Put(buf)

	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total
			}
			total += int64(n)
		}
		if rerr != nil {
			return total
		}
	}
}
