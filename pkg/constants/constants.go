// Package constants collects the proxy's tunable defaults in one place,
// the way the teacher centralizes its protocol limits and timeouts.
package constants

import "time"

// Connection timeouts.
const (
	// DialTimeout bounds how long the worker waits to connect to an
	// origin (or upstream proxy), direct or chained (spec §4.E).
	DialTimeout = 10 * time.Second
)

// Buffer sizing (spec §4.E, §4.F).
const (
	// HeadBufferSize is the worker's request-head read buffer: 8KiB
	// minus one sentinel byte.
	HeadBufferSize = 8*1024 - 1

	// RelayBufferSize is the relay's per-direction scratch read size.
	RelayBufferSize = 8 * 1024
)

// ListenBacklog records the listen() backlog depth of 20 used by the
// original C source. The acceptor does not apply it: net.ListenConfig has
// no backlog setting, so the listener uses the Go runtime's default.
const ListenBacklog = 20
