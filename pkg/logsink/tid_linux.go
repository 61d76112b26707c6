//go:build linux

package logsink

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// threadID returns the kernel thread id of the calling OS thread, the
// closest Go equivalent of the original C source's pthread_self(). Since
// goroutines are not pinned to OS threads, this identifies whichever
// thread happens to be running the current log call, not a stable
// per-connection id — matching the original design's intent (a
// human-debugging aid) rather than a correctness requirement.
func threadID() string {
	return strconv.Itoa(unix.Gettid())
}
