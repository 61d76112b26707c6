//go:build !linux

package logsink

// threadID falls back to a fixed placeholder on platforms where Gettid
// has no portable equivalent; goroutines are not OS threads, so there is
// no exact analogue of the original C source's pthread_self() outside
// Linux's gettid().
func threadID() string {
	return "-"
}
