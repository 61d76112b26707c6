// Package acceptor binds the listening socket and drives the accept
// loop (spec §2.D, §4.D): one goroutine per accepted connection, handed
// straight to a worker, with accept() failures logged and the loop kept
// running rather than torn down (spec §7). There is no connection limit,
// no admission control, and no graceful shutdown — spec.md's Non-goals
// exclude all three.
//
// SO_REUSEADDR setup is grounded on caddyserver-caddy's listen_linux.go
// reusePort, adapted from SO_REUSEPORT to SO_REUSEADDR since this
// proxy runs a single listening process rather than caddy's multi-process
// socket-sharing model.
package acceptor

import (
	"context"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/kestrelproxy/kestrel/pkg/logsink"
	"github.com/kestrelproxy/kestrel/pkg/metrics"
	"github.com/kestrelproxy/kestrel/pkg/proxyerr"
)

// Handler processes one accepted connection, normally *worker.Worker.
type Handler interface {
	Handle(conn net.Conn)
}

// Acceptor owns the listening socket and the accept loop.
type Acceptor struct {
	ln      net.Listener
	handler Handler
	log     *logsink.Logger
}

// Listen binds a TCP listener on the wildcard IPv4 address at port with
// SO_REUSEADDR set, per spec §4.D.
func Listen(port string) (*Acceptor, error) {
	cfg := net.ListenConfig{Control: setReuseAddr}
	ln, err := cfg.Listen(context.Background(), "tcp4", net.JoinHostPort("", port))
	if err != nil {
		return nil, proxyerr.NewAcceptError(err)
	}
	return &Acceptor{ln: ln}, nil
}

// WithHandler sets the per-connection handler and returns the Acceptor
// for chaining.
func (a *Acceptor) WithHandler(h Handler) *Acceptor {
	a.handler = h
	return a
}

// WithLog sets the logger used for accept-loop diagnostics and returns
// the Acceptor for chaining.
func (a *Acceptor) WithLog(log *logsink.Logger) *Acceptor {
	a.log = log
	return a
}

// Addr returns the bound listener address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Close closes the listening socket, unblocking Serve.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}

// Serve runs the accept loop until the listener is closed. Every accepted
// connection is handed to a's handler in its own goroutine; accept()
// errors are logged and the loop continues (spec §4.D, §7). Serve
// returns nil once the listener is closed (via Close).
func (a *Acceptor) Serve() error {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			metrics.AcceptErrors.Inc()
			a.logf("accept: %v", proxyerr.NewAcceptError(err))
			continue
		}

		metrics.ConnectionsAccepted.Inc()
		go a.handler.Handle(conn)
	}
}

func (a *Acceptor) logf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.log.Logf(format, args...)
}

func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
