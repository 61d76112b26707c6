// Package worker implements the per-connection driver that the acceptor
// spawns one goroutine of per accepted client connection (spec §2.E,
// §4.E): read the request head, classify CONNECT tunnel vs. forward
// path, open the upstream connection, and hand both sockets to the
// relay.
//
// Grounded on the teacher's rawhttp.go request/response driving loop and
// pkg/transport/transport.go's dial-then-relay shape, generalized from a
// client dialing one fixed origin to a proxy dialing whatever origin the
// client's request names.
package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/kestrelproxy/kestrel/pkg/bufpool"
	"github.com/kestrelproxy/kestrel/pkg/constants"
	"github.com/kestrelproxy/kestrel/pkg/logsink"
	"github.com/kestrelproxy/kestrel/pkg/metrics"
	"github.com/kestrelproxy/kestrel/pkg/proxyerr"
	"github.com/kestrelproxy/kestrel/pkg/relay"
	"github.com/kestrelproxy/kestrel/pkg/request"
	"github.com/kestrelproxy/kestrel/pkg/timing"
	"github.com/kestrelproxy/kestrel/pkg/upstreamproxy"
)

const (
	defaultHTTPPort  = "80"
	defaultHTTPSPort = "443"

	// connectRespOK is the exact response the tunnel path writes on a
	// successful upstream connect (spec §4.E); no status text variant,
	// no headers beyond the terminating CRLF.
	connectRespOK = "HTTP/1.1 200 Connection Established\r\n\r\n"

	dialTimeout = constants.DialTimeout
)

// Dialer opens a connection to addr ("host:port"), either directly or by
// way of a configured upstream proxy (Component H). A nil Dialer's
// methods are never called; Worker always has one, defaulting to direct
// dialing.
type Dialer interface {
	DialContext(ctx context.Context, addr string) (net.Conn, error)
}

// directDialer dials the origin directly — the default when no
// -upstream-proxy flag is configured.
type directDialer struct{}

func (directDialer) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Direct is the zero-configuration Dialer used when no upstream proxy is
// set.
var Direct Dialer = directDialer{}

// UpstreamDialer adapts an *upstreamproxy.Dialer to the Dialer interface.
func UpstreamDialer(d *upstreamproxy.Dialer) Dialer {
	return upstreamDialerAdapter{d}
}

type upstreamDialerAdapter struct {
	d *upstreamproxy.Dialer
}

func (a upstreamDialerAdapter) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	return a.d.DialContext(ctx, addr)
}

// Worker drives a single accepted client connection end to end.
type Worker struct {
	Dialer Dialer
	Log    *logsink.Logger
}

// New returns a Worker using dialer to reach origins (Direct if dialer is
// nil) and logging through log. A nil log is allowed: the Worker then
// logs nothing.
func New(dialer Dialer, log *logsink.Logger) *Worker {
	if dialer == nil {
		dialer = Direct
	}
	return &Worker{Dialer: dialer, Log: log}
}

// Handle owns client end to end: it always closes client before
// returning. Errors are logged, never returned — a single bad connection
// must never take down the acceptor (spec §4.E, §7).
func (w *Worker) Handle(client net.Conn) {
	defer client.Close()

	timer := timing.NewTimer()
	defer func() { w.logf("connection from %s: %s", client.RemoteAddr(), timer.GetMetrics()) }()

	head := bufpool.Head.Get()
	defer bufpool.Head.Put(head)

	n, residual, err := readHead(client, head)
	if err != nil {
		w.logf("read head from %s: %v", client.RemoteAddr(), err)
		return
	}

	if n >= 7 && bytes.Equal(head[:7], []byte("CONNECT")) {
		w.handleConnect(client, head[:n], residual, timer)
		return
	}

	w.handleForward(client, head[:n], residual, timer)
}

// readHead reads from conn into buf until "\r\n\r\n" appears, buf fills,
// or EOF, returning the number of head bytes found (including the
// terminator) and any residual bytes read past it — the over-read the
// spec's Open Question resolves by forwarding to the upstream before the
// relay starts (spec §9).
func readHead(conn net.Conn, buf []byte) (headLen int, residual []byte, err error) {
	total := 0
	for {
		m, rerr := conn.Read(buf[total:])
		total += m
		if idx := bytes.Index(buf[:total], []byte("\r\n\r\n")); idx >= 0 {
			end := idx + 4
			return end, append([]byte(nil), buf[end:total]...), nil
		}
		if rerr != nil {
			return 0, nil, proxyerr.NewIOError("read head", rerr)
		}
		if total == len(buf) {
			return 0, nil, proxyerr.NewProtocolError("request head exceeds buffer", nil)
		}
	}
}

// handleConnect implements the CONNECT tunnel path (spec §4.E): parse
// "CONNECT host:port HTTP/1.x", dial the origin, answer 200, forward any
// over-read bytes, then relay bidirectionally.
func (w *Worker) handleConnect(client net.Conn, head []byte, residual []byte, timer *timing.Timer) {
	lineEnd := bytes.Index(head, []byte("\r\n"))
	if lineEnd < 0 {
		w.logf("malformed CONNECT request line")
		metrics.ParseFailures.Inc()
		return
	}
	fields := bytes.Fields(head[:lineEnd])
	if len(fields) != 3 {
		w.logf("malformed CONNECT request line")
		metrics.ParseFailures.Inc()
		return
	}

	hostport := string(fields[1])
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
		port = defaultHTTPSPort
	}

	metrics.TunnelsActive.Inc()
	defer metrics.TunnelsActive.Dec()

	timer.StartDial()
	upstream, err := w.dial(host, port)
	timer.EndDial()
	if err != nil {
		w.logf("connect tunnel to %s:%s: %v (%s)", host, port, err, describeDialFailure(err))
		metrics.UpstreamConnectFailures.Inc()
		return
	}
	defer upstream.Close()

	if _, err := client.Write([]byte(connectRespOK)); err != nil {
		w.logf("write CONNECT response: %v", err)
		return
	}

	if len(residual) > 0 {
		if _, err := upstream.Write(residual); err != nil {
			w.logf("forward residual bytes after CONNECT: %v", err)
			return
		}
	}

	relay.Pump(client, upstream, metrics.Relay)
}

// handleForward implements the plain forward path (spec §4.E): parse the
// request head, dial the origin, re-serialize and send the head, forward
// any over-read bytes, then relay.
func (w *Worker) handleForward(client net.Conn, head []byte, residual []byte, timer *timing.Timer) {
	parsed, err := request.Parse(head)
	if err != nil {
		w.logf("parse request head: %v", err)
		metrics.ParseFailures.Inc()
		return
	}

	host := string(parsed.Host)
	port := defaultHTTPPort
	if parsed.HasPort() {
		port = string(parsed.Port)
	}

	metrics.ForwardsActive.Inc()
	defer metrics.ForwardsActive.Dec()

	timer.StartDial()
	upstream, err := w.dial(host, port)
	timer.EndDial()
	if err != nil {
		w.logf("connect to %s:%s: %v (%s)", host, port, err, describeDialFailure(err))
		metrics.UpstreamConnectFailures.Inc()
		return
	}
	defer upstream.Close()

	if _, err := io.WriteString(upstream, parsed.Reserialize()); err != nil {
		w.logf("write request head upstream: %v", err)
		return
	}

	if len(residual) > 0 {
		if _, err := upstream.Write(residual); err != nil {
			w.logf("forward residual bytes: %v", err)
			return
		}
	}

	relay.Pump(client, upstream, metrics.Relay)
}

func (w *Worker) dial(host, port string) (net.Conn, error) {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, proxyerr.NewValidationError("invalid port " + port)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := w.Dialer.DialContext(ctx, net.JoinHostPort(host, port))
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, proxyerr.NewDNSError(host, err)
		}
		return nil, proxyerr.NewConnectionError(host, portNum, err)
	}
	return conn, nil
}

// describeDialFailure adds the structured error type and whether the
// failure was a timeout to a dial failure's log line, using the
// classification helpers every *proxyerr.Error failure path shares.
func describeDialFailure(err error) string {
	return string(proxyerr.GetErrorType(err)) + " timeout=" + strconv.FormatBool(proxyerr.IsTimeoutError(err))
}

func (w *Worker) logf(format string, args ...any) {
	if w.Log == nil {
		return
	}
	w.Log.Logf(format, args...)
}
