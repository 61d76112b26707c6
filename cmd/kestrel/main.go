// Command kestrel runs the forwarding HTTP/HTTPS proxy server.
//
// Usage:
//
//	kestrel <port> [-upstream-proxy url] [-log path] [-metrics-addr addr]
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/kestrelproxy/kestrel/internal/acceptor"
	"github.com/kestrelproxy/kestrel/internal/worker"
	"github.com/kestrelproxy/kestrel/pkg/logsink"
	"github.com/kestrelproxy/kestrel/pkg/metrics"
	"github.com/kestrelproxy/kestrel/pkg/upstreamproxy"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kestrel", flag.ContinueOnError)
	upstreamProxyURL := fs.String("upstream-proxy", "", "optional upstream proxy URL (http://host:port or socks5://host:port) to dial origins through")
	logPath := fs.String("log", logsink.DefaultPath, "path to the append-only log file")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	// flag stops at the first non-flag argument, so parse again after each
	// positional argument to accept flags on either side of <port>.
	var positional []string
	for rest := args; ; {
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(positional) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <port> [flags]\n", os.Args[0])
		fs.PrintDefaults()
		return 1
	}
	port := positional[0]

	log, err := logsink.Open(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kestrel: open log: %v\n", err)
		return 1
	}
	defer log.Close()

	var dialer worker.Dialer
	if *upstreamProxyURL != "" {
		cfg, err := upstreamproxy.ParseURL(*upstreamProxyURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kestrel: %v\n", err)
			return 1
		}
		dialer = worker.UpstreamDialer(upstreamproxy.NewDialer(cfg))
		log.Logf("dialing origins via upstream proxy %s", *upstreamProxyURL)
	}

	w := worker.New(dialer, log)

	a, err := acceptor.Listen(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kestrel: listen on port %s: %v\n", port, err)
		return 1
	}
	a.WithHandler(w).WithLog(log)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, log)
	}

	log.Logf("listening on %s", a.Addr())
	if err := a.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "kestrel: serve: %v\n", err)
		return 1
	}
	return 0
}

func serveMetrics(addr string, log *logsink.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logf("metrics server on %s: %v", addr, err)
	}
}
