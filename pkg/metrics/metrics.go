// Package metrics defines the proxy's Prometheus counters and gauges,
// grounded on caddyserver-caddy's metrics.go (promauto-registered
// CounterVecs under a namespace/subsystem) and the sized-buffer-pool
// metrics in the corpus's HTTP server toolkit. Serving them is optional
// (see cmd/kestrel's -metrics-addr flag); the counters themselves are
// always updated, since that's free.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "kestrel"
	subsystem = "proxy"
)

var (
	// ConnectionsAccepted counts every connection handed from the
	// acceptor to a worker.
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "connections_accepted_total",
		Help:      "Total client connections accepted by the listener.",
	})

	// AcceptErrors counts accept() failures (spec §7: logged, acceptor
	// keeps running).
	AcceptErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "accept_errors_total",
		Help:      "Total accept() failures.",
	})

	// TunnelsActive is the number of CONNECT tunnels currently relaying.
	TunnelsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tunnels_active",
		Help:      "CONNECT tunnels currently relaying bytes.",
	})

	// ForwardsActive is the number of plain forward requests currently
	// relaying.
	ForwardsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "forwards_active",
		Help:      "Forward-path requests currently relaying.",
	})

	// ParseFailures counts request heads that failed to parse (spec §7).
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "parse_failures_total",
		Help:      "Request heads that failed to parse.",
	})

	// UpstreamConnectFailures counts DNS/connect failures opening the
	// upstream socket (spec §7).
	UpstreamConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "upstream_connect_failures_total",
		Help:      "Failures resolving or connecting to the origin/upstream.",
	})

	// BytesRelayed counts bytes moved by the relay, labeled by direction.
	BytesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "bytes_relayed_total",
		Help:      "Total bytes relayed, by direction.",
	}, []string{"direction"})
)

// relayCounters adapts the package-level BytesRelayed vector to the
// relay package's small Counters interface.
type relayCounters struct{}

// Relay is the Counters implementation passed to relay.Pump.
var Relay relayCounters

func (relayCounters) AddClientToUpstream(n int64) {
	BytesRelayed.WithLabelValues("client_to_upstream").Add(float64(n))
}

func (relayCounters) AddUpstreamToClient(n int64) {
	BytesRelayed.WithLabelValues("upstream_to_client").Add(float64(n))
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format, for an optional debug/metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
