package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authsession"

//nolint:gochecknoglobals // collectors are registered once per process
var (
	refreshOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh requests by outcome (rotated, reissued, rejected) and reject reason.",
	}, []string{"outcome", "reason"})

	handshakeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "socket_handshake_total",
		Help:      "Socket handshake attempts by result.",
	}, []string{"result"})

	idleTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idle_timeouts_total",
		Help:      "Sessions revoked by the idle tracker.",
	})

	revocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_revocations_total",
		Help:      "Session deletions by cause.",
	}, []string{"cause"})

	openSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_sockets",
		Help:      "Authenticated realtime connections currently open.",
	})
)

func ObserveRefresh(outcome, reason string) {
	refreshOutcomes.WithLabelValues(outcome, reason).Inc()
}

func ObserveHandshake(result string) {
	handshakeOutcomes.WithLabelValues(result).Inc()
}

func ObserveIdleTimeout() {
	idleTimeouts.Inc()
}

func ObserveRevocation(cause string) {
	revocations.WithLabelValues(cause).Inc()
}

func SocketOpened() { openSockets.Inc() }
func SocketClosed() { openSockets.Dec() }
