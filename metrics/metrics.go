package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "packetlog"
var subsystem = "packetlogd"

var (
	// StartupTime stores how long the startup took (in seconds)
	StartupTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "startup_seconds",
			Help:      "Seconds taken by the startup",
		},
	)

	// ConnectionsAcceptedTotal counts every admitted client connection
	ConnectionsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "connections_accepted_total",
		Help:      "Number of client connections accepted and admitted",
	})

	// ConnectionsRefusedTotal counts accept-loop backoffs while the
	// session table was at capacity
	ConnectionsRefusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "connections_refused_total",
		Help:      "Number of accept attempts deferred because the session table was full",
	})

	// ActiveSessions tracks the number of currently live sessions
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Number of currently live client sessions",
	})

	// PacketsLoggedTotal counts complete packets appended to the data file
	PacketsLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "packets_logged_total",
		Help:      "Number of complete packets appended to the data file",
	})

	// BytesAppendedTotal counts bytes appended to the data file
	BytesAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "bytes_appended_total",
		Help:      "Number of bytes appended to the data file",
	})

	// EchoBytesTotal counts bytes streamed back to clients after a packet
	EchoBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "echo_bytes_total",
		Help:      "Number of data file bytes echoed back to clients",
	})
)
