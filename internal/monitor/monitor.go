package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - relay-side gauges and counters exposed on /metrics.
type Metrics struct {
	WaitingPlayers prometheus.Gauge
	ActiveRooms    prometheus.Gauge
	RoomsCreated   prometheus.Counter
	MovesRelayed   prometheus.Counter
}

// New - registers the relay metrics on the given registerer.
// A nil registerer falls back to the default prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metrics := &Metrics{
		WaitingPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_players",
			Help:      "Number of connections waiting for an opponent",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active game rooms",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created by matchmaking",
		}),
		MovesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_relayed_total",
			Help:      "Total number of game states forwarded between peers",
		}),
	}

	reg.MustRegister(
		metrics.WaitingPlayers,
		metrics.ActiveRooms,
		metrics.RoomsCreated,
		metrics.MovesRelayed,
	)

	return metrics
}

// Handler - returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
