// Package metrics exposes Prometheus metrics for the coin-sensor daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/coin-sensor/internal/logic"
)

// Metrics holds the daemon's Prometheus collectors on a private registry so
// tests can create instances independently.
type Metrics struct {
	registry *prometheus.Registry

	coinCount     prometheus.Gauge
	eventsTotal   *prometheus.CounterVec
	drawerState   prometheus.Gauge
	drawerOpenSec prometheus.Gauge
	mqttConnected prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		coinCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coin_count",
			Help: "Completed coin cycles since startup.",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coin_events_total",
			Help: "Total events published by type.",
		}, []string{"type"}),
		drawerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drawer_state",
			Help: "Drawer state (0 closed, 1 open, 2 stuck open).",
		}),
		drawerOpenSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drawer_open_seconds",
			Help: "How long the drawer has currently been open.",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "Whether the MQTT broker connection is up.",
		}),
	}

	m.registry.MustRegister(
		m.coinCount,
		m.eventsTotal,
		m.drawerState,
		m.drawerOpenSec,
		m.mqttConnected,
	)
	return m
}

// Observe updates the gauges from the FSM's current state.
// Called from the run loop on every tick.
func (m *Metrics) Observe(state logic.State, coins int, openFor time.Duration) {
	m.coinCount.Set(float64(coins))
	m.drawerState.Set(stateValue(state))
	m.drawerOpenSec.Set(openFor.Seconds())
}

// CountEvent records one published event.
func (m *Metrics) CountEvent(t logic.EventType) {
	m.eventsTotal.WithLabelValues(string(t)).Inc()
}

// SetMQTTConnected records broker connectivity.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func stateValue(s logic.State) float64 {
	switch s {
	case logic.StateOpen:
		return 1
	case logic.StateStuckOpen:
		return 2
	}
	return 0
}
