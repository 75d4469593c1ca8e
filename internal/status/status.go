// Package status provides a thread-safe status tracker for the coin-sensor daemon.
// It is read by HTTP handlers and used to build system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/coin-sensor/internal/logic"
)

// NetworkInfo contains network state reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	StuckAfterMs int64
	RenotifyMs   int64
	HeartbeatMs  int64
	Broker       string
	HTTPPort     string
	WSBroker     string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	CoinCount     int
	OpenFor       time.Duration // how long the drawer has been open, 0 while closed
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateClosed,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the drawer state, coin count, open duration, and event counts.
// Called from the run loop on every tick.
func (t *Tracker) Update(state logic.State, coins int, openFor time.Duration, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.CoinCount = coins
	t.snap.OpenFor = openFor
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
