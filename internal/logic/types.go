// Package logic contains pure business logic for coin event detection.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the inferred position of the coin drawer mechanism.
type State string

const (
	StateClosed    State = "CLOSED"
	StateOpen      State = "OPEN"
	StateStuckOpen State = "STUCK_OPEN"
)

// EventType represents an event emitted by the FSM.
type EventType string

const (
	// EventCoin is emitted once per completed coin cycle, carrying the
	// post-increment coin count.
	EventCoin EventType = "COIN"
	// EventStuckOpen is emitted when the drawer has been open past the
	// stuck-after threshold.
	EventStuckOpen EventType = "STUCK_OPEN"
	// EventStillStuck is re-emitted every renotify interval while stuck.
	EventStillStuck EventType = "STILL_STUCK"
	// EventStuckCleared is emitted when a stuck drawer finally closes,
	// always after the COIN event of the same tick.
	EventStuckCleared EventType = "STUCK_CLEARED"
)

// Event represents a state transition or notice to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State // drawer state after the event
	Count     int   // coin count, meaningful only for EventCoin
}

// Input represents a single sample of the sensor.
type Input struct {
	Blocked bool // true = light path blocked, drawer open
	Time    time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Coins        int
	StuckOpen    int
	StillStuck   int
	StuckCleared int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
