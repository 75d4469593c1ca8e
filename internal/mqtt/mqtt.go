// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/coin-sensor/internal/logic"
)

// TopicCount is the MQTT topic for coin count events.
const TopicCount = "pooltable/coin/count"

// TopicNotices is the MQTT topic for stuck-drawer notices.
const TopicNotices = "pooltable/coin/notices"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "pooltable/coin/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a coin event to the broker. COIN events go to the
	// count topic, stuck notices to the notices topic. Events are sent in
	// call order. Returns error if publishing fails (should not crash the
	// process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Notice message strings. Downstream consumers match on these exact values.
const (
	MsgOpenTooLong   = "open too long"
	MsgStillStuck    = "still stuck"
	MsgFinallyClosed = "finally closed"
)

// MessageForEvent returns the notice string for a stuck event type,
// or "" for types that carry no message.
func MessageForEvent(t logic.EventType) string {
	switch t {
	case logic.EventStuckOpen:
		return MsgOpenTooLong
	case logic.EventStillStuck:
		return MsgStillStuck
	case logic.EventStuckCleared:
		return MsgFinallyClosed
	}
	return ""
}

// TopicForEvent returns the topic an event type is published to.
func TopicForEvent(t logic.EventType) string {
	if t == logic.EventCoin {
		return TopicCount
	}
	return TopicNotices
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Coin CoinPayload `json:"coin"`
}

// CoinPayload contains the coin event details.
type CoinPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Count     int    `json:"count,omitempty"`   // COIN events only
	Message   string `json:"message,omitempty"` // notices only
}

// FormatPayload creates the JSON payload for a coin event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Coin: CoinPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
			Count:     event.Count,
			Message:   MessageForEvent(event.Type),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
