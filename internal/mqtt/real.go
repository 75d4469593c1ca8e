package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/coin-sensor/internal/logic"
)

// replayCapacity bounds the number of messages held while disconnected.
// At one coin every few minutes this covers hours of broker downtime.
const replayCapacity = 256

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down, messages are queued and replayed in order on reconnect; publishing
// offline is not an error.
type RealPublisher struct {
	client paho.Client

	mu    sync.Mutex
	queue *replayQueue
}

// NewRealPublisher creates a publisher connected to the given broker.
// The initial connection is retried with exponential backoff for up to
// 30 seconds; after that paho's auto-reconnect takes over.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{queue: newReplayQueue(replayCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("coin-sensor").
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("connection timeout")
		}
		return token.Error()
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a coin event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1 (at-least-once): a missed coin is money unaccounted for.
	return p.publish(TopicForEvent(event.Type), 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// publish sends a message, or queues it for replay if disconnected.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.queue.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.queue.len()
		p.mu.Unlock()
		log.Printf("mqtt: disconnected, queued message for %s (%d pending)", topic, n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// onConnect replays messages queued while disconnected, oldest first.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.queue.drain()
	p.mu.Unlock()

	if dropped > 0 {
		log.Printf("mqtt: reconnected, %d queued messages dropped to overflow", dropped)
	}
	if len(msgs) == 0 {
		return
	}

	log.Printf("mqtt: reconnected, replaying %d queued messages", len(msgs))
	for _, m := range msgs {
		token := client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay failed on %s: %v", m.topic, err)
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
