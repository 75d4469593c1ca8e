// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the coin drawer sensor state.
type Reader interface {
	// Read returns whether the LDR light path is blocked (drawer open).
	// The pin is pulled up and driven low by the transistor while light
	// reaches the LDR: raw high = blocked.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin number for the LDR sensor input.
const DefaultPin = 17
