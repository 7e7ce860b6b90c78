package bridge

import "github.com/arafat2020/feedwire/src/types"

// Bridge defines the interface for cross-instance event broadcasting.
// Implementations relay room events between multiple server instances.
type Bridge interface {
	// Publish sends a room event to all other instances via the bridge.
	Publish(room string, frame types.Frame) error

	// Start begins listening for events from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// BroadcastTarget is implemented by the Hub to receive events from the bridge.
type BroadcastTarget interface {
	BroadcastToLocal(room string, frame types.Frame)
}
