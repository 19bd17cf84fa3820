// Package queue defines the message payloads exchanged over the
// broker and the background consumer that records them.
package queue

import "encoding/json"

// InventoryQueueName is the durable queue every domain event is
// published to, mirroring the websocket fan-out for consumers that are
// not connected clients (audit log, analytics).
const InventoryQueueName = "inventory.events"

// InventoryEvent wraps a domain event for the broker.  Data carries
// the same payload the websocket hub broadcasts.
type InventoryEvent struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}
