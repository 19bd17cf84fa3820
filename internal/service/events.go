package service

// Domain event types fanned out after a successful state change.
const (
	EventBikeCreated      = "bike:created"
	EventBikeUpdated      = "bike:updated"
	EventBikeCheckout     = "bike:checkout"
	EventWorkOrderCreated = "workorder:created"
	EventWorkOrderUpdated = "workorder:updated"
)

// Broadcaster receives domain events after the surrounding transaction
// has committed.  Implementations must be best-effort and must never
// fail the business operation; the websocket hub and the queue
// publisher both satisfy this.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// MultiBroadcaster fans one event out to several broadcasters.
type MultiBroadcaster []Broadcaster

// Broadcast delivers the event to each wrapped broadcaster in order.
func (m MultiBroadcaster) Broadcast(eventType string, data any) {
	for _, b := range m {
		b.Broadcast(eventType, data)
	}
}

// NopBroadcaster discards events; handy default for tests.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(string, any) {}
