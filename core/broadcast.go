package core

// Broadcaster fans an event out to all current subscribers of a topic.
// Delivery is best-effort: subscribers joining after Publish returns miss
// the event, and no event is ever persisted. Events published on the same
// topic are delivered in Publish order.
type Broadcaster interface {
	Publish(topic string, event interface{}) error
}
