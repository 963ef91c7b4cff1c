package interfaces

import "messenger/pkg/types"

// EventHandler consumes one push event. Handlers run on the dispatcher
// goroutine and must not block.
type EventHandler func(evt types.Event)

// Gateway is the persistent bidirectional channel to the messaging
// backend. One gateway exists per authenticated session; every Subscribe
// must be paired with an Unsubscribe on teardown so handlers are not
// duplicated across mount/unmount cycles.
type Gateway interface {
	// Subscribe registers a handler for a push event name and returns a
	// subscription id used to unsubscribe.
	Subscribe(event string, fn EventHandler) string

	// Unsubscribe removes a previously registered handler. Idempotent;
	// unknown ids are ignored.
	Unsubscribe(event, id string)

	// SendTyping emits a typing start/stop signal for a conversation.
	SendTyping(conversationID string, isTyping bool) error

	// Send queues an arbitrary outbound command on the connection.
	Send(command string, payload any) error

	// Close tears down the connection and stops event dispatch.
	Close() error
}
