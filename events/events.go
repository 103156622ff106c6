package events

// EventHandler defines a function type where its input type is the generic type.
type EventHandler[T any] func(T) error

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter.
	subscriptions []EventHandler[T]
}

// Publish emits the provided event by calling every EventHandler subscribed. If any EventHandler returns an error,
// publishing stops and the error is returned immediately.
func (e *EventEmitter[T]) Publish(event T) error {
	// Call every subscribed EventHandler
	for _, subscription := range e.subscriptions {
		err := subscription(event)
		if err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptions = append(e.subscriptions, callback)
}
