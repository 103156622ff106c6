package events

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestEventPublishingAndSubscribing creates EventEmitter objects, subscribes EventHandler callbacks to them, and
// ensures that the events are received as intended.
func TestEventPublishingAndSubscribing(t *testing.T) {
	// Define some event types
	type TestEventA struct{}
	type TestEventB struct{}

	// Create event emitters for both events.
	eventAEmitter1 := EventEmitter[TestEventA]{}
	eventAEmitter2 := EventEmitter[TestEventA]{}
	eventBEmitter1 := EventEmitter[TestEventB]{}
	eventBEmitter2 := EventEmitter[TestEventB]{}

	// Create a dictionary to track event callback
	var eventAEmitter1PublishCount,
		eventAEmitter2PublishCount,
		eventBEmitter1PublishCount,
		eventBEmitter2PublishCount int

	// Create our callback methods for each event, where we update our count of published events.
	eventAEmitter1.Subscribe(func(event TestEventA) error {
		eventAEmitter1PublishCount++
		return nil
	})
	eventAEmitter2.Subscribe(func(event TestEventA) error {
		eventAEmitter2PublishCount++
		return nil
	})
	eventBEmitter1.Subscribe(func(event TestEventB) error {
		eventBEmitter1PublishCount++
		return nil
	})
	eventBEmitter2.Subscribe(func(event TestEventB) error {
		eventBEmitter2PublishCount++
		return nil
	})

	// Publish events a given amount of times.
	const (
		expectedEventAEmitter1PublishCount = 2
		expectedEventAEmitter2PublishCount = 5
		expectedEventBEmitter1PublishCount = 9
		expectedEventBEmitter2PublishCount = 13
	)
	for i := 0; i < expectedEventAEmitter1PublishCount; i++ {
		err := eventAEmitter1.Publish(TestEventA{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventAEmitter2PublishCount; i++ {
		err := eventAEmitter2.Publish(TestEventA{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventBEmitter1PublishCount; i++ {
		err := eventBEmitter1.Publish(TestEventB{})
		assert.NoError(t, err)
	}
	for i := 0; i < expectedEventBEmitter2PublishCount; i++ {
		err := eventBEmitter2.Publish(TestEventB{})
		assert.NoError(t, err)
	}

	// Assert we received the expected amount of callbacks.
	assert.EqualValues(t, expectedEventAEmitter1PublishCount, eventAEmitter1PublishCount)
	assert.EqualValues(t, expectedEventAEmitter2PublishCount, eventAEmitter2PublishCount)
	assert.EqualValues(t, expectedEventBEmitter1PublishCount, eventBEmitter1PublishCount)
	assert.EqualValues(t, expectedEventBEmitter2PublishCount, eventBEmitter2PublishCount)
}

// TestEventPublishingHandlerError ensures that a subscribed EventHandler returning an error halts publishing and
// that the error is propagated back to the publisher.
func TestEventPublishingHandlerError(t *testing.T) {
	// Define an event type and an emitter for it.
	type TestEvent struct{}
	emitter := EventEmitter[TestEvent]{}

	// Subscribe a failing handler, then one which should never be reached.
	handlerErr := errors.New("event handler failure")
	laterHandlerCalled := false
	emitter.Subscribe(func(event TestEvent) error {
		return handlerErr
	})
	emitter.Subscribe(func(event TestEvent) error {
		laterHandlerCalled = true
		return nil
	})

	// Publish an event and ensure the handler error propagated and halted publishing.
	err := emitter.Publish(TestEvent{})
	assert.ErrorIs(t, err, handlerErr)
	assert.False(t, laterHandlerCalled)
}
