package event_test

import (
	"testing"
	"time"

	"github.com/fabricahq/fabrica/internal/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_Dispatch_DeliversToChannelHandlers(t *testing.T) {
	t.Parallel()

	bus := event.New()
	channel := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(channel, event.NewInsightEvent)

	id := uuid.New()
	bus.Dispatch(event.NewInsightEvent, id)

	select {
	case message := <-channel:
		assert.Equal(t, event.NewInsightEvent, message.Event)
		assert.Equal(t, id, message.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func Test_Dispatch_OnlyDeliversSubscribedEvents(t *testing.T) {
	t.Parallel()

	bus := event.New()
	channel := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(channel, event.NewScriptEvent)

	bus.Dispatch(event.NewInsightEvent, uuid.New())

	select {
	case message := <-channel:
		t.Fatalf("received unexpected event %s", message.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_Dispatch_RejectsNonUUIDPayloads(t *testing.T) {
	t.Parallel()

	bus := event.New()
	channel := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(channel, event.NewPillEvent)

	// Payload validation drops the dispatch before it reaches handlers.
	bus.Dispatch(event.NewPillEvent, "not-a-uuid")

	select {
	case message := <-channel:
		t.Fatalf("received event %s with invalid payload", message.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_Dispatch_CallsHandlerFunctions(t *testing.T) {
	t.Parallel()

	bus := event.New()

	received := make(chan uuid.UUID, 1)
	bus.RegisterHandlerFunction(event.InsightUpdateEvent, func(_ event.Event, payload event.Payload) {
		received <- payload.(uuid.UUID)
	})

	id := uuid.New()
	bus.Dispatch(event.InsightUpdateEvent, id)

	select {
	case got := <-received:
		assert.Equal(t, id, got)
	case <-time.After(time.Second):
		t.Fatal("handler function was not called")
	}
}
