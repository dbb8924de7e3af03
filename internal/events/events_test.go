package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"slotbot/internal/models"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	created := make(chan Event, 2)
	canceled := make(chan Event, 1)

	bus.Subscribe(TypeBookingCreated, func(ev Event) error {
		created <- ev
		return nil
	})
	bus.Subscribe(TypeBookingCreated, func(ev Event) error {
		created <- ev
		return nil
	})
	bus.Subscribe(TypeBookingCanceled, func(ev Event) error {
		canceled <- ev
		return nil
	})

	bus.Publish(Event{
		Type:           TypeBookingCreated,
		ConversationID: "C1",
		Booking:        models.Booking{BookingText: "19/2 13:00-14:00", BookerID: "p1@100", CreatedAt: time.Now()},
	})

	for i := 0; i < 2; i++ {
		select {
		case ev := <-created:
			assert.Equal(t, "C1", ev.ConversationID)
			assert.False(t, ev.CreatedAt.IsZero(), "publish stamps CreatedAt")
		case <-time.After(time.Second):
			t.Fatal("created event never delivered")
		}
	}

	select {
	case <-canceled:
		t.Fatal("canceled subscriber received a created event")
	default:
	}
}

func TestPublishDoesNotBlockOnSlowHandler(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	done := make(chan struct{})
	bus.Subscribe(TypeBookingCreated, func(Event) error {
		<-release
		close(done)
		return nil
	})

	// The handler is still blocked when Publish returns.
	bus.Publish(Event{Type: TypeBookingCreated, ConversationID: "C1"})

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}
