// Package events provides in-process pub/sub for booking lifecycle events.
package events

import (
	"sync"
	"time"

	"slotbot/internal/models"
)

// Event types published by the booking engine.
const (
	TypeBookingCreated  = "booking.created"
	TypeBookingCanceled = "booking.canceled"
	TypeBookingPruned   = "booking.pruned"
)

// Event represents a lightweight domain event.
type Event struct {
	Type           string
	ConversationID string
	Booking        models.Booking
	CreatedAt      time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Each handler runs on its
// own goroutine; a slow or failing subscriber never delays the publisher.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		go func() {
			_ = handler(event)
		}()
	}
}
