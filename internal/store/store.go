// Package store persists per-conversation booking lists as keyed documents.
package store

import (
	"context"
	"errors"
	"fmt"

	"slotbot/internal/models"
)

// ErrMalformedRecord is returned when a persisted entry fails schema
// validation on load.
var ErrMalformedRecord = errors.New("malformed booking record")

// Store is conversation-scoped CRUD over an ordered list of bookings,
// backed by a single keyed document per conversation. Writes are whole-
// document, last-writer-wins; serialization is the caller's concern.
type Store interface {
	// Append adds one record to the end of the conversation's list.
	Append(ctx context.Context, conversationID string, rec models.Booking) error

	// ReplaceAll overwrites the conversation's list.
	ReplaceAll(ctx context.Context, conversationID string, recs []models.Booking) error

	// ReadAll returns the conversation's list in storage order, empty for
	// unknown conversations. Malformed persisted entries are rejected.
	ReadAll(ctx context.Context, conversationID string) ([]models.Booking, error)

	// RemoveAt removes the record at a zero-based storage index and returns
	// it, or nil if the index is out of range. Legacy positional removal;
	// cancellation goes through ReplaceAll to avoid index races.
	RemoveAt(ctx context.Context, conversationID string, index int) (*models.Booking, error)

	// Conversations lists every conversation with a stored document.
	Conversations(ctx context.Context) ([]string, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error

	Close() error
}

func validateRecords(recs []models.Booking) error {
	for i := range recs {
		if !recs[i].Valid() {
			return fmt.Errorf("%w at index %d", ErrMalformedRecord, i)
		}
	}
	return nil
}
