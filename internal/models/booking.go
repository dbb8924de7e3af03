package models

import (
	"strings"
	"time"
)

// Booking is one persisted reservation inside a conversation's list.
// BookingText ("D/M HH:MM-HH:MM") is the durable representation; all
// structured time data is derived from it on read, never stored.
type Booking struct {
	BookingText string    `json:"booking_text"`
	BookerID    string    `json:"booker_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Valid reports whether a persisted entry is structurally usable.
// Stored documents carry no schema, so entries are checked on load
// instead of silently producing invalid dates downstream.
func (b *Booking) Valid() bool {
	return b.BookingText != "" && b.BookerID != "" && !b.CreatedAt.IsZero()
}

// Equal matches records by full structural identity. Display indices are
// not stable, so cancellation locates the exact record this way.
func (b *Booking) Equal(other *Booking) bool {
	return b.BookingText == other.BookingText &&
		b.BookerID == other.BookerID &&
		b.CreatedAt.Equal(other.CreatedAt)
}

// BookerLocalPart returns the booker identifier up to the first "@",
// the form shown in rendered lists.
func (b *Booking) BookerLocalPart() string {
	if i := strings.IndexByte(b.BookerID, '@'); i >= 0 {
		return b.BookerID[:i]
	}
	return b.BookerID
}
