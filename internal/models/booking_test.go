package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingValid(t *testing.T) {
	now := time.Now()

	assert.True(t, (&Booking{BookingText: "19/2 13:00-14:00", BookerID: "p1@1", CreatedAt: now}).Valid())
	assert.False(t, (&Booking{BookerID: "p1@1", CreatedAt: now}).Valid())
	assert.False(t, (&Booking{BookingText: "19/2 13:00-14:00", CreatedAt: now}).Valid())
	assert.False(t, (&Booking{BookingText: "19/2 13:00-14:00", BookerID: "p1@1"}).Valid())
}

func TestBookingEqual(t *testing.T) {
	now := time.Now()
	a := Booking{BookingText: "19/2 13:00-14:00", BookerID: "p1@1", CreatedAt: now}
	b := a
	assert.True(t, a.Equal(&b))

	b.BookerID = "p2@2"
	assert.False(t, a.Equal(&b))

	c := a
	c.CreatedAt = now.Add(time.Second)
	assert.False(t, a.Equal(&c))
}

func TestBookerLocalPart(t *testing.T) {
	assert.Equal(t, "p1", (&Booking{BookerID: "p1@12345"}).BookerLocalPart())
	assert.Equal(t, "12345", (&Booking{BookerID: "12345"}).BookerLocalPart())
	assert.Equal(t, "", (&Booking{BookerID: "@12345"}).BookerLocalPart())
}
