package bot

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbot/internal/engine"
	"slotbot/internal/models"
	"slotbot/internal/store"
)

// Monday, 10 February 2025, noon.
var testNow = time.Date(2025, time.February, 10, 12, 0, 0, 0, time.Local)

func newTestDispatcher(t *testing.T, st store.Store) *Dispatcher {
	t.Helper()
	logger := zerolog.New(io.Discard)
	eng := engine.NewWithClock(st, nil, 0, &logger, func() time.Time { return testNow })
	return NewDispatcher(eng, "Room Booking Bot", &logger)
}

func TestHandleCommandRouting(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, store.NewMemoryStore())

	t.Run("NonCommandIgnored", func(t *testing.T) {
		assert.Nil(t, d.HandleCommand(ctx, "C1", "p1@100", "hello there"))
		assert.Nil(t, d.HandleCommand(ctx, "C1", "p1@100", ""))
		assert.Nil(t, d.HandleCommand(ctx, "C1", "p1@100", "/"))
	})

	t.Run("UnknownCommandIgnored", func(t *testing.T) {
		assert.Nil(t, d.HandleCommand(ctx, "C1", "p1@100", "/frobnicate now"))
	})

	t.Run("Ping", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/ping")
		require.NotNil(t, r)
		assert.Equal(t, "Pong.", r.Text)
	})

	t.Run("CaseInsensitiveKeyword", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/PING")
		require.NotNil(t, r)
		assert.Equal(t, "Pong.", r.Text)
	})

	t.Run("Help", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/help")
		require.NotNil(t, r)
		assert.Contains(t, r.Text, "Room Booking Bot")
		assert.Contains(t, r.Text, "[Book]")
		assert.Contains(t, r.Text, "Usage: /book DD/MM HH:MM-HH:MM")
		assert.Contains(t, r.Text, "Usage: /cancel <id>")
	})
}

func TestBookListCancelFlow(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, store.NewMemoryStore())

	r := d.HandleCommand(ctx, "C1", "p1@100", "/book 19/2 13:00-14:00")
	require.NotNil(t, r)
	assert.Equal(t, "Booking confirmed: 19/2 13:00-14:00", r.Text)

	r = d.HandleCommand(ctx, "C1", "p1@100", "/list")
	require.NotNil(t, r)
	assert.Equal(t, "Wednesday 19/2\n13:00-14:00 @p1 (id: 1)", r.Text)
	assert.Equal(t, []string{"p1@100"}, r.MentionedIDs)

	r = d.HandleCommand(ctx, "C1", "p2@200", "/cancel 1")
	require.NotNil(t, r)
	assert.Equal(t, "Only the participant who made a booking can cancel it.", r.Text)

	r = d.HandleCommand(ctx, "C1", "p1@100", "/cancel 1")
	require.NotNil(t, r)
	assert.Equal(t, "Booking removed: 19/2 13:00-14:00", r.Text)

	r = d.HandleCommand(ctx, "C1", "p1@100", "/list")
	require.NotNil(t, r)
	assert.Equal(t, "No bookings found.", r.Text)
}

func TestBookErrorReplies(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, store.NewMemoryStore())

	cases := []struct {
		name string
		text string
		want string
	}{
		{"Malformed", "/book tomorrow please", "Usage: /book DD/MM HH:MM-HH:MM\nExample: /book 19/2 13:00-14:00"},
		{"NoArgs", "/book", "Usage: /book DD/MM HH:MM-HH:MM\nExample: /book 19/2 13:00-14:00"},
		{"InvalidMonth", "/book 31/13 10:00-11:00", "Invalid month: must be between 1 and 12."},
		{"InvalidDay", "/book 32/1 10:00-11:00", "Invalid day: must be between 1 and 31."},
		{"InvalidHour", "/book 19/2 24:00-25:00", "Invalid hour: must be between 0 and 23."},
		{"InvalidMinute", "/book 19/2 10:60-11:00", "Invalid minute: must be between 0 and 59."},
		{"EndBeforeStart", "/book 19/2 14:00-13:00", "End time must be after start time."},
		{"TooLong", "/book 19/2 13:00-16:01", "Bookings are limited to 3 hours."},
		{"Past", "/book 9/2 10:00-11:00", "That slot is in the past."},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			r := d.HandleCommand(ctx, "C1", "p1@100", tt.text)
			require.NotNil(t, r)
			assert.Equal(t, tt.want, r.Text)
		})
	}

	t.Run("ConfiguredLimitInMessage", func(t *testing.T) {
		logger := zerolog.New(io.Discard)
		clock := func() time.Time { return testNow }

		eng := engine.NewWithClock(store.NewMemoryStore(), nil, 90*time.Minute, &logger, clock)
		d := NewDispatcher(eng, "Room Booking Bot", &logger)
		r := d.HandleCommand(ctx, "C1", "p1@100", "/book 19/2 10:00-11:31")
		require.NotNil(t, r)
		assert.Equal(t, "Bookings are limited to 90 minutes.", r.Text)

		eng = engine.NewWithClock(store.NewMemoryStore(), nil, time.Hour, &logger, clock)
		d = NewDispatcher(eng, "Room Booking Bot", &logger)
		r = d.HandleCommand(ctx, "C1", "p1@100", "/book 19/2 10:00-11:01")
		require.NotNil(t, r)
		assert.Equal(t, "Bookings are limited to 1 hour.", r.Text)
	})

	t.Run("Conflict", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/book 19/2 13:00-14:00")
		require.NotNil(t, r)
		require.Equal(t, "Booking confirmed: 19/2 13:00-14:00", r.Text)

		r = d.HandleCommand(ctx, "C1", "p2@200", "/book 19/2 13:30-14:30")
		require.NotNil(t, r)
		assert.Equal(t, "That slot overlaps an existing booking: 19/2 13:00-14:00. Check /list.", r.Text)
	})
}

func TestCancelErrorReplies(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, store.NewMemoryStore())

	t.Run("NonNumericId", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/cancel abc")
		require.NotNil(t, r)
		assert.Equal(t, "Usage: /cancel <id>\nCheck ids with /list.", r.Text)
	})

	t.Run("ZeroId", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/cancel 0")
		require.NotNil(t, r)
		assert.Equal(t, "Usage: /cancel <id>\nCheck ids with /list.", r.Text)
	})

	t.Run("UnknownId", func(t *testing.T) {
		r := d.HandleCommand(ctx, "C1", "p1@100", "/cancel 5")
		require.NotNil(t, r)
		assert.Equal(t, "Booking id 5 not found.", r.Text)
	})
}

// failingStore errors on every operation to exercise the generic failure path.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Append(context.Context, string, models.Booking) error { return errStoreDown }
func (failingStore) ReplaceAll(context.Context, string, []models.Booking) error {
	return errStoreDown
}
func (failingStore) ReadAll(context.Context, string) ([]models.Booking, error) {
	return nil, errStoreDown
}
func (failingStore) RemoveAt(context.Context, string, int) (*models.Booking, error) {
	return nil, errStoreDown
}
func (failingStore) Conversations(context.Context) ([]string, error) { return nil, errStoreDown }
func (failingStore) Ping(context.Context) error                      { return errStoreDown }
func (failingStore) Close() error                                    { return nil }

func TestHandlerFailureProducesGenericReply(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t, failingStore{})

	r := d.HandleCommand(ctx, "C1", "p1@100", "/list")
	require.NotNil(t, r)
	assert.Equal(t, genericFailureReply, r.Text)

	r = d.HandleCommand(ctx, "C1", "p1@100", "/book 19/2 13:00-14:00")
	require.NotNil(t, r)
	assert.Equal(t, genericFailureReply, r.Text)
}
