package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbot/internal/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	b1 := models.Booking{BookingText: "19/2 13:00-14:00", BookerID: "p1@100", CreatedAt: now}
	b2 := models.Booking{BookingText: "20/2 9:00-10:00", BookerID: "p2@200", CreatedAt: now}

	t.Run("AppendAndReadAll", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Append(ctx, "C1", b1))
		require.NoError(t, s.Append(ctx, "C1", b2))

		recs, err := s.ReadAll(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, []models.Booking{b1, b2}, recs, "storage order is append order")
	})

	t.Run("UnknownConversationIsEmpty", func(t *testing.T) {
		s := NewMemoryStore()
		recs, err := s.ReadAll(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("ReplaceAll", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Append(ctx, "C1", b1))
		require.NoError(t, s.ReplaceAll(ctx, "C1", []models.Booking{b2}))

		recs, err := s.ReadAll(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, []models.Booking{b2}, recs)
	})

	t.Run("RemoveAt", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Append(ctx, "C1", b1))
		require.NoError(t, s.Append(ctx, "C1", b2))

		removed, err := s.RemoveAt(ctx, "C1", 0)
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.True(t, b1.Equal(removed))

		removed, err = s.RemoveAt(ctx, "C1", 5)
		require.NoError(t, err)
		assert.Nil(t, removed, "out of range is not an error")

		recs, err := s.ReadAll(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, []models.Booking{b2}, recs)
	})

	t.Run("Conversations", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Append(ctx, "C1", b1))
		require.NoError(t, s.Append(ctx, "C2", b2))

		ids, err := s.Conversations(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"C1", "C2"}, ids)
	})

	t.Run("MalformedRecordRejectedOnRead", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.ReplaceAll(ctx, "C1", []models.Booking{{BookerID: "p1@100"}}))

		_, err := s.ReadAll(ctx, "C1")
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("ReadAllReturnsCopy", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Append(ctx, "C1", b1))

		recs, err := s.ReadAll(ctx, "C1")
		require.NoError(t, err)
		recs[0].BookingText = "mutated"

		again, err := s.ReadAll(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, "19/2 13:00-14:00", again[0].BookingText)
	})
}
