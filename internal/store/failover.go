package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"slotbot/internal/models"
)

const failoverRetryInterval = time.Minute

// FailoverStore routes operations to a primary backend and falls back to a
// secondary when the primary errors. After a failure the primary is retried
// at most once per retry interval.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown        atomic.Bool
	mu            sync.Mutex
	lastCheck     time.Time
	retryInterval time.Duration
}

// NewFailoverStore wraps primary and fallback backends.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		retryInterval: failoverRetryInterval,
	}
}

// shouldTryPrimary reports whether the next operation should go to the
// primary, flipping a recovery probe when the retry interval has elapsed.
func (f *FailoverStore) shouldTryPrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= f.retryInterval {
		f.lastCheck = time.Now()
		return true
	}
	return false
}

func (f *FailoverStore) markDown(op string, err error) {
	if f.isDown.CompareAndSwap(false, true) {
		f.logger.Warn().Err(err).Str("op", op).Msg("primary store down, using fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverStore) markUp() {
	if f.isDown.CompareAndSwap(true, false) {
		f.logger.Info().Msg("primary store recovered")
	}
}

func (f *FailoverStore) Append(ctx context.Context, conversationID string, rec models.Booking) error {
	if f.shouldTryPrimary() {
		if err := f.primary.Append(ctx, conversationID, rec); err == nil {
			f.markUp()
			return nil
		} else {
			f.markDown("append", err)
		}
	}
	return f.fallback.Append(ctx, conversationID, rec)
}

func (f *FailoverStore) ReplaceAll(ctx context.Context, conversationID string, recs []models.Booking) error {
	if f.shouldTryPrimary() {
		if err := f.primary.ReplaceAll(ctx, conversationID, recs); err == nil {
			f.markUp()
			return nil
		} else {
			f.markDown("replace_all", err)
		}
	}
	return f.fallback.ReplaceAll(ctx, conversationID, recs)
}

func (f *FailoverStore) ReadAll(ctx context.Context, conversationID string) ([]models.Booking, error) {
	if f.shouldTryPrimary() {
		recs, err := f.primary.ReadAll(ctx, conversationID)
		if err == nil {
			f.markUp()
			return recs, nil
		}
		f.markDown("read_all", err)
	}
	return f.fallback.ReadAll(ctx, conversationID)
}

func (f *FailoverStore) RemoveAt(ctx context.Context, conversationID string, index int) (*models.Booking, error) {
	if f.shouldTryPrimary() {
		rec, err := f.primary.RemoveAt(ctx, conversationID, index)
		if err == nil {
			f.markUp()
			return rec, nil
		}
		f.markDown("remove_at", err)
	}
	return f.fallback.RemoveAt(ctx, conversationID, index)
}

func (f *FailoverStore) Conversations(ctx context.Context) ([]string, error) {
	if f.shouldTryPrimary() {
		ids, err := f.primary.Conversations(ctx)
		if err == nil {
			f.markUp()
			return ids, nil
		}
		f.markDown("conversations", err)
	}
	return f.fallback.Conversations(ctx)
}

func (f *FailoverStore) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err == nil {
		return nil
	}
	return f.fallback.Ping(ctx)
}

func (f *FailoverStore) Close() error {
	errPrimary := f.primary.Close()
	if err := f.fallback.Close(); err != nil {
		return err
	}
	return errPrimary
}
