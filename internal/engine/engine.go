// Package engine implements the booking rules: argument validation,
// overlap detection, expiry pruning, list rendering and cancellation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slotbot/internal/events"
	"slotbot/internal/metrics"
	"slotbot/internal/models"
	"slotbot/internal/schedule"
	"slotbot/internal/store"
)

// DefaultMaxDuration caps a single booking when no limit is configured.
const DefaultMaxDuration = 180 * time.Minute

// Validation errors surfaced to the dispatcher with specific user messages.
var (
	ErrMalformedArguments = errors.New("malformed booking arguments")
	ErrInvalidMonth       = errors.New("month out of range")
	ErrInvalidDay         = errors.New("day out of range")
	ErrInvalidHour        = errors.New("hour out of range")
	ErrInvalidMinute      = errors.New("minute out of range")
	ErrEndBeforeStart     = errors.New("end time not after start time")
	ErrDurationTooLong    = errors.New("booking duration over the limit")
	ErrPastBooking        = errors.New("booking starts in the past")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNotOwner           = errors.New("booking belongs to another participant")
)

// ConflictError reports a double-booking, naming the conflicting record.
type ConflictError struct {
	Existing models.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with existing booking %s", e.Existing.BookingText)
}

// Grammar for /book arguments: D[D][-/]M[M] HH:MM-HH:MM.
var bookArgsRE = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})\s+(\d{1,2}:\d{2})-(\d{1,2}:\d{2})$`)

// Rendered is a formatted booking list plus mention metadata for delivery.
type Rendered struct {
	Text         string
	MentionedIDs []string
	Count        int
}

// Engine owns no booking state between calls; every operation re-reads the
// store. A per-conversation mutex serializes each read-modify-write sequence
// so concurrent commands for one conversation cannot lose updates.
type Engine struct {
	store       store.Store
	bus         *events.Bus
	logger      *zerolog.Logger
	maxDuration time.Duration
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine using the wall clock.
func New(st store.Store, bus *events.Bus, maxDuration time.Duration, logger *zerolog.Logger) *Engine {
	return NewWithClock(st, bus, maxDuration, logger, time.Now)
}

// NewWithClock creates an engine with an injected clock.
func NewWithClock(st store.Store, bus *events.Bus, maxDuration time.Duration, logger *zerolog.Logger, now func() time.Time) *Engine {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Engine{
		store:       st,
		bus:         bus,
		logger:      logger,
		maxDuration: maxDuration,
		now:         now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// MaxDuration returns the booking length cap.
func (e *Engine) MaxDuration() time.Duration {
	return e.maxDuration
}

// Book validates rawArgs against the booking rules and, on success, appends
// a record for requesterID and returns the canonical booking text.
func (e *Engine) Book(ctx context.Context, conversationID, rawArgs, requesterID string) (string, error) {
	m := bookArgsRE.FindStringSubmatch(strings.TrimSpace(rawArgs))
	if m == nil {
		return "", ErrMalformedArguments
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	startHour, startMin := clockParts(m[3])
	endHour, endMin := clockParts(m[4])

	switch {
	case month < 1 || month > 12:
		return "", ErrInvalidMonth
	case day < 1 || day > 31:
		return "", ErrInvalidDay
	case startHour > 23 || endHour > 23:
		return "", ErrInvalidHour
	case startMin > 59 || endMin > 59:
		return "", ErrInvalidMinute
	}

	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin
	if endMinutes <= startMinutes {
		return "", ErrEndBeforeStart
	}
	if time.Duration(endMinutes-startMinutes)*time.Minute > e.maxDuration {
		return "", ErrDurationTooLong
	}

	text := schedule.Canonical(m[1], m[2], m[3], m[4])
	now := e.now()
	candidate, err := schedule.Parse(text, now)
	if err != nil {
		return "", fmt.Errorf("parse candidate %q: %w", text, err)
	}
	if candidate.Start.Before(now) {
		return "", ErrPastBooking
	}

	rec := models.Booking{BookingText: text, BookerID: requesterID, CreatedAt: now}
	if err := e.appendLocked(ctx, conversationID, candidate, rec, now); err != nil {
		return "", err
	}

	metrics.IncBookingCreated()
	e.publish(events.TypeBookingCreated, conversationID, rec)
	return text, nil
}

// appendLocked checks rec against the stored list and appends it, all under
// the conversation lock.
func (e *Engine) appendLocked(ctx context.Context, conversationID string, candidate schedule.Parsed, rec models.Booking, now time.Time) error {
	unlock := e.lockConversation(conversationID)
	defer unlock()

	recs, err := e.store.ReadAll(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("read bookings: %w", err)
	}

	// Overlap is checked only against currently future bookings, with
	// half-open [start,end) intervals: a shared boundary is not a conflict.
	for i := range recs {
		existing, err := schedule.Parse(recs[i].BookingText, now)
		if err != nil {
			return fmt.Errorf("parse stored booking %q: %w", recs[i].BookingText, err)
		}
		if !existing.End.After(now) {
			continue
		}
		if candidate.Start.Before(existing.End) && candidate.End.After(existing.Start) {
			return &ConflictError{Existing: recs[i]}
		}
	}

	if err := e.store.Append(ctx, conversationID, rec); err != nil {
		return fmt.Errorf("append booking: %w", err)
	}
	return nil
}

// List renders the conversation's future bookings, pruning expired records
// as a side effect. Display ids are assigned fresh on every render and are
// only valid until the next write.
func (e *Engine) List(ctx context.Context, conversationID string) (Rendered, error) {
	entries, hadAny, expired, err := e.collectLocked(ctx, conversationID)
	if err != nil {
		return Rendered{}, err
	}
	e.publishPruned(conversationID, expired)

	if len(entries) == 0 {
		if !hadAny {
			return Rendered{Text: "No bookings found."}, nil
		}
		return Rendered{Text: "No upcoming bookings found."}, nil
	}

	var sb strings.Builder
	var mentions []string
	lastGroup := ""
	for i := range entries {
		en := &entries[i]
		group := en.Parsed.DayName + " " + en.Parsed.DateDisplay
		if group != lastGroup {
			if lastGroup != "" {
				sb.WriteByte('\n')
			}
			sb.WriteString(group)
			sb.WriteByte('\n')
			lastGroup = group
		}

		sb.WriteString(en.Parsed.TimeRange)
		if local := en.Rec.BookerLocalPart(); local != "" {
			sb.WriteString(" @")
			sb.WriteString(local)
			mentions = append(mentions, en.Rec.BookerID)
		}
		fmt.Fprintf(&sb, " (id: %d)\n", i+1)
	}

	return Rendered{
		Text:         strings.TrimSpace(sb.String()),
		MentionedIDs: mentions,
		Count:        len(entries),
	}, nil
}

// Cancel removes the booking at displayIndex in the current future-sorted
// view. Only the participant who created a booking may cancel it.
func (e *Engine) Cancel(ctx context.Context, conversationID string, displayIndex int, requesterID string) (string, error) {
	target, expired, err := e.cancelLocked(ctx, conversationID, displayIndex, requesterID)
	e.publishPruned(conversationID, expired)
	if err != nil {
		return "", err
	}

	metrics.IncBookingCanceled()
	e.publish(events.TypeBookingCanceled, conversationID, target)
	return target.BookingText, nil
}

// cancelLocked resolves displayIndex and rewrites the list under the
// conversation lock. Expired records retired along the way are returned for
// the caller to report.
func (e *Engine) cancelLocked(ctx context.Context, conversationID string, displayIndex int, requesterID string) (models.Booking, []models.Booking, error) {
	unlock := e.lockConversation(conversationID)
	defer unlock()

	entries, _, expired, err := e.futureEntries(ctx, conversationID)
	if err != nil {
		return models.Booking{}, nil, err
	}
	if displayIndex < 1 || displayIndex > len(entries) {
		return models.Booking{}, expired, ErrBookingNotFound
	}

	target := entries[displayIndex-1].Rec
	if target.BookerID != requesterID {
		return models.Booking{}, expired, ErrNotOwner
	}

	recs, err := e.store.ReadAll(ctx, conversationID)
	if err != nil {
		return models.Booking{}, expired, fmt.Errorf("read bookings: %w", err)
	}

	removed := false
	keep := make([]models.Booking, 0, len(recs))
	for i := range recs {
		if !removed && recs[i].Equal(&target) {
			removed = true
			continue
		}
		keep = append(keep, recs[i])
	}
	if !removed {
		return models.Booking{}, expired, ErrBookingNotFound
	}
	if err := e.store.ReplaceAll(ctx, conversationID, keep); err != nil {
		return models.Booking{}, expired, fmt.Errorf("replace bookings: %w", err)
	}
	return target, expired, nil
}

// Prune retires expired bookings for one conversation and returns how many
// were removed. The janitor calls this across all conversations.
func (e *Engine) Prune(ctx context.Context, conversationID string) (int, error) {
	_, _, expired, err := e.collectLocked(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	e.publishPruned(conversationID, expired)
	return len(expired), nil
}

type entry struct {
	Rec    models.Booking
	Parsed schedule.Parsed
}

// collectLocked runs futureEntries under the conversation lock.
func (e *Engine) collectLocked(ctx context.Context, conversationID string) ([]entry, bool, []models.Booking, error) {
	unlock := e.lockConversation(conversationID)
	defer unlock()
	return e.futureEntries(ctx, conversationID)
}

// futureEntries reads the conversation's records, retires the expired ones
// (persisting the future subset back when anything was removed) and returns
// the future entries sorted by start instant, source order preserved on
// ties, plus the retired records. Callers must hold the conversation lock
// and report the retired records once the lock is released.
func (e *Engine) futureEntries(ctx context.Context, conversationID string) ([]entry, bool, []models.Booking, error) {
	recs, err := e.store.ReadAll(ctx, conversationID)
	if err != nil {
		return nil, false, nil, fmt.Errorf("read bookings: %w", err)
	}

	now := e.now()
	var future []entry
	var expired []models.Booking
	for i := range recs {
		p, err := schedule.Parse(recs[i].BookingText, now)
		if err != nil {
			return nil, false, nil, fmt.Errorf("parse stored booking %q: %w", recs[i].BookingText, err)
		}
		if p.End.After(now) {
			future = append(future, entry{Rec: recs[i], Parsed: p})
		} else {
			expired = append(expired, recs[i])
		}
	}

	if len(expired) > 0 {
		keep := make([]models.Booking, 0, len(future))
		for i := range future {
			keep = append(keep, future[i].Rec)
		}
		if err := e.store.ReplaceAll(ctx, conversationID, keep); err != nil {
			return nil, false, nil, fmt.Errorf("prune bookings: %w", err)
		}
		e.logger.Debug().
			Str("conversation_id", conversationID).
			Int("pruned", len(expired)).
			Msg("expired bookings retired")
	}

	sort.SliceStable(future, func(i, j int) bool {
		return future[i].Parsed.Start.Before(future[j].Parsed.Start)
	})
	return future, len(recs) > 0, expired, nil
}

func (e *Engine) lockConversation(conversationID string) func() {
	e.mu.Lock()
	l, ok := e.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[conversationID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// publishPruned reports retired records. Called with the conversation lock
// released so subscribers can never hold up a command.
func (e *Engine) publishPruned(conversationID string, expired []models.Booking) {
	if len(expired) == 0 {
		return
	}
	metrics.AddBookingsPruned(len(expired))
	for i := range expired {
		e.publish(events.TypeBookingPruned, conversationID, expired[i])
	}
}

func (e *Engine) publish(eventType, conversationID string, rec models.Booking) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{
		Type:           eventType,
		ConversationID: conversationID,
		Booking:        rec,
		CreatedAt:      e.now(),
	})
}

// clockParts splits "H:MM"/"HH:MM"; the grammar guarantees the shape.
func clockParts(s string) (hour, minute int) {
	h, m, _ := strings.Cut(s, ":")
	hour, _ = strconv.Atoi(h)
	minute, _ = strconv.Atoi(m)
	return hour, minute
}
