// Package google mirrors bookings into a shared Google Calendar.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"slotbot/internal/events"
	"slotbot/internal/schedule"
)

const mirrorKeyProperty = "slotbot_key"

// CalendarMirror subscribes to booking events and keeps a shared Google
// Calendar in sync. All calls are best effort: a calendar outage never
// fails or delays a command.
type CalendarMirror struct {
	service    *calendar.Service
	calendarID string
	logger     *zerolog.Logger
}

// NewCalendarMirror authenticates with a previously stored OAuth token
// (token-<account>.json, obtained out of band) and targets calendarID.
func NewCalendarMirror(ctx context.Context, clientID, clientSecret, account, calendarID string, logger *zerolog.Logger) (*CalendarMirror, error) {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     googleauth.Endpoint,
	}

	token, err := tokenFromFile(fmt.Sprintf("token-%s.json", account))
	if err != nil {
		return nil, fmt.Errorf("load token for account %s: %w", account, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &CalendarMirror{service: service, calendarID: calendarID, logger: logger}, nil
}

// Subscribe wires the mirror to booking lifecycle events. Pruned bookings
// are already over and stay on the calendar as history.
func (m *CalendarMirror) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TypeBookingCreated, m.onCreated)
	bus.Subscribe(events.TypeBookingCanceled, m.onCanceled)
}

func (m *CalendarMirror) onCreated(ev events.Event) error {
	p, err := schedule.Parse(ev.Booking.BookingText, time.Now())
	if err != nil {
		m.logger.Error().Err(err).Str("booking", ev.Booking.BookingText).Msg("calendar mirror: unparsable booking")
		return err
	}

	event := &calendar.Event{
		Summary:     fmt.Sprintf("Room booking: %s", ev.Booking.BookerLocalPart()),
		Description: fmt.Sprintf("Booked via %s in conversation %s", ev.Booking.BookerID, ev.ConversationID),
		Start:       &calendar.EventDateTime{DateTime: p.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: p.End.Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{mirrorKeyProperty: mirrorKey(ev)},
		},
	}

	if _, err := m.service.Events.Insert(m.calendarID, event).Do(); err != nil {
		m.logger.Error().Err(err).Str("booking", ev.Booking.BookingText).Msg("calendar mirror: insert failed")
		return err
	}
	m.logger.Debug().Str("booking", ev.Booking.BookingText).Msg("calendar mirror: event created")
	return nil
}

func (m *CalendarMirror) onCanceled(ev events.Event) error {
	list, err := m.service.Events.List(m.calendarID).
		PrivateExtendedProperty(mirrorKeyProperty + "=" + mirrorKey(ev)).
		ShowDeleted(false).
		Do()
	if err != nil {
		m.logger.Error().Err(err).Str("booking", ev.Booking.BookingText).Msg("calendar mirror: lookup failed")
		return err
	}

	for _, item := range list.Items {
		if err := m.service.Events.Delete(m.calendarID, item.Id).Do(); err != nil {
			m.logger.Error().Err(err).Str("event_id", item.Id).Msg("calendar mirror: delete failed")
			return err
		}
	}
	return nil
}

// mirrorKey identifies the calendar event belonging to one booking record.
func mirrorKey(ev events.Event) string {
	return fmt.Sprintf("%s|%s|%s|%d",
		ev.ConversationID,
		ev.Booking.BookingText,
		ev.Booking.BookerID,
		ev.Booking.CreatedAt.Unix(),
	)
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}
