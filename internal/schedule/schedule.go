// Package schedule turns canonical booking texts ("D/M HH:MM-HH:MM")
// into structured, sortable time intervals plus display fields.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedBookingText is returned when a booking text does not match
// D{1,2}[-/]M{1,2} H{1,2}:MM-H{1,2}:MM.
var ErrMalformedBookingText = errors.New("malformed booking text")

// Parsed is the in-memory view derived from a stored booking text.
type Parsed struct {
	Original    string
	Start       time.Time
	End         time.Time
	DayName     string
	DateDisplay string // "D/M", never zero-padded
	TimeRange   string // "HH:MM-HH:MM" as stored
}

// Parse derives the structured form of text using now's calendar year and
// location. The year is not stored: a booking read back across a New Year
// boundary silently shifts to the new year. Known limitation, kept as-is.
// Out-of-range days (e.g. 31/2) normalize forward the way the calendar does.
func Parse(text string, now time.Time) (Parsed, error) {
	datePart, timePart, ok := strings.Cut(text, " ")
	if !ok {
		return Parsed{}, ErrMalformedBookingText
	}

	day, month, err := splitDate(datePart)
	if err != nil {
		return Parsed{}, err
	}

	startStr, endStr, ok := strings.Cut(timePart, "-")
	if !ok {
		return Parsed{}, ErrMalformedBookingText
	}
	startHour, startMin, err := splitClock(startStr)
	if err != nil {
		return Parsed{}, err
	}
	endHour, endMin, err := splitClock(endStr)
	if err != nil {
		return Parsed{}, err
	}

	start := time.Date(now.Year(), time.Month(month), day, startHour, startMin, 0, 0, now.Location())
	end := time.Date(now.Year(), time.Month(month), day, endHour, endMin, 0, 0, now.Location())

	return Parsed{
		Original:    text,
		Start:       start,
		End:         end,
		DayName:     start.Weekday().String(),
		DateDisplay: fmt.Sprintf("%d/%d", day, month),
		TimeRange:   timePart,
	}, nil
}

// Canonical builds the stored booking text from the raw command captures.
// Only the date separator is normalized; digit padding stays as typed.
func Canonical(day, month, startTime, endTime string) string {
	return fmt.Sprintf("%s/%s %s-%s", day, month, startTime, endTime)
}

func splitDate(s string) (day, month int, err error) {
	i := strings.IndexAny(s, "-/")
	if i <= 0 || i == len(s)-1 {
		return 0, 0, ErrMalformedBookingText
	}
	day, err = parseDigits(s[:i], 2)
	if err != nil {
		return 0, 0, err
	}
	month, err = parseDigits(s[i+1:], 2)
	if err != nil {
		return 0, 0, err
	}
	return day, month, nil
}

func splitClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, ErrMalformedBookingText
	}
	hour, err = parseDigits(h, 2)
	if err != nil {
		return 0, 0, err
	}
	if len(m) != 2 {
		return 0, 0, ErrMalformedBookingText
	}
	minute, err = parseDigits(m, 2)
	if err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

func parseDigits(s string, maxLen int) (int, error) {
	if len(s) == 0 || len(s) > maxLen {
		return 0, ErrMalformedBookingText
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrMalformedBookingText
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrMalformedBookingText
	}
	return n, nil
}
