// Package bot routes chat commands to booking engine operations and shapes
// the replies a transport delivers back to the conversation.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"slotbot/internal/engine"
	"slotbot/internal/metrics"
)

const genericFailureReply = "An error occurred while processing your command."

// Reply is an outbound message plus mention metadata. The transport is
// responsible for delivery and for resolving mentions into its own format.
type Reply struct {
	Text         string
	MentionedIDs []string
}

type request struct {
	conversationID string
	senderID       string
	args           string
}

type handlerFunc func(ctx context.Context, req *request) (*Reply, error)

type command struct {
	name        string
	description string
	usage       string
	handler     handlerFunc
}

// Dispatcher maps command keywords to handlers. The table is built once at
// construction and never mutated.
type Dispatcher struct {
	engine   *engine.Engine
	botName  string
	logger   *zerolog.Logger
	commands map[string]*command
	order    []string
}

// NewDispatcher builds the command table around eng. botName heads the
// /help output.
func NewDispatcher(eng *engine.Engine, botName string, logger *zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		engine:   eng,
		botName:  botName,
		logger:   logger,
		commands: make(map[string]*command),
	}
	for _, c := range []*command{
		{"ping", "Check bot connectivity", "/ping", d.handlePing},
		{"book", "Add a new booking", "/book DD/MM HH:MM-HH:MM", d.handleBook},
		{"list", "List all bookings", "/list", d.handleList},
		{"cancel", "Cancel a booking by id", "/cancel <id>", d.handleCancel},
		{"help", "Show this help message", "/help", d.handleHelp},
	} {
		d.commands[c.name] = c
		d.order = append(d.order, c.name)
	}
	return d
}

// HandleCommand is the single inbound entry point. Non-commands and unknown
// keywords produce no reply; handler failures produce one generic failure
// reply and never propagate.
func (d *Dispatcher) HandleCommand(ctx context.Context, conversationID, senderID, text string) *Reply {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := d.commands[strings.ToLower(fields[0])]
	if !ok {
		return nil
	}

	metrics.IncCommandHandled(cmd.name)
	req := &request{
		conversationID: conversationID,
		senderID:       senderID,
		args:           strings.Join(fields[1:], " "),
	}

	reply, err := d.dispatch(ctx, cmd, req)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("command", cmd.name).
			Str("conversation_id", conversationID).
			Msg("command failed")
		metrics.IncCommandFailure(cmd.name)
		return &Reply{Text: genericFailureReply}
	}
	return reply
}

// dispatch runs the handler, converting panics into errors so one bad
// command can never take the dispatcher down.
func (d *Dispatcher) dispatch(ctx context.Context, cmd *command, req *request) (reply *Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = fmt.Errorf("panic in %s handler: %v", cmd.name, r)
		}
	}()
	return cmd.handler(ctx, req)
}

func (d *Dispatcher) handlePing(_ context.Context, _ *request) (*Reply, error) {
	return &Reply{Text: "Pong."}, nil
}

func (d *Dispatcher) handleBook(ctx context.Context, req *request) (*Reply, error) {
	text, err := d.engine.Book(ctx, req.conversationID, req.args, req.senderID)
	if err != nil {
		if msg, ok := d.bookErrorMessage(err); ok {
			return &Reply{Text: msg}, nil
		}
		return nil, err
	}
	return &Reply{Text: "Booking confirmed: " + text}, nil
}

// bookErrorMessage maps validation errors to actionable user messages.
// Anything unrecognized is an internal failure for the caller to handle.
func (d *Dispatcher) bookErrorMessage(err error) (string, bool) {
	usage := d.commands["book"].usage
	var conflict *engine.ConflictError
	switch {
	case errors.Is(err, engine.ErrMalformedArguments):
		return fmt.Sprintf("Usage: %s\nExample: /book 19/2 13:00-14:00", usage), true
	case errors.Is(err, engine.ErrInvalidMonth):
		return "Invalid month: must be between 1 and 12.", true
	case errors.Is(err, engine.ErrInvalidDay):
		return "Invalid day: must be between 1 and 31.", true
	case errors.Is(err, engine.ErrInvalidHour):
		return "Invalid hour: must be between 0 and 23.", true
	case errors.Is(err, engine.ErrInvalidMinute):
		return "Invalid minute: must be between 0 and 59.", true
	case errors.Is(err, engine.ErrEndBeforeStart):
		return "End time must be after start time.", true
	case errors.Is(err, engine.ErrDurationTooLong):
		return fmt.Sprintf("Bookings are limited to %s.", limitText(d.engine.MaxDuration())), true
	case errors.Is(err, engine.ErrPastBooking):
		return "That slot is in the past.", true
	case errors.As(err, &conflict):
		return fmt.Sprintf("That slot overlaps an existing booking: %s. Check /list.", conflict.Existing.BookingText), true
	}
	return "", false
}

// limitText spells out the configured cap in whole hours when it divides
// evenly, minutes otherwise.
func limitText(max time.Duration) string {
	if max%time.Hour == 0 {
		hours := int(max / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", int(max/time.Minute))
}

func (d *Dispatcher) handleList(ctx context.Context, req *request) (*Reply, error) {
	rendered, err := d.engine.List(ctx, req.conversationID)
	if err != nil {
		return nil, err
	}
	return &Reply{Text: rendered.Text, MentionedIDs: rendered.MentionedIDs}, nil
}

func (d *Dispatcher) handleCancel(ctx context.Context, req *request) (*Reply, error) {
	usage := d.commands["cancel"].usage
	index, err := strconv.Atoi(strings.TrimSpace(req.args))
	if err != nil || index < 1 {
		return &Reply{Text: fmt.Sprintf("Usage: %s\nCheck ids with /list.", usage)}, nil
	}

	text, err := d.engine.Cancel(ctx, req.conversationID, index, req.senderID)
	switch {
	case err == nil:
		return &Reply{Text: "Booking removed: " + text}, nil
	case errors.Is(err, engine.ErrBookingNotFound):
		return &Reply{Text: fmt.Sprintf("Booking id %d not found.", index)}, nil
	case errors.Is(err, engine.ErrNotOwner):
		return &Reply{Text: "Only the participant who made a booking can cancel it."}, nil
	default:
		return nil, err
	}
}

func (d *Dispatcher) handleHelp(_ context.Context, _ *request) (*Reply, error) {
	var sb strings.Builder
	sb.WriteString(d.botName)
	sb.WriteString("\n\n")
	for _, name := range d.order {
		c := d.commands[name]
		fmt.Fprintf(&sb, "[%s%s]\n%s\nUsage: %s\n\n", strings.ToUpper(name[:1]), name[1:], c.description, c.usage)
	}
	return &Reply{Text: strings.TrimSpace(sb.String())}, nil
}
