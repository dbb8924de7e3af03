package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	commandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbot",
			Name:      "commands_handled_total",
			Help:      "Count of recognized commands handled, by command.",
		},
		[]string{"command"},
	)

	commandFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbot",
			Name:      "command_failures_total",
			Help:      "Count of commands that ended in a generic failure reply.",
		},
		[]string{"command"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbot",
			Name:      "bookings_created_total",
			Help:      "Count of bookings accepted and stored.",
		},
	)

	bookingsCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbot",
			Name:      "bookings_canceled_total",
			Help:      "Count of bookings canceled by their creators.",
		},
	)

	bookingsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbot",
			Name:      "bookings_pruned_total",
			Help:      "Count of expired bookings retired automatically.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(commandsHandled, commandFailures, bookingsCreated, bookingsCanceled, bookingsPruned)
	})
}

func IncCommandHandled(command string) {
	commandsHandled.WithLabelValues(command).Inc()
}

func IncCommandFailure(command string) {
	commandFailures.WithLabelValues(command).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingCanceled() {
	bookingsCanceled.Inc()
}

func AddBookingsPruned(n int) {
	bookingsPruned.Add(float64(n))
}
