// Package janitor runs background maintenance: expiry sweeps and scheduled
// audit exports.
package janitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"slotbot/internal/audit"
	"slotbot/internal/engine"
	"slotbot/internal/store"
)

// Janitor periodically retires expired bookings across every conversation.
// Pruning also happens lazily on each list render; the sweep keeps storage
// and the audit trail tidy for conversations nobody lists anymore.
type Janitor struct {
	engine   *engine.Engine
	store    store.Store
	exporter *audit.Exporter // nil disables exports
	interval time.Duration
	exportAt int // hour of day
	dir      string
	logger   *zerolog.Logger
	now      func() time.Time

	lastExportDate string // YYYY-MM-DD of last export
}

// New creates a janitor sweeping every interval. exporter may be nil.
func New(eng *engine.Engine, st store.Store, exporter *audit.Exporter, interval time.Duration, exportAt int, dir string, logger *zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{
		engine:   eng,
		store:    st,
		exporter: exporter,
		interval: interval,
		exportAt: exportAt,
		dir:      dir,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info().Dur("interval", j.interval).Msg("janitor started")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
			j.maybeExport(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	conversations, err := j.store.Conversations(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("janitor: list conversations failed")
		return
	}

	total := 0
	for _, id := range conversations {
		pruned, err := j.engine.Prune(ctx, id)
		if err != nil {
			j.logger.Error().Err(err).Str("conversation_id", id).Msg("janitor: prune failed")
			continue
		}
		total += pruned
	}
	if total > 0 {
		j.logger.Info().Int("pruned", total).Msg("janitor: expired bookings retired")
	}
}

// maybeExport writes one audit snapshot per day once the export hour has
// passed.
func (j *Janitor) maybeExport(ctx context.Context) {
	if j.exporter == nil {
		return
	}

	now := j.now()
	today := now.Format("2006-01-02")
	if now.Hour() < j.exportAt || j.lastExportDate == today {
		return
	}

	path := filepath.Join(j.dir, audit.Filename(now))
	if err := j.exporter.Export(ctx, path); err != nil {
		j.logger.Error().Err(err).Str("path", path).Msg("janitor: audit export failed")
		return
	}
	j.lastExportDate = today
}
