// Package audit exports booking snapshots as Excel workbooks.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"slotbot/internal/store"
)

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []interface{}) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	// SaveToFile writes the Excel file to disk.
	SaveToFile(path string) error
}

var exportColumns = []string{"booking_text", "booker_id", "created_at"}

// Exporter snapshots every conversation's booking list into one workbook,
// one sheet per conversation.
type Exporter struct {
	store  store.Store
	writer func() ExcelWriter // factory, one workbook per export
	logger *zerolog.Logger
}

// NewExporter creates an exporter over st.
func NewExporter(st store.Store, writerFactory func() ExcelWriter, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: st, writer: writerFactory, logger: logger}
}

// Export writes the snapshot to path.
func (e *Exporter) Export(ctx context.Context, path string) error {
	conversations, err := e.store.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	w := e.writer()
	if len(conversations) == 0 {
		if err := w.AddSheet("empty"); err != nil {
			return err
		}
	}

	rows := 0
	for _, id := range conversations {
		recs, err := e.store.ReadAll(ctx, id)
		if err != nil {
			return fmt.Errorf("read conversation %s: %w", id, err)
		}

		if err := w.AddSheet(id); err != nil {
			return err
		}
		if err := w.WriteHeader(exportColumns); err != nil {
			return err
		}
		for i := range recs {
			row := []interface{}{
				recs[i].BookingText,
				recs[i].BookerID,
				recs[i].CreatedAt.Format(time.RFC3339),
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
			rows++
		}
	}

	if err := w.SaveToFile(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().
		Str("path", path).
		Int("conversations", len(conversations)).
		Int("rows", rows).
		Msg("audit export written")
	return nil
}

// Filename generates a dated workbook name like "bookings_2026-08-28.xlsx".
func Filename(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.Format("2006-01-02"))
}
