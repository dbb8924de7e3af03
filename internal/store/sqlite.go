package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"slotbot/internal/models"
)

// SQLiteStore backs the keyed document store with one row per conversation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, creating the parent directory
// if needed, and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS conversation_bookings (
			conversation_id TEXT PRIMARY KEY,
			bookings TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, conversationID string, rec models.Booking) error {
	recs, err := s.readDocument(ctx, conversationID)
	if err != nil {
		return err
	}
	return s.writeDocument(ctx, conversationID, append(recs, rec))
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, conversationID string, recs []models.Booking) error {
	return s.writeDocument(ctx, conversationID, recs)
}

func (s *SQLiteStore) ReadAll(ctx context.Context, conversationID string) ([]models.Booking, error) {
	recs, err := s.readDocument(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := validateRecords(recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *SQLiteStore) RemoveAt(ctx context.Context, conversationID string, index int) (*models.Booking, error) {
	recs, err := s.readDocument(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(recs) {
		return nil, nil
	}
	removed := recs[index]
	recs = append(recs[:index], recs[index+1:]...)
	if err := s.writeDocument(ctx, conversationID, recs); err != nil {
		return nil, err
	}
	return &removed, nil
}

func (s *SQLiteStore) Conversations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT conversation_id FROM conversation_bookings ORDER BY conversation_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) readDocument(ctx context.Context, conversationID string) ([]models.Booking, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT bookings FROM conversation_bookings WHERE conversation_id = ?",
		conversationID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", conversationID, err)
	}

	var recs []models.Booking
	if err := json.Unmarshal([]byte(doc), &recs); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", conversationID, err)
	}
	return recs, nil
}

func (s *SQLiteStore) writeDocument(ctx context.Context, conversationID string, recs []models.Booking) error {
	if recs == nil {
		recs = []models.Booking{}
	}
	doc, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", conversationID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_bookings (conversation_id, bookings, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			bookings = excluded.bookings,
			updated_at = excluded.updated_at`,
		conversationID, string(doc), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("write document %s: %w", conversationID, err)
	}
	return nil
}
