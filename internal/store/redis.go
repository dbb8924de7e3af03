package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"slotbot/internal/models"
)

const redisKeyPrefix = "slotbot:bookings:"

// RedisStore backs the keyed document store with one Redis key per
// conversation, each holding the JSON-encoded booking list.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, rec models.Booking) error {
	recs, err := s.readDocument(ctx, conversationID)
	if err != nil {
		return err
	}
	return s.writeDocument(ctx, conversationID, append(recs, rec))
}

func (s *RedisStore) ReplaceAll(ctx context.Context, conversationID string, recs []models.Booking) error {
	return s.writeDocument(ctx, conversationID, recs)
}

func (s *RedisStore) ReadAll(ctx context.Context, conversationID string) ([]models.Booking, error) {
	recs, err := s.readDocument(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := validateRecords(recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *RedisStore) RemoveAt(ctx context.Context, conversationID string, index int) (*models.Booking, error) {
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

func (s *RedisStore) Conversations(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) readDocument(ctx context.Context, conversationID string) ([]models.Booking, error) {
	doc, err := s.client.Get(ctx, redisKeyPrefix+conversationID).Result()
	if errors.Is(err, redis.Nil) {
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

func (s *RedisStore) writeDocument(ctx context.Context, conversationID string, recs []models.Booking) error {
	if recs == nil {
		recs = []models.Booking{}
	}
	doc, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", conversationID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+conversationID, doc, 0).Err(); err != nil {
		return fmt.Errorf("write document %s: %w", conversationID, err)
	}
	return nil
}
