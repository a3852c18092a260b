package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// DefaultRedisKey holds the index list when no key is configured.
const DefaultRedisKey = "medocs:index"

var _ index.Store = (*RedisIndexStore)(nil)

// RedisIndexStore keeps index entries as JSON values of one Redis list.
// RPUSH order is insertion order.
type RedisIndexStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewRedisIndexStore(client *redis.Client, key string, logger *slog.Logger) *RedisIndexStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisIndexStore{client: client, key: key, logger: logger}
}

func (s *RedisIndexStore) Append(ctx context.Context, doc entity.IndexedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal indexed document: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		s.logger.Error("failed to push indexed document", "key", s.key, "id", doc.ID, "error", err)
		return fmt.Errorf("failed to append indexed document: %w", err)
	}
	return nil
}

func (s *RedisIndexStore) All(ctx context.Context) ([]entity.IndexedDocument, error) {
	vals, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		s.logger.Error("failed to read index list", "key", s.key, "error", err)
		return nil, fmt.Errorf("failed to list indexed documents: %w", err)
	}
	out := make([]entity.IndexedDocument, 0, len(vals))
	for i, v := range vals {
		var doc entity.IndexedDocument
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode index entry %d: %w", i, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *RedisIndexStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count indexed documents: %w", err)
	}
	return int(n), nil
}

func (s *RedisIndexStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	return nil
}

// Ping verifies the connection.
func (s *RedisIndexStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
