package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "newsgrade:dedup:"
	redisIndexKey  = "newsgrade:dedup:index"
)

// RedisStore keeps the dedup window in Redis so multiple pipeline instances
// share one view of seen articles. Entry keys expire via TTL; the candidate
// index is trimmed lazily on read.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	if window == 0 {
		window = 7 * 24 * time.Hour
	}
	return &RedisStore{client: client, window: window}
}

// AddIfAbsent relies on SET NX for atomicity across instances.
func (s *RedisStore) AddIfAbsent(ctx context.Context, e Entry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	added, err := s.client.SetNX(ctx, redisKeyPrefix+e.Hash, payload, s.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	if !added {
		return false, nil
	}
	if err := s.client.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(e.SeenAt.Unix()),
		Member: e.Hash,
	}).Err(); err != nil {
		return false, fmt.Errorf("dedup index: %w", err)
	}
	return true, nil
}

// Candidates returns live entries, trimming the expired tail of the index
// first. Index members whose entry key already expired are skipped.
func (s *RedisStore) Candidates(ctx context.Context) ([]Entry, error) {
	cutoff := time.Now().Add(-s.window).Unix()
	if err := s.client.ZRemRangeByScore(ctx, redisIndexKey, "-inf", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return nil, fmt.Errorf("dedup trim: %w", err)
	}
	hashes, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("dedup range: %w", err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = redisKeyPrefix + h
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("dedup mget: %w", err)
	}

	out := make([]Entry, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
