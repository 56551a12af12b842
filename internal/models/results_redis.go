package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "socialear"

// RedisResultService stores analysis results in Redis. Each result is a
// JSON string under its (query, from, to) key; a per-query sorted set
// scored by creation time indexes them for latest-result lookups.
type RedisResultService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to the Redis server described by url and
// verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// NewRedisResultService creates a Redis-backed result store. A zero ttl
// keeps results forever.
func NewRedisResultService(client *redis.Client, ttl time.Duration) *RedisResultService {
	return &RedisResultService{client: client, ttl: ttl}
}

func resultKey(query, dateFrom, dateTo string) string {
	return fmt.Sprintf("%s:result:%s:%s:%s", redisKeyPrefix, query, dateFrom, dateTo)
}

func latestKey(query string) string {
	return fmt.Sprintf("%s:latest:%s", redisKeyPrefix, query)
}

func (s *RedisResultService) Put(ctx context.Context, r *AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidInput)
	}

	query := NormalizeQuery(r.Query)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	member := r.DateFrom + "|" + r.DateTo
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKey(query, r.DateFrom, r.DateTo), data, s.ttl)
		pipe.ZAdd(ctx, latestKey(query), redis.Z{
			Score:  float64(r.CreatedAt.UnixMilli()),
			Member: member,
		})
		if s.ttl > 0 {
			pipe.Expire(ctx, latestKey(query), s.ttl)
		}
		return nil
	})
	if err != nil {
		return &UpstreamError{Service: "redis", Message: fmt.Sprintf("failed to save result: %v", err), Err: err}
	}

	return nil
}

func (s *RedisResultService) Get(ctx context.Context, query, dateFrom, dateTo string) (*AnalysisResult, error) {
	query = NormalizeQuery(query)

	if dateFrom != "" && dateTo != "" {
		return s.load(ctx, resultKey(query, dateFrom, dateTo))
	}

	members, err := s.client.ZRevRange(ctx, latestKey(query), 0, -1).Result()
	if err != nil {
		return nil, &UpstreamError{Service: "redis", Message: fmt.Sprintf("failed to read index: %v", err), Err: err}
	}

	for _, member := range members {
		from, to, ok := strings.Cut(member, "|")
		if !ok {
			continue
		}

		result, err := s.load(ctx, resultKey(query, from, to))
		if errors.Is(err, ErrResultNotFound) {
			// The result expired before its index entry did.
			_ = s.client.ZRem(ctx, latestKey(query), member).Err()
			continue
		}
		return result, err
	}

	return nil, ErrResultNotFound
}

// Health pings the Redis server.
func (s *RedisResultService) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.client.Ping(ctx).Err()
}

func (s *RedisResultService) load(ctx context.Context, key string) (*AnalysisResult, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResultNotFound
		}
		return nil, &UpstreamError{Service: "redis", Message: fmt.Sprintf("failed to load result: %v", err), Err: err}
	}

	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	return &result, nil
}
