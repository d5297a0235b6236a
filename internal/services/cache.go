package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrCacheMiss is returned when a key is absent.
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrCacheDisabled is returned when no Redis client is configured.
	ErrCacheDisabled = errors.New("cache: disabled")
)

// CacheService is a JSON cache on Redis. Redis failures trip a circuit
// breaker so a dead cache degrades to misses instead of slowing every
// request. A nil client disables the cache entirely.
type CacheService struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
}

func NewCacheService(client *redis.Client, ttl time.Duration) *CacheService {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})

	return &CacheService{client: client, breaker: cb, ttl: ttl}
}

// TTL is the service's default expiration.
func (s *CacheService) TTL() time.Duration {
	return s.ttl
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if s == nil || s.client == nil {
		return ErrCacheDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, key, data, expiration).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if s == nil || s.client == nil {
		return ErrCacheDisabled
	}

	data, err := s.breaker.Execute(func() (interface{}, error) {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return val, err
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data.(string)), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every key under a prefix. Used when a dataset
// mutates and all of its derived entries go stale at once.
func (s *CacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	if s == nil || s.client == nil {
		return nil
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache prefix %q: %w", prefix, err)
	}
	return nil
}

// Cache key generators
func DatasetCachePrefix(publicID string) string {
	return fmt.Sprintf("dataset:%s:", publicID)
}

func LeaderboardCacheKey(publicID, period string) string {
	return fmt.Sprintf("dataset:%s:leaderboard:%s", publicID, period)
}

func StatsCacheKey(publicID, period string) string {
	return fmt.Sprintf("dataset:%s:stats:%s", publicID, period)
}

func ChartCacheKey(publicID, chart, period string) string {
	return fmt.Sprintf("dataset:%s:chart:%s:%s", publicID, chart, period)
}

// Cache with retry logic
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		if errors.Is(err, ErrCacheDisabled) {
			return err
		}
		logrus.Warnf("Cache set failed (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
	}
	return err
}

// Flush clears all cache entries
func (s *CacheService) Flush() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.FlushDB(context.Background()).Err()
}
