package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
)

const (
	// RejectionPrefix is the prefix for rejection counter keys
	RejectionPrefix = "authgate:rejections:"
	// RejectionWindow is the width of one counter bucket
	RejectionWindow = time.Hour
	// RejectionRetention is how long a bucket survives after its first hit
	RejectionRetention = 48 * time.Hour

	recordTimeout = 250 * time.Millisecond
)

// CounterStore is the subset of Redis the rejection counter needs
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, keys ...string) ([]int64, error)
}

// RedisCounterStore implements CounterStore with INCR and EXPIRE
type RedisCounterStore struct {
	Client *redis.Client
}

// Incr increments key and sets its expiry to ttl when it has none
func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) error {
	pipe := s.Client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get reads keys in one MGET; missing keys count as 0
func (s *RedisCounterStore) Get(ctx context.Context, keys ...string) ([]int64, error) {
	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	counts := make([]int64, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s holds %q: %w", keys[i], str, err)
		}
		counts[i] = n
	}
	return counts, nil
}

// RejectionCount is one bucket of rejections for a reason and expected type
type RejectionCount struct {
	Reason       auth.Reason `json:"reason"`
	ExpectedType token.Type  `json:"expected_type"`
	Count        int64       `json:"count"`
}

// RejectionCounter keeps hourly rejection counts in Redis so that every
// instance behind a load balancer contributes to the same totals.
// It implements auth.Recorder but does network I/O on every rejection, so the
// verifier reaches it through an auth.Dispatcher.
type RejectionCounter struct {
	store CounterStore
	now   func() time.Time
}

// NewRejectionCounter creates a counter backed by store
func NewRejectionCounter(store CounterStore) *RejectionCounter {
	return &RejectionCounter{store: store, now: time.Now}
}

// Accepted is a no-op; only rejections are shared
func (c *RejectionCounter) Accepted(token.Type) {}

// Rejected increments the bucket for the current hour. Redis failures are
// logged and swallowed.
func (c *RejectionCounter) Rejected(r auth.Reason, expected token.Type) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	key := RejectionKey(c.now(), r, expected)
	if err := c.store.Incr(ctx, key, RejectionRetention); err != nil {
		slog.Warn("Failed to increment rejection counter", "key", key, "error", err)
	}
}

// Counts returns the non-zero counters of the bucket containing at
func (c *RejectionCounter) Counts(ctx context.Context, at time.Time) ([]RejectionCount, error) {
	var keys []string
	var labels []RejectionCount
	for _, r := range auth.Reasons {
		for _, t := range token.Types {
			keys = append(keys, RejectionKey(at, r, t))
			labels = append(labels, RejectionCount{Reason: r, ExpectedType: t})
		}
	}

	values, err := c.store.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read rejection counters: %w", err)
	}

	counts := make([]RejectionCount, 0)
	for i, v := range values {
		if v == 0 {
			continue
		}
		rc := labels[i]
		rc.Count = v
		counts = append(counts, rc)
	}
	return counts, nil
}

// RejectionKey names the counter for reason and expected type in the hour containing at
func RejectionKey(at time.Time, r auth.Reason, expected token.Type) string {
	bucket := at.UTC().Truncate(RejectionWindow)
	return fmt.Sprintf("%s%d:%s:%s", RejectionPrefix, bucket.Unix(), r, expected)
}
