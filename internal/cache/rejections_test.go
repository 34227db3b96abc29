package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
)

type memoryStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Incr(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.counts[key]++
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, keys ...string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = m.counts[k]
	}
	return out, nil
}

var hour = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestRejectionKey(t *testing.T) {
	a := RejectionKey(hour.Add(5*time.Minute), auth.ReasonInvalidSignature, token.TypeAccess)
	b := RejectionKey(hour.Add(59*time.Minute), auth.ReasonInvalidSignature, token.TypeAccess)
	c := RejectionKey(hour.Add(61*time.Minute), auth.ReasonInvalidSignature, token.TypeAccess)

	assert.Equal(t, a, b, "same hour shares a bucket")
	assert.NotEqual(t, a, c)
	assert.Equal(t, "authgate:rejections:1792238400:invalid_signature:access", a)
}

func TestRejectionCounter(t *testing.T) {
	store := newMemoryStore()
	counter := NewRejectionCounter(store)
	counter.now = func() time.Time { return hour.Add(10 * time.Minute) }

	var _ auth.Recorder = counter

	counter.Rejected(auth.ReasonSessionTimeoutExceeded, token.TypeMasquerade)
	counter.Rejected(auth.ReasonSessionTimeoutExceeded, token.TypeMasquerade)
	counter.Rejected(auth.ReasonWrongTokenType, token.TypeAccess)
	counter.Accepted(token.TypeAccess)

	counts, err := counter.Counts(context.Background(), hour)
	require.NoError(t, err)
	assert.ElementsMatch(t, []RejectionCount{
		{Reason: auth.ReasonWrongTokenType, ExpectedType: token.TypeAccess, Count: 1},
		{Reason: auth.ReasonSessionTimeoutExceeded, ExpectedType: token.TypeMasquerade, Count: 2},
	}, counts)

	for _, ttl := range store.ttls {
		assert.Equal(t, RejectionRetention, ttl)
	}

	counts, err = counter.Counts(context.Background(), hour.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestRejectionCounter_StoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	counter := NewRejectionCounter(store)

	assert.NotPanics(t, func() {
		counter.Rejected(auth.ReasonInvalidSignature, token.TypeAccess)
	})

	_, err := counter.Counts(context.Background(), hour)
	assert.ErrorContains(t, err, "connection refused")
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisCounterStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	store := &RedisCounterStore{Client: client}
	key := RejectionPrefix + "test:" + time.Now().Format(time.RFC3339Nano)
	defer client.Del(ctx, key)

	require.NoError(t, store.Incr(ctx, key, time.Minute))
	require.NoError(t, store.Incr(ctx, key, time.Minute))

	counts, err := store.Get(ctx, key, key+":missing")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 0}, counts)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRejectionCounter_BehindDispatcher(t *testing.T) {
	store := newMemoryStore()
	counter := NewRejectionCounter(store)
	counter.now = func() time.Time { return hour.Add(10 * time.Minute) }

	d := auth.NewDispatcher(8, counter, nil, nil)
	d.Rejected(auth.ReasonCredentialExpired, token.TypeRefresh)
	d.Rejected(auth.ReasonCredentialExpired, token.TypeRefresh)
	require.NoError(t, d.Close())

	counts, err := counter.Counts(context.Background(), hour)
	require.NoError(t, err)
	assert.Equal(t, []RejectionCount{
		{Reason: auth.ReasonCredentialExpired, ExpectedType: token.TypeRefresh, Count: 2},
	}, counts)
}
