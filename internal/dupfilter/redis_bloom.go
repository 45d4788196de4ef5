package dupfilter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmptyAddress is returned when no Redis address is configured.
var ErrEmptyAddress = errors.New("redis address is required")

// connectionTimeout bounds the ping and reservation made by Connect.
const connectionTimeout = 5 * time.Second

// RedisOptions configures a RedisBloomFilter.
type RedisOptions struct {
	Address  string
	Password string
	DB       int

	// Key is the Redis key holding the bloom filter.
	Key string

	Capacity  int64
	ErrorRate float64
}

// DefaultRedisOptions returns options for a local Redis server.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Address:   "localhost:6379",
		Key:       DefaultKey,
		Capacity:  DefaultCapacity,
		ErrorRate: DefaultErrorRate,
	}
}

// bloomClient is the subset of *redis.Client used by RedisBloomFilter.
type bloomClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	BFReserve(ctx context.Context, key string, errorRate float64, capacity int64) *redis.StatusCmd
	BFAdd(ctx context.Context, key string, element interface{}) *redis.BoolCmd
	BFExists(ctx context.Context, key string, element interface{}) *redis.BoolCmd
	Close() error
}

// RedisBloomFilter stores fingerprints in a RedisBloom filter.
type RedisBloomFilter struct {
	opts RedisOptions

	// newClient builds the connection; tests replace it.
	newClient func(*redis.Options) bloomClient

	mu     sync.RWMutex
	client bloomClient
}

var _ Filter = (*RedisBloomFilter)(nil)

// NewRedisBloomFilter validates opts and returns an unconnected filter.
func NewRedisBloomFilter(opts RedisOptions) (*RedisBloomFilter, error) {
	if opts.Address == "" {
		return nil, ErrEmptyAddress
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if err := validateReservation(opts.Capacity, opts.ErrorRate); err != nil {
		return nil, err
	}

	return &RedisBloomFilter{
		opts: opts,
		newClient: func(o *redis.Options) bloomClient {
			return redis.NewClient(o)
		},
	}, nil
}

// Connect opens the connection and reserves the filter.
// Reserving a key that already holds a filter is not an error, so a crawl
// can share a filter with an earlier one.
func (f *RedisBloomFilter) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return nil
	}

	client := f.newClient(&redis.Options{
		Addr:     f.opts.Address,
		Password: f.opts.Password,
		DB:       f.opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	err := client.BFReserve(ctx, f.opts.Key, f.opts.ErrorRate, f.opts.Capacity).Err()
	if err != nil && !isItemExists(err) {
		_ = client.Close()
		return fmt.Errorf("failed to reserve bloom filter %q: %w", f.opts.Key, err)
	}

	f.client = client
	return nil
}

// Disconnect closes the connection. It is safe to call more than once.
func (f *RedisBloomFilter) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	if err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}

// Add records item in the remote filter.
func (f *RedisBloomFilter) Add(ctx context.Context, item string) error {
	client, err := f.conn()
	if err != nil {
		return err
	}
	if err := client.BFAdd(ctx, f.opts.Key, item).Err(); err != nil {
		return fmt.Errorf("BF.ADD failed: %w", err)
	}
	return nil
}

// Exists reports whether item was probably added.
func (f *RedisBloomFilter) Exists(ctx context.Context, item string) (bool, error) {
	client, err := f.conn()
	if err != nil {
		return false, err
	}
	ok, err := client.BFExists(ctx, f.opts.Key, item).Result()
	if err != nil {
		return false, fmt.Errorf("BF.EXISTS failed: %w", err)
	}
	return ok, nil
}

func (f *RedisBloomFilter) conn() (bloomClient, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.client == nil {
		return nil, ErrNotConnected
	}
	return f.client, nil
}

// isItemExists reports whether err is RedisBloom's answer to reserving an
// existing key.
func isItemExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "item exists")
}
