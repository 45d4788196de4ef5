package dupfilter

import (
	"context"
	"errors"
	"fmt"
)

// Default reservation values for the probabilistic variants.
const (
	DefaultCapacity  = 1_000_000
	DefaultErrorRate = 0.001
	DefaultKey       = "spiderman-urlfilter"
)

// Kind selects a Filter implementation.
type Kind string

const (
	// KindSet selects SetFilter.
	KindSet Kind = "set"
	// KindBloom selects BloomFilter.
	KindBloom Kind = "bloom"
	// KindRedisBloom selects RedisBloomFilter.
	KindRedisBloom Kind = "redis-bloom"
)

var (
	// ErrNotConnected is returned when a remote filter is used before Connect.
	ErrNotConnected = errors.New("duplicate filter is not connected")

	// ErrUnknownKind is returned by New for an unsupported Kind.
	ErrUnknownKind = errors.New("unknown duplicate filter kind")

	// ErrInvalidCapacity is returned when the reserved capacity is not positive.
	ErrInvalidCapacity = errors.New("invalid capacity: must be positive")

	// ErrInvalidErrorRate is returned when the error rate is outside (0, 1).
	ErrInvalidErrorRate = errors.New("invalid error rate: must be between 0 and 1")
)

// Filter is the capability set shared by every variant.
// Add is idempotent and Exists reports whether item was added before.
// Implementations must be safe for concurrent use.
type Filter interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Add(ctx context.Context, item string) error
	Exists(ctx context.Context, item string) (bool, error)
}

// Config describes which filter to build.
type Config struct {
	Kind Kind

	// Capacity and ErrorRate size the probabilistic variants.
	Capacity  int64
	ErrorRate float64

	// Redis holds the connection settings of KindRedisBloom.
	Redis RedisOptions
}

// DefaultConfig returns a configuration for the exact in-memory filter.
func DefaultConfig() Config {
	return Config{
		Kind:      KindSet,
		Capacity:  DefaultCapacity,
		ErrorRate: DefaultErrorRate,
		Redis:     DefaultRedisOptions(),
	}
}

// New builds the filter described by cfg.
func New(cfg Config) (Filter, error) {
	switch cfg.Kind {
	case "", KindSet:
		return NewSetFilter(), nil
	case KindBloom:
		return NewBloomFilter(cfg.Capacity, cfg.ErrorRate)
	case KindRedisBloom:
		opts := cfg.Redis
		if cfg.Capacity != 0 {
			opts.Capacity = cfg.Capacity
		}
		if cfg.ErrorRate != 0 {
			opts.ErrorRate = cfg.ErrorRate
		}
		return NewRedisBloomFilter(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func validateReservation(capacity int64, errorRate float64) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}
	if errorRate <= 0 || errorRate >= 1 {
		return ErrInvalidErrorRate
	}
	return nil
}
