package idgen

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const DefaultCounterKey = "url_counter"

// Incrementer is the subset of the Redis client used by CounterGenerator.
type Incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// CounterGenerator hands out base62-encoded values of a Redis counter. Codes
// never repeat while the key survives, so collisions only happen against
// custom codes that look like counter output.
type CounterGenerator struct {
	redis Incrementer
	key   string
}

func NewCounterGenerator(client Incrementer, key string) *CounterGenerator {
	if key == "" {
		key = DefaultCounterKey
	}
	return &CounterGenerator{redis: client, key: key}
}

// Generate returns next ID using Redis INCR (atomic counter)
func (g *CounterGenerator) Generate(ctx context.Context) (string, error) {
	val, err := g.redis.Incr(ctx, g.key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment counter: %w", err)
	}
	if val <= 0 {
		return "", fmt.Errorf("counter %q returned non-positive value %d", g.key, val)
	}

	return Encode(uint64(val)), nil
}
