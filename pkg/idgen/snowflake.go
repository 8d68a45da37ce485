package idgen

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	nodeBits     = 10
	sequenceBits = 12

	MaxNodeID   = 1<<nodeBits - 1
	maxSequence = 1<<sequenceBits - 1
)

// DefaultEpoch is 2020-01-01T00:00:00Z.
var DefaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrNodeOutOfRange = errors.New("node id out of range")
	ErrClockBehind    = errors.New("current time is before epoch")
)

// SnowflakeGenerator produces base62-encoded Snowflake IDs.
// Layout (63 bits): 41 bits ms since epoch | 10 bits node | 12 bits sequence.
type SnowflakeGenerator struct {
	mu       sync.Mutex
	epoch    int64
	nodeID   uint64
	lastTs   int64
	sequence uint64

	now func() time.Time
}

func NewSnowflakeGenerator(nodeID uint64, epoch time.Time) (*SnowflakeGenerator, error) {
	if nodeID > MaxNodeID {
		return nil, ErrNodeOutOfRange
	}
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &SnowflakeGenerator{
		epoch:  epoch.UnixMilli(),
		nodeID: nodeID,
		lastTs: -1,
		now:    time.Now,
	}, nil
}

// NextID returns the next raw Snowflake ID.
func (s *SnowflakeGenerator) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli() - s.epoch
	if ts < 0 {
		return 0, ErrClockBehind
	}
	// a clock that stepped back reuses the last timestamp
	if ts < s.lastTs {
		ts = s.lastTs
	}

	if ts == s.lastTs {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for ts <= s.lastTs {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-time.After(time.Millisecond):
				}
				ts = s.now().UnixMilli() - s.epoch
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastTs = ts

	return uint64(ts)<<(nodeBits+sequenceBits) | s.nodeID<<sequenceBits | s.sequence, nil
}

// Generate returns a base62-encoded Snowflake ID.
func (s *SnowflakeGenerator) Generate(ctx context.Context) (string, error) {
	id, err := s.NextID(ctx)
	if err != nil {
		return "", err
	}
	return Encode(id), nil
}
