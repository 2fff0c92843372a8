package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ecotrace/collect-api/pkg/metrics"
)

// Sequencer hands out daily sequence hints for the reference allocator via
// INCR on a per-prefix counter. It is a fast path only: the allocator still
// verifies the candidate inside the claiming transaction, so losing or
// resetting the counter can never produce duplicates.
type Sequencer struct {
	client *Client
}

// NewSequencer creates a new sequence hint source
func NewSequencer(client *Client) *Sequencer {
	return &Sequencer{client: client}
}

// NextSequence increments and returns the counter for the prefix and day. The
// key expires after 48 hours so stale day counters clean themselves up.
func (s *Sequencer) NextSequence(ctx context.Context, prefix string, year int, day time.Time) (int64, error) {
	start := time.Now()
	key := fmt.Sprintf("seq:%s:%d:%s", prefix, year, day.Format("2006-01-02"))

	seq, err := s.client.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	metrics.RedisOperationDuration.WithLabelValues("incr").Observe(time.Since(start).Seconds())

	if seq == 1 {
		if err := s.client.Expire(ctx, key, 48*time.Hour); err != nil {
			s.client.logger.WithContext(ctx).WithError(err).Warnf("failed to set expiry on %s", key)
		}
	}
	return seq, nil
}
