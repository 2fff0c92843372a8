// Package reference implements the sequential reference allocation protocol
// used for collection request and pickup event codes.
package reference

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ecotrace/collect-api/pkg/metrics"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// ErrAllocationFailed is returned when every sequential attempt and the random
// fallback collided. Rare enough to page on.
var ErrAllocationFailed = errors.New("reference allocation failed")

const (
	// DefaultAttempts bounds allocation on user-facing request paths.
	DefaultAttempts = 10
	// BackgroundAttempts bounds allocation on background and migration paths.
	BackgroundAttempts = 50
)

// Entity types the allocator scopes its counts by.
const (
	EntityRequest = "request"
	EntityPickup  = "pickup"
)

// Reference prefixes.
const (
	PrefixRequest = "COL"
	PrefixPickup  = "RDV"
)

// Store answers existence and count questions about references. Both methods
// must observe the caller's open transaction (they join it through the
// context) so that check-then-claim happens in one transaction scope.
type Store interface {
	CountCreatedOn(ctx context.Context, entityType string, day time.Time) (int, error)
	ReferenceExists(ctx context.Context, entityType string, reference string) (bool, error)
}

// Sequencer hands out fast monotonic sequence hints, typically backed by a
// Redis counter. It is an optimization only; correctness rests on the Store's
// in-transaction existence check and the unique index behind it.
type Sequencer interface {
	NextSequence(ctx context.Context, prefix string, year int, day time.Time) (int64, error)
}

// Allocator produces unique, human-readable sequential references of the form
// PREFIX-YEAR-NNN. Callers claim the returned reference by inserting the
// owning row inside the same transaction the allocation ran in.
type Allocator struct {
	store     Store
	sequencer Sequencer
	logger    ectologger.Logger
	now       func() time.Time
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSequencer installs a sequence hint source.
func WithSequencer(seq Sequencer) Option {
	return func(a *Allocator) {
		a.sequencer = seq
	}
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// NewAllocator creates a new reference allocator.
func NewAllocator(logger ectologger.Logger, store Store, opts ...Option) *Allocator {
	a := &Allocator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a free reference for the entity type using the request-path
// attempt bound.
func (a *Allocator) Allocate(ctx context.Context, entityType, prefix string) (string, error) {
	return a.AllocateN(ctx, entityType, prefix, DefaultAttempts)
}

// AllocateN returns a free reference, trying up to maxAttempts sequential
// candidates before falling back to a random suffix. The candidate sequence is
// seeded from the count of entities created today; gaps are tolerated,
// duplicates are prevented by the existence check running inside the caller's
// transaction plus the unique index on the reference column.
func (a *Allocator) AllocateN(ctx context.Context, entityType, prefix string, maxAttempts int) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Allocate")
	defer span.End()

	now := a.now().UTC()
	year := now.Year()

	if a.sequencer != nil {
		if seq, err := a.sequencer.NextSequence(ctx, prefix, year, now); err == nil {
			candidate := formatReference(prefix, year, seq)
			exists, err := a.store.ReferenceExists(ctx, entityType, candidate)
			if err != nil {
				return "", err
			}
			metrics.RecordReferenceAttempts(entityType, 1)
			if !exists {
				return candidate, nil
			}
		} else {
			a.logger.WithContext(ctx).WithError(err).Debug("sequence hint unavailable, using count heuristic")
		}
	}

	count, err := a.store.CountCreatedOn(ctx, entityType, now)
	if err != nil {
		return "", errors.Wrap(err, "failed to count entities created today")
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := formatReference(prefix, year, int64(count+1+attempt))
		exists, err := a.store.ReferenceExists(ctx, entityType, candidate)
		if err != nil {
			return "", err
		}
		metrics.RecordReferenceAttempts(entityType, 1)
		if !exists {
			return candidate, nil
		}
	}

	// Pathological concurrent burst: every sequential candidate is taken.
	metrics.RecordReferenceFallback(entityType)
	fallback := fmt.Sprintf("%s-%d-%s", prefix, year, randomSuffix())
	exists, err := a.store.ReferenceExists(ctx, entityType, fallback)
	if err != nil {
		return "", err
	}
	if exists {
		metrics.RecordReferenceFailure(entityType)
		a.logger.WithContext(ctx).WithFields(map[string]any{
			"entity_type": entityType,
			"reference":   fallback,
		}).Error("fallback reference collided")
		return "", errors.Wrapf(ErrAllocationFailed, "fallback reference %s already in use", fallback)
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type": entityType,
		"reference":   fallback,
		"attempts":    maxAttempts,
	}).Warn("sequential attempts exhausted, allocated fallback reference")
	return fallback, nil
}

func formatReference(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// randomSuffix returns 6 uppercase hex characters of UUID entropy.
func randomSuffix() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:3]))
}
