package reference_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecotrace/collect-api/pkg/reference"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

func testClock() time.Time {
	return fixedNow
}

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// claimingStore emulates check-then-claim inside one transaction: an existence
// check that comes back free atomically reserves the reference, the way the
// unique index does for the real store.
type claimingStore struct {
	mu      sync.Mutex
	claimed map[string]bool
	created int
}

func newClaimingStore() *claimingStore {
	return &claimingStore{claimed: map[string]bool{}}
}

func (s *claimingStore) CountCreatedOn(ctx context.Context, entityType string, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, nil
}

func (s *claimingStore) ReferenceExists(ctx context.Context, entityType, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[ref] {
		return true, nil
	}
	s.claimed[ref] = true
	s.created++
	return false, nil
}

// fullStore reports every reference as taken.
type fullStore struct{}

func (fullStore) CountCreatedOn(ctx context.Context, entityType string, day time.Time) (int, error) {
	return 7, nil
}

func (fullStore) ReferenceExists(ctx context.Context, entityType, ref string) (bool, error) {
	return true, nil
}

type staticSequencer struct {
	seq int64
}

func (s staticSequencer) NextSequence(ctx context.Context, prefix string, year int, day time.Time) (int64, error) {
	return s.seq, nil
}

func TestAllocateFirstOfTheDay(t *testing.T) {
	store := newClaimingStore()
	allocator := reference.NewAllocator(getTestLogger(), store, reference.WithClock(testClock))

	ref, err := allocator.Allocate(context.Background(), reference.EntityRequest, reference.PrefixRequest)

	require.NoError(t, err)
	assert.Equal(t, "COL-2026-001", ref)
}

func TestAllocateSkipsTakenCandidates(t *testing.T) {
	store := newClaimingStore()
	store.claimed["RDV-2026-003"] = true
	store.created = 2
	allocator := reference.NewAllocator(getTestLogger(), store, reference.WithClock(testClock))

	ref, err := allocator.Allocate(context.Background(), reference.EntityPickup, reference.PrefixPickup)

	require.NoError(t, err)
	assert.Equal(t, "RDV-2026-004", ref)
}

func TestAllocateUsesSequencerHint(t *testing.T) {
	store := newClaimingStore()
	allocator := reference.NewAllocator(getTestLogger(), store,
		reference.WithClock(testClock),
		reference.WithSequencer(staticSequencer{seq: 42}))

	ref, err := allocator.Allocate(context.Background(), reference.EntityRequest, reference.PrefixRequest)

	require.NoError(t, err)
	assert.Equal(t, "COL-2026-042", ref)
}

func TestAllocateFallbackWhenAttemptsExhausted(t *testing.T) {
	store := &sequentialOnlyStore{inner: newClaimingStore()}
	allocator := reference.NewAllocator(getTestLogger(), store, reference.WithClock(testClock))

	ref, err := allocator.Allocate(context.Background(), reference.EntityRequest, reference.PrefixRequest)

	require.NoError(t, err)
	assert.Regexp(t, `^COL-2026-[0-9A-F]{6}$`, ref)
}

// sequentialOnlyStore reports sequential candidates as taken but lets the
// random fallback through.
type sequentialOnlyStore struct {
	inner *claimingStore
}

func (s *sequentialOnlyStore) CountCreatedOn(ctx context.Context, entityType string, day time.Time) (int, error) {
	return 0, nil
}

var sequentialPattern = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{3}$`)

func (s *sequentialOnlyStore) ReferenceExists(ctx context.Context, entityType, ref string) (bool, error) {
	if sequentialPattern.MatchString(ref) {
		return true, nil
	}
	return s.inner.ReferenceExists(ctx, entityType, ref)
}

func TestAllocateFailsWhenFallbackCollides(t *testing.T) {
	allocator := reference.NewAllocator(getTestLogger(), fullStore{}, reference.WithClock(testClock))

	_, err := allocator.Allocate(context.Background(), reference.EntityRequest, reference.PrefixRequest)

	require.Error(t, err)
	assert.ErrorIs(t, err, reference.ErrAllocationFailed)
}

func TestAllocateConcurrentBurstIsPairwiseDistinct(t *testing.T) {
	const n = 50
	store := newClaimingStore()
	allocator := reference.NewAllocator(getTestLogger(), store, reference.WithClock(testClock))

	refs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := allocator.AllocateN(context.Background(), reference.EntityRequest, reference.PrefixRequest, reference.BackgroundAttempts)
			require.NoError(t, err)
			refs[i] = ref
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, ref := range refs {
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
