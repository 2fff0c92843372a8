package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecotrace/collect-api/pkg/events"
	"github.com/ecotrace/collect-api/pkg/kafka"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type overdueStore struct {
	repositories.PickupStore
	overdue []models.PickupEvent
	calls   atomic.Int32
}

func (s *overdueStore) ListOverduePlanned(ctx context.Context, before time.Time) ([]models.PickupEvent, error) {
	s.calls.Add(1)
	return s.overdue, nil
}

type channelPublisher struct {
	messages chan *kafka.LifecycleEventMessage
}

func (p *channelPublisher) Publish(ctx context.Context, msg *kafka.LifecycleEventMessage) error {
	p.messages <- msg
	return nil
}

func TestSweepEmitsOverdueEvents(t *testing.T) {
	publisher := &channelPublisher{messages: make(chan *kafka.LifecycleEventMessage, 10)}
	emitter := events.NewEmitter(publisher, getTestLogger())

	store := &overdueStore{overdue: []models.PickupEvent{
		{ID: 1, Reference: "RDV-2026-001", Status: models.PickupStatusPlanned, RequesterID: uuid.New()},
		{ID: 2, Reference: "RDV-2026-002", Status: models.PickupStatusPlanned, RequesterID: uuid.New()},
	}}

	sweep := NewSweep(store, emitter, nil, DefaultConfig(), getTestLogger())
	sweep.sweep(context.Background())

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-publisher.messages:
			assert.Equal(t, events.TypePickupOverdue, msg.Type)
			seen[msg.Reference] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for overdue event")
		}
	}
	assert.True(t, seen["RDV-2026-001"])
	assert.True(t, seen["RDV-2026-002"])
}

func TestSweepStartStop(t *testing.T) {
	store := &overdueStore{}
	emitter := events.NewEmitter(nil, getTestLogger())

	sweep := NewSweep(store, emitter, nil, Config{PollInterval: 10 * time.Millisecond}, getTestLogger())

	ctx := context.Background()
	require.NoError(t, sweep.Start(ctx))
	assert.True(t, sweep.IsRunning())

	// Starting twice fails
	assert.ErrorIs(t, sweep.Start(ctx), ErrSweepAlreadyRunning)

	// The loop runs immediately, then on every tick
	require.Eventually(t, func() bool { return store.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, sweep.Stop(stopCtx))
	assert.False(t, sweep.IsRunning())
}
