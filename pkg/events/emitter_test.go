package events

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/kafka"
	"github.com/ecotrace/collect-api/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// channelPublisher delivers published messages over a channel so tests can
// wait for the async emit goroutine.
type channelPublisher struct {
	messages chan *kafka.LifecycleEventMessage
}

func newChannelPublisher() *channelPublisher {
	return &channelPublisher{messages: make(chan *kafka.LifecycleEventMessage, 10)}
}

func (p *channelPublisher) Publish(ctx context.Context, msg *kafka.LifecycleEventMessage) error {
	p.messages <- msg
	return nil
}

func (p *channelPublisher) next(t *testing.T) *kafka.LifecycleEventMessage {
	t.Helper()
	select {
	case msg := <-p.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
		return nil
	}
}

func TestRequestApprovedEmitsAssignedPickup(t *testing.T) {
	publisher := newChannelPublisher()
	emitter := NewEmitter(publisher, getTestLogger())

	requester := uuid.New()
	hauler := uuid.New()
	request := &models.Request{ID: 7, Reference: "COL-2026-004", Status: models.RequestStatusInProgress, RequesterID: requester}
	pickup := &models.PickupEvent{ID: 3, Reference: "RDV-2026-001", Status: models.PickupStatusPlanned, RequesterID: requester, HaulerID: &hauler}

	emitter.RequestApproved(context.Background(), request, pickup)

	got := map[string]*kafka.LifecycleEventMessage{}
	for i := 0; i < 2; i++ {
		msg := publisher.next(t)
		got[msg.Type] = msg
	}

	approved := got[TypeRequestApproved]
	require.NotNil(t, approved)
	assert.Equal(t, "request", approved.EntityType)
	assert.Equal(t, int64(7), approved.EntityID)
	assert.Equal(t, requester.String(), approved.TargetUserID)

	assigned := got[TypePickupAssigned]
	require.NotNil(t, assigned)
	assert.Equal(t, "RDV-2026-001", assigned.Reference)
	assert.Equal(t, hauler.String(), assigned.TargetUserID)
}

func TestPickupAssignedTargetsRequesterWithoutHauler(t *testing.T) {
	publisher := newChannelPublisher()
	emitter := NewEmitter(publisher, getTestLogger())

	requester := uuid.New()
	pickup := &models.PickupEvent{ID: 5, Reference: "RDV-2026-002", Status: models.PickupStatusPlanned, RequesterID: requester}

	emitter.PickupAssigned(context.Background(), pickup)

	msg := publisher.next(t)
	assert.Equal(t, requester.String(), msg.TargetUserID)
}

func TestEmitFillsActorFromContext(t *testing.T) {
	publisher := newChannelPublisher()
	emitter := NewEmitter(publisher, getTestLogger())

	actor := uuid.New().String()
	ctx := appcontext.SetUserID(context.Background(), actor)

	emitter.RequestRejected(ctx, &models.Request{ID: 9, Reference: "COL-2026-009", Status: models.RequestStatusRejected, RequesterID: uuid.New()})

	msg := publisher.next(t)
	assert.Equal(t, actor, msg.ActorID)
	assert.Equal(t, TypeRequestRejected, msg.Type)
}

func TestNilProducerDropsEvents(t *testing.T) {
	emitter := NewEmitter(nil, getTestLogger())

	// Must not panic or block
	emitter.PickupCompleted(context.Background(), &models.PickupEvent{ID: 1, Reference: "RDV-2026-003", RequesterID: uuid.New()})
}
