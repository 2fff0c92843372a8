// Package events turns committed lifecycle transitions into Kafka messages.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/kafka"
	"github.com/ecotrace/collect-api/pkg/models"
)

// Event type names consumed by the notification service.
const (
	TypeRequestApproved = "request.approved"
	TypeRequestRejected = "request.rejected"
	TypePickupAssigned  = "pickup.assigned"
	TypePickupCompleted = "pickup.completed"
	TypeMaterialsReady  = "materials.ready"
	TypePickupOverdue   = "pickup.overdue"
)

// Publisher is the producer surface the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.LifecycleEventMessage) error
}

// Emitter publishes lifecycle events after commit. Every emit is
// fire-and-forget on a detached context: publish failures are logged and never
// surface back into the committed transition.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new lifecycle event emitter. A nil producer disables
// publishing; emits are logged and dropped.
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{producer: producer, logger: logger}
}

func (e *Emitter) emit(ctx context.Context, msg *kafka.LifecycleEventMessage) {
	if msg.ActorID == "" {
		msg.ActorID = appcontext.GetUserID(ctx)
	}

	if e.producer == nil {
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"type":      msg.Type,
			"reference": msg.Reference,
		}).Debug("event publishing disabled, dropping lifecycle event")
		return
	}

	// Detach from the request lifetime so an early client disconnect doesn't
	// cancel the publish.
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := e.producer.Publish(ctx, msg); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"type":      msg.Type,
				"reference": msg.Reference,
			}).Warn("failed to publish lifecycle event")
		}
	}()
}

// RequestApproved publishes request.approved, and pickup.assigned when the
// approval auto-created a pickup event.
func (e *Emitter) RequestApproved(ctx context.Context, request *models.Request, pickup *models.PickupEvent) {
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:         TypeRequestApproved,
		EntityType:   "request",
		EntityID:     request.ID,
		Reference:    request.Reference,
		Status:       request.Status,
		TargetUserID: request.RequesterID.String(),
	})
	if pickup != nil {
		e.PickupAssigned(ctx, pickup)
	}
}

// RequestRejected publishes request.rejected.
func (e *Emitter) RequestRejected(ctx context.Context, request *models.Request) {
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:         TypeRequestRejected,
		EntityType:   "request",
		EntityID:     request.ID,
		Reference:    request.Reference,
		Status:       request.Status,
		TargetUserID: request.RequesterID.String(),
	})
}

// PickupAssigned publishes pickup.assigned, targeting the hauler when one is
// set and the requester otherwise.
func (e *Emitter) PickupAssigned(ctx context.Context, pickup *models.PickupEvent) {
	target := pickup.RequesterID
	if pickup.HaulerID != nil {
		target = *pickup.HaulerID
	}
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:         TypePickupAssigned,
		EntityType:   "pickup",
		EntityID:     pickup.ID,
		Reference:    pickup.Reference,
		Status:       pickup.Status,
		TargetUserID: target.String(),
	})
}

// PickupCompleted publishes pickup.completed.
func (e *Emitter) PickupCompleted(ctx context.Context, pickup *models.PickupEvent) {
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:         TypePickupCompleted,
		EntityType:   "pickup",
		EntityID:     pickup.ID,
		Reference:    pickup.Reference,
		Status:       pickup.Status,
		TargetUserID: pickup.RequesterID.String(),
	})
}

// MaterialsReady publishes materials.ready once per completed pickup.
func (e *Emitter) MaterialsReady(ctx context.Context, pickup *models.PickupEvent, items []*models.MaterialItem) {
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:       TypeMaterialsReady,
		EntityType: "pickup",
		EntityID:   pickup.ID,
		Reference:  pickup.Reference,
		Status:     pickup.Status,
	})
}

// PickupOverdue publishes pickup.overdue from the background sweep.
func (e *Emitter) PickupOverdue(ctx context.Context, pickup *models.PickupEvent) {
	target := pickup.RequesterID
	if pickup.HaulerID != nil {
		target = *pickup.HaulerID
	}
	e.emit(ctx, &kafka.LifecycleEventMessage{
		Type:         TypePickupOverdue,
		EntityType:   "pickup",
		EntityID:     pickup.ID,
		Reference:    pickup.Reference,
		Status:       pickup.Status,
		TargetUserID: target.String(),
	})
}
