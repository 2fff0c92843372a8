// Package lifecycle implements the cross-entity state machine spanning
// collection requests, pickup events and material items. The Coordinator is
// the only component that performs cross-entity writes.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/ecotrace/collect-api/pkg/metrics"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/reference"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// ReferenceAllocator produces unique references, checked inside the caller's
// transaction.
type ReferenceAllocator interface {
	Allocate(ctx context.Context, entityType, prefix string) (string, error)
}

// Emitter publishes lifecycle events after commit, best-effort. Implementations
// must not block the caller and must never surface failures back into the
// lifecycle operation.
type Emitter interface {
	RequestApproved(ctx context.Context, request *models.Request, pickup *models.PickupEvent)
	RequestRejected(ctx context.Context, request *models.Request)
	PickupAssigned(ctx context.Context, pickup *models.PickupEvent)
	PickupCompleted(ctx context.Context, pickup *models.PickupEvent)
	MaterialsReady(ctx context.Context, pickup *models.PickupEvent, items []*models.MaterialItem)
}

// Coordinator executes lifecycle transitions. Each multi-entity operation runs
// in one transaction with row-level locks on the rows it updates; operations
// on different entities proceed in parallel with no coordinator-level lock.
type Coordinator struct {
	db        database.DB
	requests  repositories.RequestStore
	pickups   repositories.PickupStore
	materials repositories.MaterialStore
	allocator ReferenceAllocator
	emitter   Emitter
	logger    ectologger.Logger
	now       func() time.Time
}

// NewCoordinator creates a new lifecycle coordinator.
func NewCoordinator(
	db database.DB,
	requests repositories.RequestStore,
	pickups repositories.PickupStore,
	materials repositories.MaterialStore,
	allocator ReferenceAllocator,
	emitter Emitter,
	logger ectologger.Logger,
) *Coordinator {
	return &Coordinator{
		db:        db,
		requests:  requests,
		pickups:   pickups,
		materials: materials,
		allocator: allocator,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitRequestInput carries the fields of a new collection request.
type SubmitRequestInput struct {
	Category     string
	Description  string
	QuantityBand string
	Mode         string
	DesiredDate  time.Time
	TimeWindow   string
	Address      *string
	Phone        string
	Instructions *string
	Photos       []string
}

// SubmitRequest validates the input, allocates a reference and creates the
// request in SUBMITTED status. Reference check and claim share one
// transaction.
func (c *Coordinator) SubmitRequest(ctx context.Context, principal repositories.Principal, input SubmitRequestInput) (*models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.SubmitRequest")
	defer span.End()
	start := c.now()

	if err := validateSubmit(input, c.now().UTC()); err != nil {
		metrics.RecordTransition("request", "submit", "rejected_input", time.Since(start).Seconds())
		return nil, err
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ref, err := c.allocator.Allocate(ctx, reference.EntityRequest, reference.PrefixRequest)
	if err != nil {
		return nil, err
	}

	request := &models.Request{
		Reference:    ref,
		RequesterID:  principal.UserID,
		Category:     input.Category,
		Description:  input.Description,
		QuantityBand: input.QuantityBand,
		Mode:         input.Mode,
		DesiredDate:  input.DesiredDate,
		TimeWindow:   input.TimeWindow,
		Address:      input.Address,
		Phone:        input.Phone,
		Instructions: input.Instructions,
		Status:       models.RequestStatusSubmitted,
	}
	request.Photos.Data = input.Photos

	if err := c.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("request", "submit", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference":  request.Reference,
		"request_id": request.ID,
	}).Info("collection request submitted")
	return request, nil
}

// ApproveRequest transitions a SUBMITTED request. Home-mode approval
// atomically creates the pickup event and moves the request to IN_PROGRESS;
// drop-off approval records the drop-off details and stops at APPROVED.
func (c *Coordinator) ApproveRequest(ctx context.Context, principal repositories.Principal, requestID int64, dropoffDetails *string) (*models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.ApproveRequest")
	defer span.End()
	start := c.now()

	if !CanApprove(principal) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot approve requests", principal.Role)
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	request, err := c.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusSubmitted {
		return nil, errors.Wrapf(ErrInvalidTransition, "request %s is %s, only SUBMITTED requests can be approved", request.Reference, request.Status)
	}

	now := c.now().UTC()
	request.ProcessedBy = &principal.UserID
	request.ProcessedAt = &now

	var pickup *models.PickupEvent
	if request.Mode == models.PickupModeHome {
		pickup, err = c.createPickupForRequest(ctx, request)
		if err != nil {
			return nil, err
		}
		request.Status = models.RequestStatusInProgress
	} else {
		request.Status = models.RequestStatusApproved
		request.DropoffDetails = dropoffDetails
	}

	if err := c.requests.Update(ctx, request); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("request", "approve", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": request.Reference,
		"status":    request.Status,
	}).Info("collection request approved")
	c.emitter.RequestApproved(ctx, request, pickup)
	return request, nil
}

// createPickupForRequest materializes the pickup event for a home-mode
// approval inside the caller's transaction.
func (c *Coordinator) createPickupForRequest(ctx context.Context, request *models.Request) (*models.PickupEvent, error) {
	exists, err := c.pickups.ExistsForOrigin(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateOrigin, "request %s already has a pickup event", request.Reference)
	}

	ref, err := c.allocator.Allocate(ctx, reference.EntityPickup, reference.PrefixPickup)
	if err != nil {
		return nil, err
	}

	originID := request.ID
	pickup := &models.PickupEvent{
		Reference:       ref,
		RequesterID:     request.RequesterID,
		OriginRequestID: &originID,
		ScheduledDate:   request.DesiredDate,
		TimeWindow:      request.TimeWindow,
		Mode:            request.Mode,
		Address:         request.Address,
		Phone:           request.Phone,
		Status:          models.PickupStatusPlanned,
	}
	if err := c.pickups.Create(ctx, pickup); err != nil {
		return nil, err
	}
	return pickup, nil
}

// RejectRequest transitions a SUBMITTED request to REJECTED and stores the
// reason. Rejecting or approving it again fails with an invalid transition.
func (c *Coordinator) RejectRequest(ctx context.Context, principal repositories.Principal, requestID int64, reason string) (*models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.RejectRequest")
	defer span.End()
	start := c.now()

	if !CanApprove(principal) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot reject requests", principal.Role)
	}
	if reason == "" {
		return nil, errors.Wrap(ErrValidation, "rejection reason is required")
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	request, err := c.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusSubmitted {
		return nil, errors.Wrapf(ErrInvalidTransition, "request %s is %s, only SUBMITTED requests can be rejected", request.Reference, request.Status)
	}

	now := c.now().UTC()
	request.Status = models.RequestStatusRejected
	request.RejectionReason = &reason
	request.ProcessedBy = &principal.UserID
	request.ProcessedAt = &now

	if err := c.requests.Update(ctx, request); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("request", "reject", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": request.Reference,
	}).Info("collection request rejected")
	c.emitter.RequestRejected(ctx, request)
	return request, nil
}

// CreatePickupInput carries the fields of a manually scheduled pickup.
type CreatePickupInput struct {
	OriginRequestID *int64
	HaulerID        *uuid.UUID
	RequesterID     uuid.UUID
	ScheduledDate   time.Time
	TimeWindow      string
	Mode            string
	Address         *string
	Phone           string
}

// CreatePickup schedules a pickup event manually, typically for drop-off
// approvals or ad hoc collections. Guards the 1:0..1 origin invariant.
func (c *Coordinator) CreatePickup(ctx context.Context, principal repositories.Principal, input CreatePickupInput) (*models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.CreatePickup")
	defer span.End()
	start := c.now()

	if !CanCreatePickup(principal) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot create pickup events", principal.Role)
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	pickup := &models.PickupEvent{
		RequesterID:     input.RequesterID,
		OriginRequestID: input.OriginRequestID,
		ScheduledDate:   input.ScheduledDate,
		TimeWindow:      input.TimeWindow,
		Mode:            input.Mode,
		Address:         input.Address,
		Phone:           input.Phone,
		HaulerID:        input.HaulerID,
		Status:          models.PickupStatusPlanned,
	}

	if input.OriginRequestID != nil {
		origin, err := c.requests.GetByIDForUpdate(ctx, *input.OriginRequestID)
		if err != nil {
			return nil, err
		}
		exists, err := c.pickups.ExistsForOrigin(ctx, origin.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.Wrapf(ErrDuplicateOrigin, "request %s already has a pickup event", origin.Reference)
		}
		pickup.RequesterID = origin.RequesterID
		if pickup.Phone == "" {
			pickup.Phone = origin.Phone
		}
		if origin.Status == models.RequestStatusApproved {
			origin.Status = models.RequestStatusInProgress
			if err := c.requests.Update(ctx, origin); err != nil {
				return nil, err
			}
		}
	}

	ref, err := c.allocator.Allocate(ctx, reference.EntityPickup, reference.PrefixPickup)
	if err != nil {
		return nil, err
	}
	pickup.Reference = ref

	if err := c.pickups.Create(ctx, pickup); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("pickup", "create", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": pickup.Reference,
	}).Info("pickup event scheduled")
	if pickup.HaulerID != nil {
		c.emitter.PickupAssigned(ctx, pickup)
	}
	return pickup, nil
}

// AssignHauler assigns a hauler to a non-terminal pickup. Haulers self-assign;
// dispatchers may assign anyone.
func (c *Coordinator) AssignHauler(ctx context.Context, principal repositories.Principal, eventID int64, haulerID uuid.UUID) (*models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.AssignHauler")
	defer span.End()
	start := c.now()

	if !CanAssignHauler(principal, haulerID) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot assign hauler %s", principal.Role, haulerID)
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	pickup, err := c.pickups.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if pickup.IsTerminal() {
		return nil, errors.Wrapf(ErrInvalidTransition, "pickup %s is %s, haulers can only be assigned before completion", pickup.Reference, pickup.Status)
	}

	pickup.HaulerID = &haulerID
	if err := c.pickups.Update(ctx, pickup); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("pickup", "assign_hauler", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": pickup.Reference,
		"hauler_id": haulerID,
	}).Info("hauler assigned to pickup")
	c.emitter.PickupAssigned(ctx, pickup)
	return pickup, nil
}

// MaterialLine describes one material collected during a pickup, declared by
// the hauler at completion time.
type MaterialLine struct {
	MaterialType string
	Category     string
	Description  *string
	QuantityKg   float64
	BeforePhoto  *string
}

// AdvancePickup moves a pickup through its status machine. Completion is
// idempotent: re-completing an already completed event succeeds without
// materializing a second set of items. On first completion one MaterialItem is
// created per declared line, or a single item derived from the origin request
// when no lines are declared, all in the same transaction as the status write.
func (c *Coordinator) AdvancePickup(ctx context.Context, principal repositories.Principal, eventID int64, newStatus string, lines []MaterialLine) (*models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.AdvancePickup")
	defer span.End()
	start := c.now()

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent transitions on the same event.
	pickup, err := c.pickups.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !CanAdvancePickup(principal, pickup) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot advance pickup %s", principal.Role, pickup.Reference)
	}

	if newStatus == models.PickupStatusCompleted && pickup.Status == models.PickupStatusCompleted {
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		metrics.RecordTransition("pickup", "complete", "idempotent", time.Since(start).Seconds())
		return pickup, nil
	}

	if !PickupCanTransition(pickup.Status, newStatus) {
		return nil, errors.Wrapf(ErrInvalidTransition, "pickup %s cannot go from %s to %s", pickup.Reference, pickup.Status, newStatus)
	}

	var items []*models.MaterialItem
	pickup.Status = newStatus
	if newStatus == models.PickupStatusCompleted {
		now := c.now().UTC()
		pickup.CompletedAt = &now

		items, err = c.materializeItems(ctx, pickup, lines)
		if err != nil {
			return nil, err
		}

		if pickup.OriginRequestID != nil {
			if err := c.completeOriginRequest(ctx, *pickup.OriginRequestID); err != nil {
				return nil, err
			}
		}
	}

	if err := c.pickups.Update(ctx, pickup); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("pickup", "advance", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": pickup.Reference,
		"status":    pickup.Status,
	}).Info("pickup event advanced")
	if newStatus == models.PickupStatusCompleted {
		c.emitter.PickupCompleted(ctx, pickup)
		if len(items) > 0 {
			c.emitter.MaterialsReady(ctx, pickup, items)
		}
	}
	return pickup, nil
}

// materializeItems creates the material items for a first-time completion.
// The existence check makes repeat completions that raced past the status
// check a no-op.
func (c *Coordinator) materializeItems(ctx context.Context, pickup *models.PickupEvent, lines []MaterialLine) ([]*models.MaterialItem, error) {
	exists, err := c.materials.ExistsForPickup(ctx, pickup.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	if len(lines) == 0 {
		line := MaterialLine{
			MaterialType: "mixed",
			Category:     models.CategoryOther,
			QuantityKg:   DefaultQuantityKg,
		}
		if pickup.OriginRequestID != nil {
			origin, err := c.requests.GetByID(ctx, *pickup.OriginRequestID)
			if err != nil {
				return nil, err
			}
			line.MaterialType = origin.Category
			line.Category = origin.Category
			line.QuantityKg = QuantityForBand(origin.QuantityBand)
			if origin.Description != "" {
				desc := origin.Description
				line.Description = &desc
			}
		}
		lines = []MaterialLine{line}
	}

	items := make([]*models.MaterialItem, 0, len(lines))
	for _, line := range lines {
		if line.QuantityKg <= 0 {
			return nil, errors.Wrapf(ErrValidation, "material quantity must be positive, got %v", line.QuantityKg)
		}
		items = append(items, &models.MaterialItem{
			PickupEventID:     pickup.ID,
			MaterialType:      line.MaterialType,
			Category:          line.Category,
			Description:       line.Description,
			Quantity:          line.QuantityKg,
			CollectedQuantity: line.QuantityKg,
			State:             models.MaterialStateCollected,
			BeforePhoto:       line.BeforePhoto,
		})
	}

	if err := c.materials.CreateBatch(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Coordinator) completeOriginRequest(ctx context.Context, requestID int64) error {
	origin, err := c.requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return err
	}
	if !RequestCanTransition(origin.Status, models.RequestStatusCompleted) {
		// Already completed or never advanced; the pickup outcome stands on
		// its own.
		return nil
	}
	origin.Status = models.RequestStatusCompleted
	return c.requests.Update(ctx, origin)
}

// AssignProcessor moves a COLLECTED item into sorting under an exclusive
// processor assignment.
func (c *Coordinator) AssignProcessor(ctx context.Context, principal repositories.Principal, itemID int64, processorID uuid.UUID) (*models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.AssignProcessor")
	defer span.End()
	start := c.now()

	if !CanAssignProcessor(principal, processorID) {
		return nil, errors.Wrapf(ErrPermissionDenied, "role %s cannot assign processor %s", principal.Role, processorID)
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := c.materials.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.State != models.MaterialStateCollected {
		return nil, errors.Wrapf(ErrInvalidTransition, "material item %d is %s, only COLLECTED items can enter sorting", item.ID, item.State)
	}

	item.State = models.MaterialStateSorting
	item.ProcessorID = &processorID
	c.appendAuditNote(item, processorID, "assigned", fmt.Sprintf("processor assigned, sorting started by %s", principal.Role))

	if err := c.materials.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("material", "assign_processor", "ok", time.Since(start).Seconds())
	return item, nil
}

// DispositionInput carries the outcome of sorting a material item.
type DispositionInput struct {
	Disposition   string
	FinalQuantity float64
	Method        string
	YieldPct      *float64
	Notes         string
	AfterPhoto    *string
}

// FinalizeDisposition records the sorting outcome of an item in TRI. Only the
// assigned processor may call it. The final quantity becomes the quantity of
// record and must not exceed the collected quantity.
func (c *Coordinator) FinalizeDisposition(ctx context.Context, principal repositories.Principal, itemID int64, input DispositionInput) (*models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.FinalizeDisposition")
	defer span.End()
	start := c.now()

	if input.Disposition != models.MaterialStateRecyclable && input.Disposition != models.MaterialStateToDestroy {
		return nil, errors.Wrapf(ErrValidation, "disposition must be RECYCLABLE or TO_DESTROY, got %q", input.Disposition)
	}

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := c.materials.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := c.requireAssignedProcessor(principal, item); err != nil {
		return nil, err
	}
	if item.State != models.MaterialStateSorting {
		return nil, errors.Wrapf(ErrInvalidTransition, "material item %d is %s, disposition is only decided from TRI", item.ID, item.State)
	}
	if input.FinalQuantity <= 0 || input.FinalQuantity > item.CollectedQuantity {
		return nil, errors.Wrapf(ErrValidation, "final quantity %.2f must be positive and at most the collected %.2f kg", input.FinalQuantity, item.CollectedQuantity)
	}

	now := c.now().UTC()
	item.State = input.Disposition
	item.Quantity = input.FinalQuantity
	item.Method = &input.Method
	item.YieldPct = input.YieldPct
	item.AfterPhoto = input.AfterPhoto
	item.ProcessedAt = &now
	c.appendAuditNote(item, principal.UserID, "disposition",
		fmt.Sprintf("%s: %.2f of %.2f kg via %s. %s", input.Disposition, input.FinalQuantity, item.CollectedQuantity, input.Method, input.Notes))

	if err := c.materials.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("material", "finalize", "ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"item_id": item.ID,
		"state":   item.State,
	}).Info("material disposition finalized")
	return item, nil
}

// AdvanceMaterialTerminal flips a dispositioned item to its terminal state,
// RECYCLABLE to RECYCLED or TO_DESTROY to DESTROYED. Same processor only.
func (c *Coordinator) AdvanceMaterialTerminal(ctx context.Context, principal repositories.Principal, itemID int64) (*models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "Coordinator.AdvanceMaterialTerminal")
	defer span.End()
	start := c.now()

	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	item, err := c.materials.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := c.requireAssignedProcessor(principal, item); err != nil {
		return nil, err
	}

	terminal := TerminalStateFor(item.State)
	if terminal == "" || !MaterialCanTransition(item.State, terminal) {
		return nil, errors.Wrapf(ErrInvalidTransition, "material item %d is %s and has no terminal successor", item.ID, item.State)
	}

	now := c.now().UTC()
	item.State = terminal
	item.ProcessedAt = &now
	c.appendAuditNote(item, principal.UserID, "terminal", fmt.Sprintf("state advanced to %s", terminal))

	if err := c.materials.Update(ctx, item); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.RecordTransition("material", "terminal", "ok", time.Since(start).Seconds())
	return item, nil
}

func (c *Coordinator) requireAssignedProcessor(principal repositories.Principal, item *models.MaterialItem) error {
	if principal.Role != models.RoleProcessor {
		return errors.Wrapf(ErrPermissionDenied, "role %s cannot process material items", principal.Role)
	}
	if item.ProcessorID == nil || *item.ProcessorID != principal.UserID {
		return errors.Wrapf(ErrPermissionDenied, "material item %d is assigned to another processor", item.ID)
	}
	return nil
}

func (c *Coordinator) appendAuditNote(item *models.MaterialItem, actor uuid.UUID, action, detail string) {
	item.AuditNotes.Data = append(item.AuditNotes.Data, models.AuditNote{
		At:          c.now().UTC(),
		ProcessorID: actor,
		Action:      action,
		Detail:      detail,
	})
}
