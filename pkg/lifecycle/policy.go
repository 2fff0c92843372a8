package lifecycle

import (
	"github.com/google/uuid"

	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
)

// Authorization policy: allowed role sets per transition, evaluated by the
// coordinator before any mutation.

var approvalRoles = map[models.Role]bool{
	models.RoleApprover: true,
}

var pickupCreationRoles = map[models.Role]bool{
	models.RoleDispatcher: true,
}

var pickupAdvanceRoles = map[models.Role]bool{
	models.RoleDispatcher: true,
	models.RoleApprover:   true,
}

// CanApprove reports whether the principal may approve or reject requests.
func CanApprove(p repositories.Principal) bool {
	return approvalRoles[p.Role]
}

// CanCreatePickup reports whether the principal may create ad hoc pickups.
func CanCreatePickup(p repositories.Principal) bool {
	return pickupCreationRoles[p.Role]
}

// CanAssignHauler reports whether the principal may assign the given hauler:
// haulers may self-assign, dispatchers may assign anyone.
func CanAssignHauler(p repositories.Principal, haulerID uuid.UUID) bool {
	if p.Role == models.RoleHauler {
		return p.UserID == haulerID
	}
	return p.Role == models.RoleDispatcher
}

// CanAdvancePickup reports whether the principal may advance the pickup: the
// assigned hauler, or a dispatcher or approver.
func CanAdvancePickup(p repositories.Principal, pickup *models.PickupEvent) bool {
	if pickupAdvanceRoles[p.Role] {
		return true
	}
	return p.Role == models.RoleHauler && pickup.HaulerID != nil && *pickup.HaulerID == p.UserID
}

// CanAssignProcessor reports whether the principal may assign the given
// processor: processors may self-assign, dispatchers may assign anyone.
func CanAssignProcessor(p repositories.Principal, processorID uuid.UUID) bool {
	if p.Role == models.RoleProcessor {
		return p.UserID == processorID
	}
	return p.Role == models.RoleDispatcher
}

var requestTransitions = map[string][]string{
	models.RequestStatusSubmitted:  {models.RequestStatusApproved, models.RequestStatusRejected, models.RequestStatusInProgress},
	models.RequestStatusApproved:   {models.RequestStatusInProgress},
	models.RequestStatusInProgress: {models.RequestStatusCompleted},
}

var pickupTransitions = map[string][]string{
	models.PickupStatusPlanned:    {models.PickupStatusInProgress, models.PickupStatusCancelled},
	models.PickupStatusInProgress: {models.PickupStatusCompleted, models.PickupStatusCancelled},
}

var materialTransitions = map[string][]string{
	models.MaterialStateCollected:  {models.MaterialStateSorting},
	models.MaterialStateSorting:    {models.MaterialStateRecyclable, models.MaterialStateToDestroy},
	models.MaterialStateRecyclable: {models.MaterialStateRecycled},
	models.MaterialStateToDestroy:  {models.MaterialStateDestroyed},
}

func allows(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestCanTransition reports whether a request may move from one status to
// another.
func RequestCanTransition(from, to string) bool {
	return allows(requestTransitions, from, to)
}

// PickupCanTransition reports whether a pickup may move from one status to
// another.
func PickupCanTransition(from, to string) bool {
	return allows(pickupTransitions, from, to)
}

// MaterialCanTransition reports whether a material item may move from one
// state to another.
func MaterialCanTransition(from, to string) bool {
	return allows(materialTransitions, from, to)
}

// TerminalStateFor returns the terminal state matching a disposition, or ""
// for states with no terminal successor.
func TerminalStateFor(disposition string) string {
	switch disposition {
	case models.MaterialStateRecyclable:
		return models.MaterialStateRecycled
	case models.MaterialStateToDestroy:
		return models.MaterialStateDestroyed
	}
	return ""
}
