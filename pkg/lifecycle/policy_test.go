package lifecycle_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
)

func principal(role models.Role) repositories.Principal {
	return repositories.Principal{UserID: uuid.New(), Role: role}
}

func TestPickupTransitions(t *testing.T) {
	legal := [][2]string{
		{models.PickupStatusPlanned, models.PickupStatusInProgress},
		{models.PickupStatusPlanned, models.PickupStatusCancelled},
		{models.PickupStatusInProgress, models.PickupStatusCompleted},
		{models.PickupStatusInProgress, models.PickupStatusCancelled},
	}
	for _, pair := range legal {
		assert.True(t, lifecycle.PickupCanTransition(pair[0], pair[1]), "%s -> %s should be legal", pair[0], pair[1])
	}

	illegal := [][2]string{
		{models.PickupStatusPlanned, models.PickupStatusCompleted},
		{models.PickupStatusCompleted, models.PickupStatusInProgress},
		{models.PickupStatusCancelled, models.PickupStatusPlanned},
		{models.PickupStatusCompleted, models.PickupStatusCompleted},
	}
	for _, pair := range illegal {
		assert.False(t, lifecycle.PickupCanTransition(pair[0], pair[1]), "%s -> %s should be illegal", pair[0], pair[1])
	}
}

func TestMaterialTransitions(t *testing.T) {
	assert.True(t, lifecycle.MaterialCanTransition(models.MaterialStateCollected, models.MaterialStateSorting))
	assert.True(t, lifecycle.MaterialCanTransition(models.MaterialStateSorting, models.MaterialStateRecyclable))
	assert.True(t, lifecycle.MaterialCanTransition(models.MaterialStateSorting, models.MaterialStateToDestroy))
	assert.True(t, lifecycle.MaterialCanTransition(models.MaterialStateRecyclable, models.MaterialStateRecycled))
	assert.True(t, lifecycle.MaterialCanTransition(models.MaterialStateToDestroy, models.MaterialStateDestroyed))

	assert.False(t, lifecycle.MaterialCanTransition(models.MaterialStateCollected, models.MaterialStateRecyclable))
	assert.False(t, lifecycle.MaterialCanTransition(models.MaterialStateRecyclable, models.MaterialStateDestroyed))
	assert.False(t, lifecycle.MaterialCanTransition(models.MaterialStateRecycled, models.MaterialStateSorting))
}

func TestCanAssignHauler(t *testing.T) {
	hauler := principal(models.RoleHauler)
	assert.True(t, lifecycle.CanAssignHauler(hauler, hauler.UserID), "haulers may self-assign")
	assert.False(t, lifecycle.CanAssignHauler(hauler, uuid.New()), "haulers may not assign others")
	assert.True(t, lifecycle.CanAssignHauler(principal(models.RoleDispatcher), uuid.New()))
	assert.False(t, lifecycle.CanAssignHauler(principal(models.RoleRequester), uuid.New()))
}

func TestCanAdvancePickup(t *testing.T) {
	hauler := principal(models.RoleHauler)
	assigned := &models.PickupEvent{HaulerID: &hauler.UserID, Status: models.PickupStatusPlanned}
	unassigned := &models.PickupEvent{Status: models.PickupStatusPlanned}

	assert.True(t, lifecycle.CanAdvancePickup(hauler, assigned))
	assert.False(t, lifecycle.CanAdvancePickup(hauler, unassigned))
	assert.True(t, lifecycle.CanAdvancePickup(principal(models.RoleDispatcher), unassigned))
	assert.True(t, lifecycle.CanAdvancePickup(principal(models.RoleApprover), unassigned))
	assert.False(t, lifecycle.CanAdvancePickup(principal(models.RoleRequester), assigned))
}

func TestValidPhone(t *testing.T) {
	valid := []string{
		"0612345678",
		"06 12 34 56 78",
		"06.12.34.56.78",
		"06-12-34-56-78",
		"+33612345678",
		"+33 6 12 34 56 78",
		"0033612345678",
	}
	for _, phone := range valid {
		assert.True(t, lifecycle.ValidPhone(phone), "%q should be valid", phone)
	}

	invalid := []string{
		"",
		"12345",
		"0012345678",
		"0012 345 678",
		"abcdefghij",
		"061234567",
		"06123456789",
		"+44612345678",
	}
	for _, phone := range invalid {
		assert.False(t, lifecycle.ValidPhone(phone), "%q should be invalid", phone)
	}
}
