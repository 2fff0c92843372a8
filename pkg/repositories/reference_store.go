package repositories

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/ecotrace/collect-api/pkg/reference"
)

// ReferenceStore adapts the request and pickup repositories onto the
// allocator's store interface, dispatching by entity type.
type ReferenceStore struct {
	requests RequestStore
	pickups  PickupStore
}

// NewReferenceStore creates a reference store over both entity repositories
func NewReferenceStore(requests RequestStore, pickups PickupStore) *ReferenceStore {
	return &ReferenceStore{
		requests: requests,
		pickups:  pickups,
	}
}

func (s *ReferenceStore) CountCreatedOn(ctx context.Context, entityType string, day time.Time) (int, error) {
	switch entityType {
	case reference.EntityRequest:
		return s.requests.CountCreatedOn(ctx, day)
	case reference.EntityPickup:
		return s.pickups.CountCreatedOn(ctx, day)
	}
	return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "unknown entity type %q", entityType)
}

func (s *ReferenceStore) ReferenceExists(ctx context.Context, entityType string, ref string) (bool, error) {
	switch entityType {
	case reference.EntityRequest:
		return s.requests.ReferenceExists(ctx, ref)
	case reference.EntityPickup:
		return s.pickups.ReferenceExists(ctx, ref)
	}
	return false, httperror.NewHTTPErrorf(http.StatusInternalServerError, "unknown entity type %q", entityType)
}
