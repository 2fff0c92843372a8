package repositories

import (
	"context"
	"time"

	"github.com/ecotrace/collect-api/pkg/models"
)

// RequestStore defines operations for collection request persistence
type RequestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error)
	Update(ctx context.Context, request *models.Request) error
	ListForPrincipal(ctx context.Context, principal Principal) ([]models.Request, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// PickupStore defines operations for pickup event persistence
type PickupStore interface {
	Create(ctx context.Context, pickup *models.PickupEvent) error
	GetByID(ctx context.Context, id int64) (*models.PickupEvent, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.PickupEvent, error)
	Update(ctx context.Context, pickup *models.PickupEvent) error
	ListForPrincipal(ctx context.Context, principal Principal) ([]models.PickupEvent, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	ExistsForOrigin(ctx context.Context, originRequestID int64) (bool, error)
	ListOverduePlanned(ctx context.Context, before time.Time) ([]models.PickupEvent, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// MaterialStore defines operations for material item persistence
type MaterialStore interface {
	CreateBatch(ctx context.Context, items []*models.MaterialItem) error
	GetByID(ctx context.Context, id int64) (*models.MaterialItem, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.MaterialItem, error)
	Update(ctx context.Context, item *models.MaterialItem) error
	ListForPrincipal(ctx context.Context, principal Principal) ([]models.MaterialItem, error)
	ExistsForPickup(ctx context.Context, pickupEventID int64) (bool, error)
	CountByState(ctx context.Context) (map[string]int, error)
}
