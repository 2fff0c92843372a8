package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

const materialsTable = "material_items"

const materialColumns = `
	id, pickup_event_id, material_type, category, description, quantity,
	collected_quantity, state, processor_id, method, yield_pct, before_photo,
	after_photo, audit_notes, processed_at, created_at, updated_at`

// MaterialRepository handles database operations for material items
type MaterialRepository struct {
	*Repository
}

// NewMaterialRepository creates a new material item repository
func NewMaterialRepository(db database.DB, logger ectologger.Logger) *MaterialRepository {
	return &MaterialRepository{
		Repository: NewRepository(db, logger),
	}
}

// CreateBatch inserts material items in one statement, joining the caller's
// transaction so materialization commits together with the pickup status write
func (r *MaterialRepository) CreateBatch(ctx context.Context, items []*models.MaterialItem) error {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.CreateBatch")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(materialsTable).
		Cols(
			"pickup_event_id", "material_type", "category", "description", "quantity",
			"collected_quantity", "state", "before_photo", "audit_notes", "created_at", "updated_at",
		)
	for _, item := range items {
		ib.Values(
			item.PickupEventID, item.MaterialType, item.Category, item.Description,
			item.Quantity, item.CollectedQuantity, item.State, item.BeforePhoto,
			item.AuditNotes, now, now,
		)
	}
	ib.SQL("RETURNING id")

	query, args := ib.Build()
	ids := []int64{}
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pickup_event_id": items[0].PickupEventID,
			"count":           len(items),
		}).Error("failed to create material items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create material items")
	}
	for i, id := range ids {
		if i < len(items) {
			items[i].ID = id
			items[i].CreatedAt = now
			items[i].UpdatedAt = now
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"pickup_event_id": items[0].PickupEventID,
		"count":           len(items),
	}).Debugf("Created %s batch", materialsTable)
	return nil
}

// GetByID retrieves a material item by id
func (r *MaterialRepository) GetByID(ctx context.Context, id int64) (*models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.GetByID")
	defer span.End()

	query := `SELECT ` + materialColumns + ` FROM material_items WHERE id = $1`

	var item models.MaterialItem
	err := r.DB().GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("material item %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id": id,
		}).Error("failed to get material item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get material item")
	}
	return &item, nil
}

// GetByIDForUpdate retrieves a material item and takes a row-level write lock
func (r *MaterialRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.GetByIDForUpdate")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + materialColumns + ` FROM material_items WHERE id = $1 FOR UPDATE`

	var item models.MaterialItem
	err = tx.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("material item %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id": id,
		}).Error("failed to lock material item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock material item")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return &item, nil
}

// Update writes the processing-mutable fields of a material item
func (r *MaterialRepository) Update(ctx context.Context, item *models.MaterialItem) error {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.Update")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(materialsTable).
		Set(
			ub.Assign("state", item.State),
			ub.Assign("quantity", item.Quantity),
			ub.Assign("processor_id", item.ProcessorID),
			ub.Assign("method", item.Method),
			ub.Assign("yield_pct", item.YieldPct),
			ub.Assign("after_photo", item.AfterPhoto),
			ub.Assign("audit_notes", item.AuditNotes),
			ub.Assign("processed_at", item.ProcessedAt),
			ub.Assign("updated_at", now),
		).
		Where(ub.Equal("id", item.ID))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id": item.ID,
		}).Error("failed to update material item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update material item")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("material item %d does not exist", item.ID)
	}
	item.UpdatedAt = now

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// ListForPrincipal retrieves the material items visible to the caller:
// requesters see items from their own pickups, everyone else sees all.
func (r *MaterialRepository) ListForPrincipal(ctx context.Context, principal Principal) ([]models.MaterialItem, error) {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.ListForPrincipal")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"m.id", "m.pickup_event_id", "m.material_type", "m.category", "m.description",
		"m.quantity", "m.collected_quantity", "m.state", "m.processor_id", "m.method",
		"m.yield_pct", "m.before_photo", "m.after_photo", "m.audit_notes",
		"m.processed_at", "m.created_at", "m.updated_at",
	).From(materialsTable + " m")
	if principal.Role == models.RoleRequester {
		sb.JoinWithOption(sqlbuilder.InnerJoin, pickupsTable+" p", "m.pickup_event_id = p.id")
		sb.Where(sb.Equal("p.requester_id", principal.UserID))
	}
	sb.OrderBy("m.created_at DESC")

	query, args := sb.Build()
	var items []models.MaterialItem
	err := r.DB().SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list material items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list material items")
	}
	return items, nil
}

// ExistsForPickup reports whether any material items were already materialized
// for the pickup. Joins the caller's transaction; this is the idempotency
// check behind repeat completions.
func (r *MaterialRepository) ExistsForPickup(ctx context.Context, pickupEventID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.ExistsForPickup")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM material_items WHERE pickup_event_id = $1)`
	if err := tx.GetContext(ctx, &exists, query, pickupEventID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pickup_event_id": pickupEventID,
		}).Error("failed to check material items for pickup")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check material items")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return exists, nil
}

// CountByState returns dashboard counts keyed by processing state
func (r *MaterialRepository) CountByState(ctx context.Context) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "MaterialRepository.CountByState")
	defer span.End()

	return countGrouped(ctx, r.Repository, materialsTable, "state")
}
