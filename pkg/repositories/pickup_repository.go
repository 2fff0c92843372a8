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

const pickupsTable = "pickup_events"

const pickupColumns = `
	id, reference, requester_id, origin_request_id, scheduled_date, time_window,
	mode, address, phone, hauler_id, status, completed_at, created_at, updated_at`

// PickupRepository handles database operations for pickup events
type PickupRepository struct {
	*Repository
}

// NewPickupRepository creates a new pickup event repository
func NewPickupRepository(db database.DB, logger ectologger.Logger) *PickupRepository {
	return &PickupRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a new pickup event, joining the caller's transaction
func (r *PickupRepository) Create(ctx context.Context, pickup *models.PickupEvent) error {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.Create")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(pickupsTable).
		Cols(
			"reference", "requester_id", "origin_request_id", "scheduled_date", "time_window",
			"mode", "address", "phone", "hauler_id", "status", "created_at", "updated_at",
		).
		Values(
			pickup.Reference, pickup.RequesterID, pickup.OriginRequestID, pickup.ScheduledDate,
			pickup.TimeWindow, pickup.Mode, pickup.Address, pickup.Phone, pickup.HaulerID,
			pickup.Status, now, now,
		)
	ib.SQL("RETURNING id, created_at, updated_at")

	query, args := ib.Build()
	err = tx.QueryRowContext(ctx, query, args...).Scan(&pickup.ID, &pickup.CreatedAt, &pickup.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reference": pickup.Reference,
		}).Error("failed to create pickup event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create pickup event")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": pickup.Reference,
	}).Debugf("Created %s", pickupsTable)
	return nil
}

// GetByID retrieves a pickup event by id
func (r *PickupRepository) GetByID(ctx context.Context, id int64) (*models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.GetByID")
	defer span.End()

	query := `SELECT ` + pickupColumns + ` FROM pickup_events WHERE id = $1`

	var pickup models.PickupEvent
	err := r.DB().GetContext(ctx, &pickup, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("pickup event %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pickup_id": id,
		}).Error("failed to get pickup event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pickup event")
	}
	return &pickup, nil
}

// GetByIDForUpdate retrieves a pickup event and takes a row-level write lock.
// Two concurrent transitions on the same event serialize here.
func (r *PickupRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.GetByIDForUpdate")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + pickupColumns + ` FROM pickup_events WHERE id = $1 FOR UPDATE`

	var pickup models.PickupEvent
	err = tx.GetContext(ctx, &pickup, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("pickup event %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pickup_id": id,
		}).Error("failed to lock pickup event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock pickup event")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return &pickup, nil
}

// Update writes the transition-mutable fields of a pickup event
func (r *PickupRepository) Update(ctx context.Context, pickup *models.PickupEvent) error {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.Update")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(pickupsTable).
		Set(
			ub.Assign("status", pickup.Status),
			ub.Assign("hauler_id", pickup.HaulerID),
			ub.Assign("scheduled_date", pickup.ScheduledDate),
			ub.Assign("completed_at", pickup.CompletedAt),
			ub.Assign("updated_at", now),
		).
		Where(ub.Equal("id", pickup.ID))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pickup_id": pickup.ID,
		}).Error("failed to update pickup event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update pickup event")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("pickup event %d does not exist", pickup.ID)
	}
	pickup.UpdatedAt = now

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// ListForPrincipal retrieves the pickups visible to the caller: requesters see
// their own, haulers see their assignments plus unassigned planned pickups,
// everyone else sees all.
func (r *PickupRepository) ListForPrincipal(ctx context.Context, principal Principal) ([]models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.ListForPrincipal")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(pickupColumns).From(pickupsTable)
	switch principal.Role {
	case models.RoleRequester:
		sb.Where(sb.Equal("requester_id", principal.UserID))
	case models.RoleHauler:
		sb.Where(sb.Or(
			sb.Equal("hauler_id", principal.UserID),
			sb.And(sb.IsNull("hauler_id"), sb.Equal("status", models.PickupStatusPlanned)),
		))
	}
	sb.OrderBy("scheduled_date ASC")

	query, args := sb.Build()
	var pickups []models.PickupEvent
	err := r.DB().SelectContext(ctx, &pickups, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list pickup events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pickup events")
	}
	return pickups, nil
}

// CountCreatedOn counts pickups created on the given UTC day, inside the
// caller's transaction
func (r *PickupRepository) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.CountCreatedOn")
	defer span.End()

	return countCreatedOn(ctx, r.Repository, pickupsTable, day)
}

// ReferenceExists reports whether a reference is already claimed, inside the
// caller's transaction
func (r *PickupRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.ReferenceExists")
	defer span.End()

	return referenceExists(ctx, r.Repository, pickupsTable, reference)
}

// ExistsForOrigin reports whether any pickup event already references the
// origin request. Joins the caller's transaction so the origin invariant check
// and the subsequent insert cannot interleave with another approval.
func (r *PickupRepository) ExistsForOrigin(ctx context.Context, originRequestID int64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.ExistsForOrigin")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM pickup_events WHERE origin_request_id = $1)`
	if err := tx.GetContext(ctx, &exists, query, originRequestID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"origin_request_id": originRequestID,
		}).Error("failed to check pickup origin")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check pickup origin")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return exists, nil
}

// ListOverduePlanned retrieves planned pickups whose scheduled date has passed
func (r *PickupRepository) ListOverduePlanned(ctx context.Context, before time.Time) ([]models.PickupEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.ListOverduePlanned")
	defer span.End()

	query := `SELECT ` + pickupColumns + ` FROM pickup_events
		WHERE status = $1 AND scheduled_date < $2
		ORDER BY scheduled_date ASC`

	var pickups []models.PickupEvent
	err := r.DB().SelectContext(ctx, &pickups, query, models.PickupStatusPlanned, before)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list overdue pickups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list overdue pickups")
	}
	return pickups, nil
}

// CountByStatus returns dashboard counts keyed by status
func (r *PickupRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "PickupRepository.CountByStatus")
	defer span.End()

	return countGrouped(ctx, r.Repository, pickupsTable, "status")
}
