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

const requestsTable = "collection_requests"

const requestColumns = `
	id, reference, requester_id, category, description, quantity_band, mode,
	desired_date, time_window, address, phone, instructions, photos, status,
	rejection_reason, dropoff_details, processed_by, processed_at,
	created_at, updated_at`

// RequestRepository handles database operations for collection requests
type RequestRepository struct {
	*Repository
}

// NewRequestRepository creates a new collection request repository
func NewRequestRepository(db database.DB, logger ectologger.Logger) *RequestRepository {
	return &RequestRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a new request. It joins the caller's transaction so the
// reference claimed by the allocator is written in the same transaction scope
// as its existence check.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.Create")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(requestsTable).
		Cols(
			"reference", "requester_id", "category", "description", "quantity_band", "mode",
			"desired_date", "time_window", "address", "phone", "instructions", "photos",
			"status", "created_at", "updated_at",
		).
		Values(
			request.Reference, request.RequesterID, request.Category, request.Description,
			request.QuantityBand, request.Mode, request.DesiredDate, request.TimeWindow,
			request.Address, request.Phone, request.Instructions, request.Photos,
			request.Status, now, now,
		)
	ib.SQL("RETURNING id, created_at, updated_at")

	query, args := ib.Build()
	err = tx.QueryRowContext(ctx, query, args...).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reference": request.Reference,
		}).Error("failed to create collection request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create collection request")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reference": request.Reference,
	}).Debugf("Created %s", requestsTable)
	return nil
}

// GetByID retrieves a request by id
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.GetByID")
	defer span.End()

	query := `SELECT ` + requestColumns + ` FROM collection_requests WHERE id = $1`

	var request models.Request
	err := r.DB().GetContext(ctx, &request, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("collection request %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": id,
		}).Error("failed to get collection request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get collection request")
	}
	return &request, nil
}

// GetByIDForUpdate retrieves a request by id and takes a row-level write lock.
// Must run inside the caller's transaction.
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.GetByIDForUpdate")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + requestColumns + ` FROM collection_requests WHERE id = $1 FOR UPDATE`

	var request models.Request
	err = tx.GetContext(ctx, &request, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("collection request %d does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": id,
		}).Error("failed to lock collection request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock collection request")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return &request, nil
}

// Update writes the transition-mutable fields of a request
func (r *RequestRepository) Update(ctx context.Context, request *models.Request) error {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.Update")
	defer span.End()

	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(requestsTable).
		Set(
			ub.Assign("status", request.Status),
			ub.Assign("rejection_reason", request.RejectionReason),
			ub.Assign("dropoff_details", request.DropoffDetails),
			ub.Assign("processed_by", request.ProcessedBy),
			ub.Assign("processed_at", request.ProcessedAt),
			ub.Assign("updated_at", now),
		).
		Where(ub.Equal("id", request.ID))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": request.ID,
		}).Error("failed to update collection request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update collection request")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("collection request %d does not exist", request.ID)
	}
	request.UpdatedAt = now

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// ListForPrincipal retrieves the requests visible to the caller: requesters
// see their own, haulers see validated requests, everyone else sees all.
func (r *RequestRepository) ListForPrincipal(ctx context.Context, principal Principal) ([]models.Request, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.ListForPrincipal")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns).From(requestsTable)
	switch principal.Role {
	case models.RoleRequester:
		sb.Where(sb.Equal("requester_id", principal.UserID))
	case models.RoleHauler:
		sb.Where(sb.In("status", models.RequestStatusApproved, models.RequestStatusInProgress, models.RequestStatusCompleted))
	}
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var requests []models.Request
	err := r.DB().SelectContext(ctx, &requests, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list collection requests")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list collection requests")
	}
	return requests, nil
}

// CountCreatedOn counts requests created on the given UTC day. Joins the
// caller's transaction so the allocator's heuristic and its existence check
// observe the same snapshot.
func (r *RequestRepository) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.CountCreatedOn")
	defer span.End()

	return countCreatedOn(ctx, r.Repository, requestsTable, day)
}

// ReferenceExists reports whether a reference is already claimed. Joins the
// caller's transaction.
func (r *RequestRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.ReferenceExists")
	defer span.End()

	return referenceExists(ctx, r.Repository, requestsTable, reference)
}

// CountByStatus returns dashboard counts keyed by status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "RequestRepository.CountByStatus")
	defer span.End()

	return countGrouped(ctx, r.Repository, requestsTable, "status")
}
