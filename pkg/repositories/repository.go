package repositories

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/ecotrace/collect-api/pkg/models"
)

// NotFound returns a 404 HTTP error with a descriptive message
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Unauthorized returns a 401 HTTP error
func Unauthorized(message string) error {
	return httperror.NewHTTPError(http.StatusUnauthorized, message)
}

// BadRequest returns a 400 HTTP error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// Repository provides common database plumbing for the entity repositories
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new base repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB returns the database instance
func (r *Repository) DB() database.DB {
	return r.db
}

// Principal is the authenticated caller extracted from the request context.
type Principal struct {
	UserID uuid.UUID
	Role   models.Role
}

// GetPrincipal extracts and validates the caller identity from context
func GetPrincipal(ctx context.Context) (Principal, error) {
	userIDStr := appcontext.GetUserID(ctx)
	if userIDStr == "" {
		return Principal{}, httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return Principal{}, httperror.NewHTTPError(http.StatusUnauthorized, "invalid authentication token")
	}

	role, ok := models.ParseRole(appcontext.GetUserRole(ctx))
	if !ok {
		return Principal{}, httperror.NewHTTPError(http.StatusUnauthorized, "unrecognized role claim")
	}

	return Principal{UserID: userID, Role: role}, nil
}

// countCreatedOn counts rows created on the given UTC day. Runs through GetTx
// so it observes the caller's open transaction.
func countCreatedOn(ctx context.Context, r *Repository, table string, day time.Time) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	var count int
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE created_at >= $1 AND created_at < $2`
	if err := tx.GetContext(ctx, &count, query, dayStart, dayStart.Add(24*time.Hour)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to count %s created today", table)
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count rows created today")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return count, nil
}

// referenceExists reports whether a reference is already claimed in the table.
// Runs through GetTx so check-then-claim shares one transaction scope.
func referenceExists(ctx context.Context, r *Repository, table string, reference string) (bool, error) {
	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE reference = $1)`
	if err := tx.GetContext(ctx, &exists, query, reference); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to check reference in %s", table)
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check reference")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return exists, nil
}

// countGrouped returns per-value row counts for a grouping column
func countGrouped(ctx context.Context, r *Repository, table string, column string) (map[string]int, error) {
	rows := []struct {
		Value string `db:"value"`
		Count int    `db:"count"`
	}{}

	query := `SELECT ` + column + ` AS value, COUNT(*) AS count FROM ` + table + ` GROUP BY ` + column
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to count %s by %s", table, column)
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute counts")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Value] = row.Count
	}
	return counts, nil
}
