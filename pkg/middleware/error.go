package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/reference"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// Machine-readable codes in the error response meta.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeDuplicateOrigin     = "DUPLICATE_ORIGIN"
	CodeNotFound            = "NOT_FOUND"
	CodeReferenceAllocation = "REFERENCE_ALLOCATION_FAILED"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// lifecycleStatus maps the lifecycle error taxonomy onto HTTP statuses and
// machine codes. The bool is false for errors outside the taxonomy.
func lifecycleStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest, CodeValidation, true
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition, true
	case errors.Is(err, lifecycle.ErrPermissionDenied):
		return http.StatusForbidden, CodePermissionDenied, true
	case errors.Is(err, lifecycle.ErrDuplicateOrigin):
		return http.StatusConflict, CodeDuplicateOrigin, true
	case errors.Is(err, reference.ErrAllocationFailed):
		return http.StatusInternalServerError, CodeReferenceAllocation, true
	}
	return 0, "", false
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		// Check if the response is already committed
		if c.Response().Committed {
			return
		}

		// Default response
		code := http.StatusInternalServerError
		message := "Internal Server Error"
		meta := map[string]any{}

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if httperror.IsHTTPError(err) {
			httperr := httperror.ToHTTPError(err)
			code = httperror.GetStatusCode(err)
			message = httperr.Error()
			if httperr.Meta != nil {
				meta = httperr.Meta
			}
			if code == http.StatusNotFound {
				meta["code"] = CodeNotFound
			}
		}

		if status, machineCode, ok := lifecycleStatus(err); ok {
			code = status
			message = err.Error()
			meta["code"] = machineCode
		}

		requestID := appcontext.GetRequestID(ctx)
		traceID := tracing.GetTraceID(ctx)

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: requestID,
			TraceID:   traceID,
			Meta:      meta,
		})
	}
}
