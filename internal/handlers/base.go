package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/repositories"
)

var validate = validator.New()

// ParseID parses a numeric ID from a path parameter
func ParseID(c echo.Context, param string) (int64, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a positive integer", param)
	}

	return id, nil
}

// CallerPrincipal extracts the authenticated caller from the request context
func CallerPrincipal(c echo.Context) (repositories.Principal, error) {
	return repositories.GetPrincipal(c.Request().Context())
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContentResponse returns a 204 No Content
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// Unauthorized returns a 401 Unauthorized error
func Unauthorized(message string) error {
	return httperror.NewHTTPError(http.StatusUnauthorized, message)
}
