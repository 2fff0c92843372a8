// Package middleware provides the echo middleware stack for the collect API.
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/appcontext"
)

const (
	// HeaderUserID is the header key for user ID
	HeaderUserID = "X-User-ID"
	// HeaderUserRole is the header key for the role claim
	HeaderUserRole = "X-User-Role"
)

// Context seeds the request context with identity and request metadata. The
// identity headers are trusted only when OIDC verification is disabled; with
// auth enabled the Authentication middleware overwrites them from the token.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			// get request id from header
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			userID := req.Header.Get(HeaderUserID)
			userRole := req.Header.Get(HeaderUserRole)

			ctx := req.Context()
			ctx = appcontext.SetRequestID(ctx, requestID)
			ctx = appcontext.SetMethod(ctx, req.Method)
			ctx = appcontext.SetRoute(ctx, req.URL.Path)
			ctx = appcontext.SetRemoteIP(ctx, c.RealIP())
			ctx = appcontext.SetUserID(ctx, userID)
			ctx = appcontext.SetUserRole(ctx, userRole)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
