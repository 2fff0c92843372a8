package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

type UserClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// roleClaim returns the first realm role that maps onto a known role.
func roleClaim(claims UserClaims) (models.Role, bool) {
	for _, raw := range claims.RealmAccess.Roles {
		if role, ok := models.ParseRole(raw); ok {
			return role, true
		}
	}
	return "", false
}

// Authentication verifies the bearer token against the OIDC issuer and sets
// the subject and role claim on the request context.
func Authentication(logger ectologger.Logger, issuer string, clientID string) echo.MiddlewareFunc {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		log.Fatalf("oidc provider: %v", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx, span := tracing.StartSpan(ctx, "middleware.Authentication")
			defer span.End()

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				logger.WithContext(ctx).Warn("request is missing bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer")
			}

			raw := strings.TrimPrefix(auth, "Bearer ")
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			idToken, err := verifier.Verify(ctx, raw)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token is invalid")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			var claims UserClaims
			if err := idToken.Claims(&claims); err != nil {
				logger.WithContext(ctx).WithError(err).Warn("failed to parse claims")
				return echo.NewHTTPError(http.StatusUnauthorized, "cannot parse claims")
			}

			role, ok := roleClaim(claims)
			if !ok {
				logger.WithContext(ctx).Warnf("token for %s carries no recognized role", claims.Sub)
				return echo.NewHTTPError(http.StatusForbidden, "no recognized role")
			}

			ctx = appcontext.SetUserID(ctx, claims.Sub)
			ctx = appcontext.SetUserRole(ctx, role.String())

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
