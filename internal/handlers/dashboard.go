package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// DashboardHandler serves aggregate counts for the operator dashboard
type DashboardHandler struct {
	requests  repositories.RequestStore
	pickups   repositories.PickupStore
	materials repositories.MaterialStore
	logger    ectologger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	requests repositories.RequestStore,
	pickups repositories.PickupStore,
	materials repositories.MaterialStore,
	logger ectologger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		requests:  requests,
		pickups:   pickups,
		materials: materials,
		logger:    logger,
	}
}

// StatsResponse groups entity counts by status
type StatsResponse struct {
	RequestsByStatus map[string]int `json:"requests_by_status"`
	PickupsByStatus  map[string]int `json:"pickups_by_status"`
	MaterialsByState map[string]int `json:"materials_by_state"`
}

// Register registers dashboard routes
func (h *DashboardHandler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)
}

// Stats returns counts of requests, pickups and materials grouped by status
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DashboardHandler.Stats")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	if _, err := CallerPrincipal(c); err != nil {
		return err
	}

	requestCounts, err := h.requests.CountByStatus(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count requests by status")
		return err
	}

	pickupCounts, err := h.pickups.CountByStatus(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count pickups by status")
		return err
	}

	materialCounts, err := h.materials.CountByState(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count materials by state")
		return err
	}

	return SuccessResponse(c, StatsResponse{
		RequestsByStatus: requestCounts,
		PickupsByStatus:  pickupCounts,
		MaterialsByState: materialCounts,
	})
}
