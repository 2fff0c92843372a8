package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// PickupService covers the pickup event lifecycle operations
type PickupService interface {
	CreatePickup(ctx context.Context, principal repositories.Principal, input lifecycle.CreatePickupInput) (*models.PickupEvent, error)
	AssignHauler(ctx context.Context, principal repositories.Principal, eventID int64, haulerID uuid.UUID) (*models.PickupEvent, error)
	AdvancePickup(ctx context.Context, principal repositories.Principal, eventID int64, newStatus string, lines []lifecycle.MaterialLine) (*models.PickupEvent, error)
}

// PickupHandler handles pickup event API endpoints
type PickupHandler struct {
	service PickupService
	pickups repositories.PickupStore
	logger  ectologger.Logger
}

// NewPickupHandler creates a new pickup handler
func NewPickupHandler(service PickupService, pickups repositories.PickupStore, logger ectologger.Logger) *PickupHandler {
	return &PickupHandler{
		service: service,
		pickups: pickups,
		logger:  logger,
	}
}

// CreatePickupBody represents the create pickup request body
type CreatePickupBody struct {
	OriginRequestID *int64  `json:"origin_request_id,omitempty"`
	HaulerID        *string `json:"hauler_id,omitempty"`
	RequesterID     string  `json:"requester_id,omitempty"`
	ScheduledDate   string  `json:"scheduled_date" validate:"required"`
	TimeWindow      string  `json:"time_window" validate:"required"`
	Mode            string  `json:"mode" validate:"required,oneof=home dropoff"`
	Address         *string `json:"address,omitempty"`
	Phone           string  `json:"phone,omitempty"`
}

// AssignHaulerBody represents the assign hauler request body
type AssignHaulerBody struct {
	HaulerID string `json:"hauler_id" validate:"required,uuid"`
}

// MaterialLineBody is a declared material line on pickup completion
type MaterialLineBody struct {
	MaterialType string  `json:"material_type" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Description  *string `json:"description,omitempty"`
	QuantityKg   float64 `json:"quantity_kg" validate:"required,gt=0"`
	BeforePhoto  *string `json:"before_photo,omitempty"`
}

// AdvancePickupBody represents the advance status request body
type AdvancePickupBody struct {
	Status string             `json:"status" validate:"required"`
	Lines  []MaterialLineBody `json:"lines,omitempty" validate:"dive"`
}

// Register registers pickup event routes
func (h *PickupHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/hauler", h.AssignHauler)
	g.POST("/:id/status", h.AdvanceStatus)
}

// Create schedules a new pickup event
func (h *PickupHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PickupHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	var body CreatePickupBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest(err.Error())
	}

	scheduledDate, err := time.Parse("2006-01-02", body.ScheduledDate)
	if err != nil {
		return BadRequest("invalid scheduled_date: expected YYYY-MM-DD")
	}

	input := lifecycle.CreatePickupInput{
		OriginRequestID: body.OriginRequestID,
		ScheduledDate:   scheduledDate,
		TimeWindow:      body.TimeWindow,
		Mode:            body.Mode,
		Address:         body.Address,
		Phone:           body.Phone,
	}

	if body.HaulerID != nil {
		haulerID, err := uuid.Parse(*body.HaulerID)
		if err != nil {
			return BadRequest("invalid hauler_id")
		}
		input.HaulerID = &haulerID
	}

	// Standalone pickups need an explicit requester; origin-bound ones
	// inherit it from the request.
	if body.OriginRequestID == nil {
		requesterID, err := uuid.Parse(body.RequesterID)
		if err != nil {
			return BadRequest("requester_id is required without origin_request_id")
		}
		input.RequesterID = requesterID
	}

	pickup, err := h.service.CreatePickup(ctx, principal, input)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create pickup event")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created pickup event: %s", pickup.Reference)
	return CreatedResponse(c, pickup)
}

// List returns pickup events visible to the caller
func (h *PickupHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PickupHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	pickups, err := h.pickups.ListForPrincipal(ctx, principal)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list pickup events")
		return err
	}

	return SuccessResponse(c, pickups)
}

// GetByID returns a pickup event by ID
func (h *PickupHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PickupHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	pickup, err := h.pickups.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, pickup)
}

// AssignHauler assigns a hauler to a pickup event
func (h *PickupHandler) AssignHauler(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PickupHandler.AssignHauler")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	var body AssignHaulerBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest("hauler_id must be a valid UUID")
	}

	haulerID, err := uuid.Parse(body.HaulerID)
	if err != nil {
		return BadRequest("invalid hauler_id")
	}

	pickup, err := h.service.AssignHauler(ctx, principal, id, haulerID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to assign hauler")
		return err
	}

	h.logger.WithContext(ctx).Infof("Assigned hauler %s to pickup %s", haulerID, pickup.Reference)
	return SuccessResponse(c, pickup)
}

// AdvanceStatus moves a pickup event to a new status. Completion accepts
// declared material lines; without them a single default line is derived
// from the origin request.
func (h *PickupHandler) AdvanceStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PickupHandler.AdvanceStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	var body AdvancePickupBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest(err.Error())
	}

	lines := make([]lifecycle.MaterialLine, 0, len(body.Lines))
	for _, line := range body.Lines {
		lines = append(lines, lifecycle.MaterialLine{
			MaterialType: line.MaterialType,
			Category:     line.Category,
			Description:  line.Description,
			QuantityKg:   line.QuantityKg,
			BeforePhoto:  line.BeforePhoto,
		})
	}

	pickup, err := h.service.AdvancePickup(ctx, principal, id, body.Status, lines)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to advance pickup status")
		return err
	}

	h.logger.WithContext(ctx).Infof("Pickup %s is now %s", pickup.Reference, pickup.Status)
	return SuccessResponse(c, pickup)
}
