package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// MaterialService covers the material item processing operations
type MaterialService interface {
	AssignProcessor(ctx context.Context, principal repositories.Principal, itemID int64, processorID uuid.UUID) (*models.MaterialItem, error)
	FinalizeDisposition(ctx context.Context, principal repositories.Principal, itemID int64, input lifecycle.DispositionInput) (*models.MaterialItem, error)
	AdvanceMaterialTerminal(ctx context.Context, principal repositories.Principal, itemID int64) (*models.MaterialItem, error)
}

// MaterialHandler handles material item API endpoints
type MaterialHandler struct {
	service   MaterialService
	materials repositories.MaterialStore
	logger    ectologger.Logger
}

// NewMaterialHandler creates a new material handler
func NewMaterialHandler(service MaterialService, materials repositories.MaterialStore, logger ectologger.Logger) *MaterialHandler {
	return &MaterialHandler{
		service:   service,
		materials: materials,
		logger:    logger,
	}
}

// AssignProcessorBody represents the assign processor request body
type AssignProcessorBody struct {
	ProcessorID string `json:"processor_id" validate:"required,uuid"`
}

// DispositionBody represents the disposition decision request body
type DispositionBody struct {
	Disposition   string   `json:"disposition" validate:"required,oneof=RECYCLABLE TO_DESTROY"`
	FinalQuantity float64  `json:"final_quantity" validate:"required,gt=0"`
	Method        string   `json:"method" validate:"required"`
	YieldPct      *float64 `json:"yield_pct,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	AfterPhoto    *string  `json:"after_photo,omitempty"`
}

// Register registers material item routes
func (h *MaterialHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/processor", h.AssignProcessor)
	g.POST("/:id/disposition", h.FinalizeDisposition)
	g.POST("/:id/finish", h.AdvanceTerminal)
}

// List returns material items visible to the caller
func (h *MaterialHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MaterialHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	items, err := h.materials.ListForPrincipal(ctx, principal)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list material items")
		return err
	}

	return SuccessResponse(c, items)
}

// GetByID returns a material item by ID
func (h *MaterialHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MaterialHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.materials.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, item)
}

// AssignProcessor assigns a processor to a collected material item,
// moving it into triage.
func (h *MaterialHandler) AssignProcessor(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MaterialHandler.AssignProcessor")
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

	var body AssignProcessorBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest("processor_id must be a valid UUID")
	}

	processorID, err := uuid.Parse(body.ProcessorID)
	if err != nil {
		return BadRequest("invalid processor_id")
	}

	item, err := h.service.AssignProcessor(ctx, principal, id, processorID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to assign processor")
		return err
	}

	h.logger.WithContext(ctx).Infof("Assigned processor %s to material item %d", processorID, item.ID)
	return SuccessResponse(c, item)
}

// FinalizeDisposition records the triage outcome for a material item
func (h *MaterialHandler) FinalizeDisposition(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MaterialHandler.FinalizeDisposition")
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

	var body DispositionBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest(err.Error())
	}

	item, err := h.service.FinalizeDisposition(ctx, principal, id, lifecycle.DispositionInput{
		Disposition:   body.Disposition,
		FinalQuantity: body.FinalQuantity,
		Method:        body.Method,
		YieldPct:      body.YieldPct,
		Notes:         body.Notes,
		AfterPhoto:    body.AfterPhoto,
	})
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to finalize disposition")
		return err
	}

	h.logger.WithContext(ctx).Infof("Material item %d disposed as %s", item.ID, item.State)
	return SuccessResponse(c, item)
}

// AdvanceTerminal moves a disposed material item into its terminal state
func (h *MaterialHandler) AdvanceTerminal(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MaterialHandler.AdvanceTerminal")
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

	item, err := h.service.AdvanceMaterialTerminal(ctx, principal, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to finish material item")
		return err
	}

	h.logger.WithContext(ctx).Infof("Material item %d is now %s", item.ID, item.State)
	return SuccessResponse(c, item)
}
