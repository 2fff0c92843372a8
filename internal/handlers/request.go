package handlers

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/tracing"
)

// RequestService covers the collection request lifecycle operations
type RequestService interface {
	SubmitRequest(ctx context.Context, principal repositories.Principal, input lifecycle.SubmitRequestInput) (*models.Request, error)
	ApproveRequest(ctx context.Context, principal repositories.Principal, requestID int64, dropoffDetails *string) (*models.Request, error)
	RejectRequest(ctx context.Context, principal repositories.Principal, requestID int64, reason string) (*models.Request, error)
}

// RequestHandler handles collection request API endpoints
type RequestHandler struct {
	service  RequestService
	requests repositories.RequestStore
	logger   ectologger.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(service RequestService, requests repositories.RequestStore, logger ectologger.Logger) *RequestHandler {
	return &RequestHandler{
		service:  service,
		requests: requests,
		logger:   logger,
	}
}

// SubmitRequestBody represents the create request body
type SubmitRequestBody struct {
	Category     string   `json:"category" validate:"required"`
	Description  string   `json:"description"`
	QuantityBand string   `json:"quantity_band" validate:"required"`
	Mode         string   `json:"mode" validate:"required,oneof=home dropoff"`
	DesiredDate  string   `json:"desired_date" validate:"required"`
	TimeWindow   string   `json:"time_window" validate:"required"`
	Address      *string  `json:"address,omitempty"`
	Phone        string   `json:"phone" validate:"required"`
	Instructions *string  `json:"instructions,omitempty"`
	Photos       []string `json:"photos,omitempty" validate:"max=3"`
}

// ApproveRequestBody represents the approve request body
type ApproveRequestBody struct {
	DropoffDetails *string `json:"dropoff_details,omitempty"`
}

// RejectRequestBody represents the reject request body
type RejectRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

// Register registers collection request routes
func (h *RequestHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Submit)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
}

// Submit creates a new collection request
func (h *RequestHandler) Submit(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RequestHandler.Submit")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	var body SubmitRequestBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest(err.Error())
	}

	desiredDate, err := time.Parse("2006-01-02", body.DesiredDate)
	if err != nil {
		return BadRequest("invalid desired_date: expected YYYY-MM-DD")
	}

	request, err := h.service.SubmitRequest(ctx, principal, lifecycle.SubmitRequestInput{
		Category:     body.Category,
		Description:  body.Description,
		QuantityBand: body.QuantityBand,
		Mode:         body.Mode,
		DesiredDate:  desiredDate,
		TimeWindow:   body.TimeWindow,
		Address:      body.Address,
		Phone:        body.Phone,
		Instructions: body.Instructions,
		Photos:       body.Photos,
	})
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to submit collection request")
		return err
	}

	h.logger.WithContext(ctx).Infof("Submitted collection request: %s", request.Reference)
	return CreatedResponse(c, request)
}

// List returns collection requests visible to the caller
func (h *RequestHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RequestHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	principal, err := CallerPrincipal(c)
	if err != nil {
		return err
	}

	requests, err := h.requests.ListForPrincipal(ctx, principal)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list collection requests")
		return err
	}

	return SuccessResponse(c, requests)
}

// GetByID returns a collection request by ID
func (h *RequestHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RequestHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}

	request, err := h.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, request)
}

// Approve approves a submitted collection request
func (h *RequestHandler) Approve(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RequestHandler.Approve")
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

	var body ApproveRequestBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}

	request, err := h.service.ApproveRequest(ctx, principal, id, body.DropoffDetails)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to approve collection request")
		return err
	}

	h.logger.WithContext(ctx).Infof("Approved collection request: %s", request.Reference)
	return SuccessResponse(c, request)
}

// Reject rejects a submitted collection request with a reason
func (h *RequestHandler) Reject(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "RequestHandler.Reject")
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

	var body RejectRequestBody
	if err := c.Bind(&body); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return BadRequest("reason is required")
	}

	request, err := h.service.RejectRequest(ctx, principal, id, body.Reason)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to reject collection request")
		return err
	}

	h.logger.WithContext(ctx).Infof("Rejected collection request: %s", request.Reference)
	return SuccessResponse(c, request)
}
