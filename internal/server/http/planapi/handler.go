package planapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/service/plan"
)

type Handler struct {
	plans  *plan.Service
	logger *zerolog.Logger
}

func New(plans *plan.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "plan_api").Logger()

	return &Handler{
		plans:  plans,
		logger: &log,
	}
}

type PlanResponse struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	PriceMonthly      *decimal.Decimal `json:"price_monthly"`
	PriceQuarterly    *decimal.Decimal `json:"price_quarterly"`
	PriceSemiAnnually *decimal.Decimal `json:"price_semi_annually"`
	PriceAnnually     *decimal.Decimal `json:"price_annually"`
	WebsiteLimit      *int32           `json:"website_limit"`
}

type PlanRequest struct {
	Name              string           `json:"name"`
	PriceMonthly      *decimal.Decimal `json:"price_monthly"`
	PriceQuarterly    *decimal.Decimal `json:"price_quarterly"`
	PriceSemiAnnually *decimal.Decimal `json:"price_semi_annually"`
	PriceAnnually     *decimal.Decimal `json:"price_annually"`
	WebsiteLimit      *int32           `json:"website_limit"`
}

// ListPlans returns the full plan catalog.
// GET /api/v1/plans
func (h *Handler) ListPlans(c echo.Context) error {
	ctx := c.Request().Context()

	plans, err := h.plans.ListPlans(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, lo.Map(plans, func(p *plan.Plan, _ int) *PlanResponse {
		return planToResponse(p)
	}))
}

// GetPlan returns a single plan.
// GET /api/v1/plans/:planId
func (h *Handler) GetPlan(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("planId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid plan id")
	}

	p, err := h.plans.GetPlan(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, planToResponse(p))
}

// CreatePlan creates a plan. Admin only.
// POST /api/v1/admin/plans
func (h *Handler) CreatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	created, err := h.plans.CreatePlan(ctx, requestToPlan(0, req))
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, planToResponse(created))
}

// UpdatePlan updates a plan. Admin only.
// PUT /api/v1/admin/plans/:planId
func (h *Handler) UpdatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("planId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid plan id")
	}

	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	updated, err := h.plans.UpdatePlan(ctx, requestToPlan(id, req))
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, planToResponse(updated))
}

// DeletePlan removes a plan. Admin only.
// DELETE /api/v1/admin/plans/:planId
func (h *Handler) DeletePlan(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("planId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid plan id")
	}

	if err := h.plans.DeletePlan(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func planToResponse(p *plan.Plan) *PlanResponse {
	resp := &PlanResponse{
		ID:   p.ID,
		Name: p.Name,
	}

	if p.PriceMonthly.Valid {
		resp.PriceMonthly = &p.PriceMonthly.Decimal
	}
	if p.PriceQuarterly.Valid {
		resp.PriceQuarterly = &p.PriceQuarterly.Decimal
	}
	if p.PriceSemiAnnually.Valid {
		resp.PriceSemiAnnually = &p.PriceSemiAnnually.Decimal
	}
	if p.PriceAnnually.Valid {
		resp.PriceAnnually = &p.PriceAnnually.Decimal
	}
	if p.WebsiteLimit.Valid {
		resp.WebsiteLimit = &p.WebsiteLimit.Int32
	}

	return resp
}

func requestToPlan(id int64, req PlanRequest) *plan.Plan {
	p := &plan.Plan{
		ID:   id,
		Name: req.Name,
	}

	if req.PriceMonthly != nil {
		p.PriceMonthly = decimal.NewNullDecimal(*req.PriceMonthly)
	}
	if req.PriceQuarterly != nil {
		p.PriceQuarterly = decimal.NewNullDecimal(*req.PriceQuarterly)
	}
	if req.PriceSemiAnnually != nil {
		p.PriceSemiAnnually = decimal.NewNullDecimal(*req.PriceSemiAnnually)
	}
	if req.PriceAnnually != nil {
		p.PriceAnnually = decimal.NewNullDecimal(*req.PriceAnnually)
	}
	if req.WebsiteLimit != nil {
		p.WebsiteLimit.Int32 = *req.WebsiteLimit
		p.WebsiteLimit.Valid = true
	}

	return p
}
