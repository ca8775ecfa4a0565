package promoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/service/promo"
)

type Handler struct {
	promos *promo.Service
	logger *zerolog.Logger
}

func New(promos *promo.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "promo_api").Logger()

	return &Handler{
		promos: promos,
		logger: &log,
	}
}

type PlanLinkRequest struct {
	PlanID                int64 `json:"plan_id"`
	AppliesToMonthly      bool  `json:"applies_to_monthly"`
	AppliesToQuarterly    bool  `json:"applies_to_quarterly"`
	AppliesToSemiAnnually bool  `json:"applies_to_semi_annually"`
	AppliesToYearly       bool  `json:"applies_to_yearly"`
}

type CodeRequest struct {
	Code          string             `json:"code"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	DiscountType  promo.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	IsActive      bool               `json:"is_active"`
	MaxUsers      int32              `json:"max_users"`
	Audience      promo.Audience     `json:"status"`
	Plans         []PlanLinkRequest  `json:"plans"`
}

type CodeResponse struct {
	ID             int64              `json:"id"`
	Code           string             `json:"code"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	DiscountType   promo.DiscountType `json:"discount_type"`
	DiscountValue  decimal.Decimal    `json:"discount_value"`
	IsActive       bool               `json:"is_active"`
	MaxUsers       int32              `json:"max_users"`
	AvailableUsers int32              `json:"available_users"`
	Audience       promo.Audience     `json:"status"`
}

// ListCodes returns all promo codes. Admin only.
// GET /api/v1/admin/promo-codes
func (h *Handler) ListCodes(c echo.Context) error {
	ctx := c.Request().Context()

	codes, err := h.promos.ListCodes(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, lo.Map(codes, func(code *promo.Code, _ int) *CodeResponse {
		return codeToResponse(code)
	}))
}

// GetCode returns a single promo code with its plan links and usages. Admin only.
// GET /api/v1/admin/promo-codes/:codeId
func (h *Handler) GetCode(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("codeId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid promo code id")
	}

	code, err := h.promos.GetCode(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	links, err := h.promos.ListPlanLinks(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	usages, err := h.promos.ListUsages(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"code":   codeToResponse(code),
		"plans":  links,
		"usages": usages,
	})
}

// CreateCode creates a promo code with its plan links. Admin only.
// POST /api/v1/admin/promo-codes
func (h *Handler) CreateCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	code, links := requestToCode(0, req)

	created, err := h.promos.CreateCode(ctx, code, links)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, codeToResponse(created))
}

// UpdateCode replaces a promo code and its plan links. Admin only.
// PUT /api/v1/admin/promo-codes/:codeId
func (h *Handler) UpdateCode(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("codeId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid promo code id")
	}

	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	code, links := requestToCode(id, req)
	code.AvailableUsers = req.MaxUsers

	updated, err := h.promos.UpdateCode(ctx, code, links)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, codeToResponse(updated))
}

// DeleteCode removes a promo code. Admin only.
// DELETE /api/v1/admin/promo-codes/:codeId
func (h *Handler) DeleteCode(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("codeId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid promo code id")
	}

	if err := h.promos.DeleteCode(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func codeToResponse(code *promo.Code) *CodeResponse {
	return &CodeResponse{
		ID:             code.ID,
		Code:           code.Code,
		StartDate:      code.StartDate,
		EndDate:        code.EndDate,
		DiscountType:   code.DiscountType,
		DiscountValue:  code.DiscountValue,
		IsActive:       code.IsActive,
		MaxUsers:       code.MaxUsers,
		AvailableUsers: code.AvailableUsers,
		Audience:       code.Audience,
	}
}

func requestToCode(id int64, req CodeRequest) (*promo.Code, []*promo.PlanLink) {
	code := &promo.Code{
		ID:            id,
		Code:          req.Code,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		IsActive:      req.IsActive,
		MaxUsers:      req.MaxUsers,
		Audience:      req.Audience,
	}

	links := lo.Map(req.Plans, func(l PlanLinkRequest, _ int) *promo.PlanLink {
		return &promo.PlanLink{
			PlanID:                l.PlanID,
			AppliesToMonthly:      l.AppliesToMonthly,
			AppliesToQuarterly:    l.AppliesToQuarterly,
			AppliesToSemiAnnually: l.AppliesToSemiAnnually,
			AppliesToYearly:       l.AppliesToYearly,
		}
	})

	return code, links
}
