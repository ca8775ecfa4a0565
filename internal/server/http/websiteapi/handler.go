package websiteapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/server/http/middleware"
	"github.com/sitewave/sitewave/internal/service/website"
)

type Handler struct {
	websites *website.Service
	logger   *zerolog.Logger
}

func New(websites *website.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "website_api").Logger()

	return &Handler{
		websites: websites,
		logger:   &log,
	}
}

type CreateRequest struct {
	TemplateID int64  `json:"template_id"`
	ActivityID int64  `json:"activity_id"`
	DemoLink   string `json:"demo_link"`
}

type UpdateRequest struct {
	DemoLink string `json:"demo_link"`
}

type ReviewRequest struct {
	Status website.Status `json:"status"`
	Reason string         `json:"reason"`
}

// CreateWebsite instantiates a website from a template, consuming one quota
// slot of the user's active subscription.
// POST /api/v1/websites
func (h *Handler) CreateWebsite(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	if req.DemoLink == "" {
		return common.ValidationErrorResponse(c, "demo_link is required")
	}

	result, err := h.websites.Create(ctx, p.ID, website.CreateProps{
		TemplateID: req.TemplateID,
		ActivityID: req.ActivityID,
		DemoLink:   req.DemoLink,
	})
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"website": result.Website,
		"quota":   result.Quota,
	})
}

// GetWebsite returns one of the authenticated user's websites.
// GET /api/v1/websites/:websiteId
func (h *Handler) GetWebsite(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	id, err := strconv.ParseInt(c.Param("websiteId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid website id")
	}

	w, err := h.websites.GetUserWebsite(ctx, p.ID, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, w)
}

// ListWebsites returns the authenticated user's websites.
// GET /api/v1/websites
func (h *Handler) ListWebsites(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	sites, err := h.websites.ListUserWebsites(ctx, p.ID)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, sites)
}

// UpdateWebsite updates the demo link of an owned website.
// PUT /api/v1/websites/:websiteId
func (h *Handler) UpdateWebsite(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	id, err := strconv.ParseInt(c.Param("websiteId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid website id")
	}

	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	w, err := h.websites.UpdateDemoLink(ctx, p.ID, id, req.DemoLink)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, w)
}

// DeleteWebsite removes an owned website and restores one quota slot.
// DELETE /api/v1/websites/:websiteId
func (h *Handler) DeleteWebsite(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	id, err := strconv.ParseInt(c.Param("websiteId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid website id")
	}

	quota, err := h.websites.Delete(ctx, p.ID, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"quota": quota})
}

// ListAllWebsites returns every website across users. Admin only.
// GET /api/v1/admin/websites
func (h *Handler) ListAllWebsites(c echo.Context) error {
	ctx := c.Request().Context()

	sites, err := h.websites.ListAllWebsites(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, sites)
}

// ReviewWebsite applies an admin approval decision to a website. Admin only.
// POST /api/v1/admin/websites/:websiteId/review
func (h *Handler) ReviewWebsite(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("websiteId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid website id")
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	w, err := h.websites.Review(ctx, id, req.Status, req.Reason)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, w)
}
