package catalogapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/service/catalog"
)

type Handler struct {
	catalog *catalog.Service
	logger  *zerolog.Logger
}

func New(catalogService *catalog.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "catalog_api").Logger()

	return &Handler{
		catalog: catalogService,
		logger:  &log,
	}
}

// ListPaymentMethods returns the available payment methods.
// GET /api/v1/payment-methods
func (h *Handler) ListPaymentMethods(c echo.Context) error {
	ctx := c.Request().Context()

	methods, err := h.catalog.ListPaymentMethods(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, methods)
}

// CreatePaymentMethod adds a payment method. Admin only.
// POST /api/v1/admin/payment-methods
func (h *Handler) CreatePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()

	var m catalog.PaymentMethod
	if err := c.Bind(&m); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	created, err := h.catalog.CreatePaymentMethod(ctx, &m)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdatePaymentMethod replaces a payment method's fields. Admin only.
// PUT /api/v1/admin/payment-methods/:methodId
func (h *Handler) UpdatePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("methodId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid payment method id")
	}

	var m catalog.PaymentMethod
	if err := c.Bind(&m); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	m.ID = id

	updated, err := h.catalog.UpdatePaymentMethod(ctx, &m)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// DeletePaymentMethod removes a payment method. Admin only.
// DELETE /api/v1/admin/payment-methods/:methodId
func (h *Handler) DeletePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("methodId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid payment method id")
	}

	if err := h.catalog.DeletePaymentMethod(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "payment method deleted"})
}

// ListActivities returns the business activity categories.
// GET /api/v1/activities
func (h *Handler) ListActivities(c echo.Context) error {
	ctx := c.Request().Context()

	activities, err := h.catalog.ListActivities(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, activities)
}

// CreateActivity adds an activity. Admin only.
// POST /api/v1/admin/activities
func (h *Handler) CreateActivity(c echo.Context) error {
	ctx := c.Request().Context()

	var a catalog.Activity
	if err := c.Bind(&a); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	created, err := h.catalog.CreateActivity(ctx, &a)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateActivity replaces an activity's fields. Admin only.
// PUT /api/v1/admin/activities/:activityId
func (h *Handler) UpdateActivity(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("activityId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid activity id")
	}

	var a catalog.Activity
	if err := c.Bind(&a); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	a.ID = id

	updated, err := h.catalog.UpdateActivity(ctx, &a)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteActivity removes an activity. Admin only.
// DELETE /api/v1/admin/activities/:activityId
func (h *Handler) DeleteActivity(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("activityId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid activity id")
	}

	if err := h.catalog.DeleteActivity(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "activity deleted"})
}

// ListTemplates returns the website templates.
// GET /api/v1/templates
func (h *Handler) ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()

	templates, err := h.catalog.ListTemplates(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, templates)
}

// GetTemplate returns a single template.
// GET /api/v1/templates/:templateId
func (h *Handler) GetTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("templateId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid template id")
	}

	t, err := h.catalog.GetTemplate(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, t)
}

// CreateTemplate adds a template. Admin only.
// POST /api/v1/admin/templates
func (h *Handler) CreateTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	var t catalog.Template
	if err := c.Bind(&t); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	created, err := h.catalog.CreateTemplate(ctx, &t)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateTemplate replaces a template's fields. Admin only.
// PUT /api/v1/admin/templates/:templateId
func (h *Handler) UpdateTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("templateId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid template id")
	}

	var t catalog.Template
	if err := c.Bind(&t); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	t.ID = id

	updated, err := h.catalog.UpdateTemplate(ctx, &t)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteTemplate removes a template. Admin only.
// DELETE /api/v1/admin/templates/:templateId
func (h *Handler) DeleteTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("templateId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid template id")
	}

	if err := h.catalog.DeleteTemplate(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "template deleted"})
}
