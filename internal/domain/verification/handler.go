package verification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
	"github.com/aesthetiq/aesthetiq/internal/platform/auth"
	"github.com/aesthetiq/aesthetiq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	practitionerOnly := api.Group("", auth.RequireRole(auth.RolePractitioner))
	practitionerOnly.POST("/practitioners/:id/verification", h.Submit)

	adminOnly := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.GET("/admin/verification-queue", h.Queue)
	adminOnly.GET("/admin/verification-queue/:itemID", h.Get)
	adminOnly.POST("/admin/verification-queue/:itemID/decision", h.Decide)
	adminOnly.GET("/admin/practitioners/:id/verification-audit", h.AuditTrail)
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	item, err := h.svc.Submit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) Queue(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.PendingQueue(c.Request().Context(), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, item)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
	Version  int    `json:"version"`
}

func (h *Handler) Decide(c echo.Context) error {
	id, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	item, err := h.svc.Decide(c.Request().Context(), id, req.Decision, admin, req.Notes, req.Version)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) AuditTrail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	p := pagination.FromContext(c)
	entries, total, err := h.svc.AuditTrail(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}
