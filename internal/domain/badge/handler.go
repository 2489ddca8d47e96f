package badge

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
	api.GET("/practitioners/:id/badges", h.List)

	adminOnly := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.POST("/practitioners/:id/badges/recompute", h.Recompute)
	adminOnly.POST("/practitioners/:id/badges/:type/award", h.Award)
	adminOnly.POST("/practitioners/:id/badges/:type/revoke", h.Revoke)
	adminOnly.GET("/practitioners/:id/badge-audit", h.AuditLog)
}

// List returns active badges by default; ?all=true includes revoked rows.
func (h *Handler) List(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	activeOnly := c.QueryParam("all") != "true"
	badges, err := h.svc.List(c.Request().Context(), id, activeOnly)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	if badges == nil {
		badges = []*Badge{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"badges": badges})
}

func (h *Handler) Recompute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	res, err := h.svc.Compute(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, res)
}

type manualActionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Award(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	var req manualActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	b, err := h.svc.ManuallyAward(c.Request().Context(), id, BadgeType(c.Param("type")), admin, req.Reason)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Revoke(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	var req manualActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	b, err := h.svc.ManuallyRevoke(c.Request().Context(), id, BadgeType(c.Param("type")), admin, req.Reason)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) AuditLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	p := pagination.FromContext(c)
	entries, total, err := h.svc.AuditLog(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}
