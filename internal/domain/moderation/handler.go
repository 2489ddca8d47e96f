package moderation

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
	api.POST("/reports", h.SubmitReport)

	adminOnly := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.GET("/admin/reports", h.Queue)
	adminOnly.GET("/admin/reports/:id", h.Get)
	adminOnly.POST("/admin/reports/:id/review", h.StartReview)
	adminOnly.POST("/admin/reports/:id/resolve", h.Resolve)
	adminOnly.POST("/admin/reports/:id/dismiss", h.Dismiss)
}

type submitReportRequest struct {
	ReportedUserID uuid.UUID `json:"reported_user_id"`
	ReportType     string    `json:"report_type"`
	Description    string    `json:"description"`
}

func (h *Handler) SubmitReport(c echo.Context) error {
	reporter, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req submitReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.SubmitReport(c.Request().Context(), reporter, req.ReportedUserID, req.ReportType, req.Description)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Queue(c echo.Context) error {
	p := pagination.FromContext(c)
	reports, total, err := h.svc.Queue(c.Request().Context(), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) StartReview(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	r, err := h.svc.StartReview(c.Request().Context(), id, admin)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, r)
}

type closeReportRequest struct {
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken"`
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	var req closeReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	r, err := h.svc.Resolve(c.Request().Context(), id, admin, req.Notes, req.ActionTaken)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Dismiss(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	var req closeReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	admin := auth.UserIDFromContext(c.Request().Context())
	r, err := h.svc.Dismiss(c.Request().Context(), id, admin, req.Notes)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, r)
}
