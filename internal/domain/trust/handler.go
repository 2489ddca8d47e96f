package trust

import (
	"encoding/json"
	"errors"
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
	api.POST("/trust/events", h.RecordEvent)
	api.GET("/practitioners/:id/trust-score", h.GetTrustScore)

	adminOnly := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminOnly.GET("/practitioners/:id/trust-events", h.ListEvents)
	adminOnly.POST("/practitioners/:id/trust-score/refresh", h.RefreshScore)
}

type recordEventRequest struct {
	EventType      string          `json:"event_type"`
	PractitionerID uuid.UUID       `json:"practitioner_id"`
	PatientID      *uuid.UUID      `json:"patient_id,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// RecordEvent ingests a trust event. The contract is fire-and-forget for
// callers: validation problems surface as 400s, but storage failures return
// a null event id rather than an error so UI flows never break on ledger
// writes.
func (h *Handler) RecordEvent(c echo.Context) error {
	var req recordEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.RecordEvent(c.Request().Context(), req.EventType, req.PractitionerID, req.PatientID, req.Metadata)
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"event_id": nil})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"event_id": e.ID})
}

func (h *Handler) GetTrustScore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	score, err := h.svc.Score(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"practitioner_id": id,
		"trust_score":     score,
	})
}

func (h *Handler) ListEvents(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListEvents(c.Request().Context(), id, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) RefreshScore(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RefreshScore(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.NoContent(http.StatusNoContent)
}
