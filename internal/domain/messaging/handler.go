package messaging

import (
	"context"
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
	api.GET("/threads", h.ListThreads)
	api.POST("/threads/direct", h.CreateDirectThread)
	api.GET("/threads/:id/messages", h.ListMessages)
	api.POST("/threads/:id/messages", h.SendMessage)
	api.GET("/threads/:id/rate-limit", h.CheckRateLimit)
	api.POST("/threads/:id/read", h.MarkRead)
	api.POST("/threads/:id/archive", h.ArchiveThread)
	api.POST("/threads/:id/block", h.BlockThread)

	api.GET("/consult-requests", h.ListConsults)
	api.POST("/consult-requests", h.RequestConsult)
	practitionerOnly := api.Group("", auth.RequireRole(auth.RolePractitioner))
	practitionerOnly.POST("/consult-requests/:id/accept", h.AcceptConsult)
	practitionerOnly.POST("/consult-requests/:id/decline", h.DeclineConsult)
	practitionerOnly.POST("/consult-requests/:id/complete", h.CompleteConsult)
	api.POST("/consult-requests/:id/cancel", h.CancelConsult)
}

func threadID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid thread id")
	}
	return id, nil
}

// roleFor picks the caller's messaging role from their token roles;
// practitioners without an explicit role claim default to patient.
func roleFor(c echo.Context) string {
	for _, r := range auth.RolesFromContext(c.Request().Context()) {
		if r == auth.RolePractitioner {
			return SenderPractitioner
		}
	}
	return SenderPatient
}

func (h *Handler) ListThreads(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	p := pagination.FromContext(c)
	threads, total, err := h.svc.ThreadsForUser(c.Request().Context(), uid, roleFor(c), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(threads, total, p.Limit, p.Offset))
}

type directThreadRequest struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
}

func (h *Handler) CreateDirectThread(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req directThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	th, err := h.svc.CreateDirectThread(c.Request().Context(), uid, req.PractitionerID)
	if err != nil {
		return rateLimitOrError(c, err)
	}
	return c.JSON(http.StatusOK, th)
}

func (h *Handler) ListMessages(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	msgs, total, err := h.svc.MessagesForThread(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(msgs, total, p.Limit, p.Offset))
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.svc.SendMessage(c.Request().Context(), id, uid, roleFor(c), req.Content)
	if err != nil {
		return rateLimitOrError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// rateLimitOrError renders denied sends as a structured 429 body so the
// client can show the plan, the count and the cap, not just a status code.
func rateLimitOrError(c echo.Context, err error) error {
	var re *apperr.RateLimitError
	if errors.As(err, &re) {
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"allowed":       false,
			"reason":        re.Reason,
			"current_count": re.CurrentCount,
			"limit":         re.Limit,
			"plan":          re.Plan,
		})
	}
	return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
}

func (h *Handler) CheckRateLimit(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.CheckRateLimit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkRead(c.Request().Context(), id, roleFor(c))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"marked_read": n})
}

func (h *Handler) ArchiveThread(c echo.Context) error {
	return h.transition(c, h.svc.ArchiveThread)
}

func (h *Handler) BlockThread(c echo.Context) error {
	return h.transition(c, h.svc.BlockThread)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) error) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	if err := fn(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListConsults(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	p := pagination.FromContext(c)
	consults, total, err := h.svc.ConsultsForUser(c.Request().Context(), uid, roleFor(c), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, p.Limit, p.Offset))
}

type consultRequestBody struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Message        string    `json:"message"`
}

func (h *Handler) RequestConsult(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req consultRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cr, err := h.svc.RequestConsult(c.Request().Context(), uid, req.PractitionerID, req.Message)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusCreated, cr)
}

type consultResponseBody struct {
	ResponseMessage string `json:"response_message"`
}

func (h *Handler) AcceptConsult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var req consultResponseBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cr, th, err := h.svc.AcceptConsultRequest(c.Request().Context(), id, req.ResponseMessage)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"request": cr, "thread": th})
}

func (h *Handler) DeclineConsult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	var req consultResponseBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cr, err := h.svc.DeclineConsultRequest(c.Request().Context(), id, req.ResponseMessage)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *Handler) CancelConsult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	cr, err := h.svc.CancelConsultRequest(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *Handler) CompleteConsult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	cr, err := h.svc.CompleteConsultRequest(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, cr)
}
