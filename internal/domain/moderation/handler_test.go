package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aesthetiq/aesthetiq/internal/platform/auth"
)

func reporterContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{auth.RolePatient})
	c := e.NewContext(req.WithContext(ctx), rec)
	return c
}

func TestHandler_SubmitReport(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	reporter := uuid.New()
	reported := uuid.New()

	body := `{"reported_user_id":"` + reported.String() + `","report_type":"spam","description":"link farm in bio"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := reporterContext(e, req, rec, reporter)

	if err := h.SubmitReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var r ContentReport
	json.Unmarshal(rec.Body.Bytes(), &r)
	if r.Status != StatusPending || r.ReporterID != reporter {
		t.Errorf("report = %+v, want pending from %s", r, reporter)
	}
}

func TestHandler_SubmitReport_UnknownType(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"reported_user_id":"` + uuid.NewString() + `","report_type":"vibes"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := reporterContext(e, req, rec, uuid.New())

	err := h.SubmitReport(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Resolve(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	r, err := svc.SubmitReport(context.Background(), uuid.New(), uuid.New(), TypeSpam, "")
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}

	body := `{"notes":"profile content removed","action_taken":"content_removed"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := reporterContext(e, req, rec, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	if err := h.Resolve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out ContentReport
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Status != StatusResolved || out.ResolvedAt == nil {
		t.Errorf("report = %+v, want resolved with timestamp", out)
	}
}

func TestHandler_Resolve_TerminalConflict(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	r, err := svc.SubmitReport(context.Background(), uuid.New(), uuid.New(), TypeSpam, "")
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if _, err := svc.Dismiss(context.Background(), r.ID, "admin-1", "duplicate of earlier report"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}

	body := `{"notes":"second pass"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := reporterContext(e, req, rec, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	herr := h.Resolve(c)
	httpErr, ok := herr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", herr)
	}
}
