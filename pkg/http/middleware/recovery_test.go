package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRecoverWritesEnvelope(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogging(nil), Recover(nil))
	e.GET("/boom", func(c echo.Context) error { panic("model exploded") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) != "req-1" {
		t.Fatalf("request id not echoed")
	}
	var body panicBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != 500 || len(body.Data) != 1 || body.Data[0].Code != "INTERNAL" {
		t.Fatalf("body = %+v", body)
	}
}

func TestRequestLoggingGeneratesID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogging(nil))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if len(rec.Header().Get(echo.HeaderXRequestID)) != 36 {
		t.Fatalf("expected uuid request id, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}
}
