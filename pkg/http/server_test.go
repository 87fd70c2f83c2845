package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	TopN   int    `json:"top_n" default:"15" validate:"gte=1,lte=500"`
}

type sampleRoutes struct{}

func (sampleRoutes) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error {
		return SuccessResponse(c, map[string]string{"hello": "world"})
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("no report for %s", "BTC"))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
	e.POST("/sample", func(c echo.Context) error {
		var req sampleRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
}

func serve(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServerEnvelope(t *testing.T) {
	s := NewServer(sampleRoutes{})

	rec := serve(t, s, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 200, body["status"])
	assert.Equal(t, "world", body["data"].(map[string]interface{})["hello"])

	rec = serve(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errs := decode(t, rec)["data"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_NOT_FOUND", errs[0].(map[string]interface{})["code"])
}

func TestServerRecoversPanic(t *testing.T) {
	s := NewServer(sampleRoutes{})
	rec := serve(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReadAndValidateRequest(t *testing.T) {
	s := NewServer(sampleRoutes{})

	rec := serve(t, s, http.MethodPost, "/sample", `{"symbol":"BTC-USD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 15, data["top_n"], "default applied")

	rec = serve(t, s, http.MethodPost, "/sample", `{"top_n":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["data"].([]interface{})
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_REQUIRED", first["code"])
	assert.Equal(t, "symbol", first["field"])

	rec = serve(t, s, http.MethodPost, "/sample", `{"symbol":"BTC","top_n":900}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_LTE")
}

func TestServerMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(sampleRoutes{}, WithMetrics(reg, reg, "/metrics"))

	serve(t, s, http.MethodGet, "/ok", "")
	rec := serve(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `finscope_http_requests_total{method="GET",route="/ok",status="200"} 1`)
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer(sampleRoutes{})

	req := httptest.NewRequest(http.MethodOptions, "/sample", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.NotContains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestServerCORSRestrictedOrigins(t *testing.T) {
	s := NewServer(sampleRoutes{}, WithCORSOrigins([]string{"https://dash.example.com"}))

	get := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		if origin != "" {
			req.Header.Set(echo.HeaderOrigin, origin)
		}
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		return rec
	}

	rec := get("https://dash.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), "methods only on preflight")

	rec = get("https://evil.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = get("")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
