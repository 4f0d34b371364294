package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Setup(r, DefaultConfig("outbound-fulfillment-service", logging.Nop()))
	return r
}

func TestTenantAuth_PropagatesHeaders(t *testing.T) {
	r := newTestRouter()
	var got *tenant.Context
	r.GET("/ping", func(c *gin.Context) {
		got = tenant.FromContextOptional(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderWMSTenantID, "acme")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "acme", got.TenantID)
	assert.Equal(t, tenant.DefaultFacilityID, got.FacilityID)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestTenantAuth_RequiredRejectsMissingTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TenantAuth(&TenantAuthConfig{Required: true}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newTestRouter()
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.ErrInsufficientInventory("BKT-1", 10, 4))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeInsufficientInventory, body.Code)
	assert.Equal(t, "6", body.Details["shortfall"])
	assert.Equal(t, "/boom", body.Path)
	assert.NotEmpty(t, body.RequestID)
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	r := newTestRouter()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNoRoute(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
}

func TestReadinessCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ready", ReadinessCheck("outbound-fulfillment-service",
		Dependency{Name: "mongodb", Check: func(context.Context) error { return nil }},
		Dependency{Name: "outbox", Check: func(context.Context) error { return stderrors.New("outbox publisher not running") }},
	))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "ok", body.Checks["mongodb"])
	assert.Equal(t, "outbox publisher not running", body.Checks["outbox"])
}
