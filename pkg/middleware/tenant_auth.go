package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

// Tenant headers
const (
	HeaderWMSTenantID    = "X-WMS-Tenant-ID"
	HeaderWMSFacilityID  = "X-WMS-Facility-ID"
	HeaderWMSWarehouseID = "X-WMS-Warehouse-ID"
)

// TenantAuthConfig holds configuration for the tenant middleware
type TenantAuthConfig struct {
	// Required rejects requests that carry no tenant header
	Required bool

	DefaultTenantID    string
	DefaultFacilityID  string
	DefaultWarehouseID string
}

// DefaultTenantAuthConfig returns a permissive configuration
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{
		DefaultTenantID:    tenant.DefaultTenantID,
		DefaultFacilityID:  tenant.DefaultFacilityID,
		DefaultWarehouseID: tenant.DefaultWarehouseID,
	}
}

// TenantAuth extracts the tenant context from headers into the request context.
// Health and metrics endpoints pass through without one.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		if skipLogPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		tc := &tenant.Context{
			TenantID:    c.GetHeader(HeaderWMSTenantID),
			FacilityID:  c.GetHeader(HeaderWMSFacilityID),
			WarehouseID: c.GetHeader(HeaderWMSWarehouseID),
		}

		if config.Required && tc.TenantID == "" {
			AbortWithAppError(c, errors.ErrValidation("tenant context is required").
				WithDetail("header", HeaderWMSTenantID))
			return
		}

		if tc.TenantID == "" {
			tc.TenantID = config.DefaultTenantID
		}
		if tc.FacilityID == "" {
			tc.FacilityID = config.DefaultFacilityID
		}
		if tc.WarehouseID == "" {
			tc.WarehouseID = config.DefaultWarehouseID
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		ctx = logging.ContextWithTenantID(ctx, tc.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
