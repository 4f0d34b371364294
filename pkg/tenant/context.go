package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	tenantIDKey    contextKey = "tenantId"
	facilityIDKey  contextKey = "facilityId"
	warehouseIDKey contextKey = "warehouseId"
)

// ErrMissingTenantContext is returned when a request carries no tenant identifiers.
var ErrMissingTenantContext = errors.New("tenant context is required")

// Context holds the tenant identifiers that scope a request.
type Context struct {
	// TenantID is the operator that owns the datastore
	TenantID string `json:"tenantId"`

	// FacilityID is the physical facility identifier
	FacilityID string `json:"facilityId"`

	// WarehouseID is a specific warehouse within a facility
	WarehouseID string `json:"warehouseId"`
}

// Default identifiers applied by the HTTP layer when headers are absent.
const (
	DefaultTenantID    = "DEFAULT_TENANT"
	DefaultFacilityID  = "DEFAULT_FACILITY"
	DefaultWarehouseID = "DEFAULT_WAREHOUSE"
)

// FromContext extracts the tenant Context from ctx.
// Returns an error if neither a tenant nor a facility is present.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{
		TenantID:    stringValue(ctx, tenantIDKey),
		FacilityID:  stringValue(ctx, facilityIDKey),
		WarehouseID: stringValue(ctx, warehouseIDKey),
	}

	if tc.TenantID == "" && tc.FacilityID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// FromContextOptional returns an empty Context instead of an error.
func FromContextOptional(ctx context.Context) *Context {
	tc, _ := FromContext(ctx)
	if tc == nil {
		return &Context{}
	}
	return tc
}

// ToContext adds the tenant identifiers to ctx.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.FacilityID != "" {
		ctx = context.WithValue(ctx, facilityIDKey, tc.FacilityID)
	}
	if tc.WarehouseID != "" {
		ctx = context.WithValue(ctx, warehouseIDKey, tc.WarehouseID)
	}
	return ctx
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

// IsDefault reports whether the context carries the placeholder tenant.
func (tc *Context) IsDefault() bool {
	return tc.TenantID == "" || tc.TenantID == DefaultTenantID
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
