package gateways

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

// ProductClient calls product-service
type ProductClient struct {
	*client
}

var _ application.ProductGateway = (*ProductClient)(nil)

// Products returns the product-service gateway
func (c *Clients) Products() *ProductClient {
	return &ProductClient{client: c.client("product", c.config.ProductServiceURL)}
}

// GetSKUs fetches SKUs, optionally projected to fields
func (c *ProductClient) GetSKUs(ctx context.Context, ids []string, fields []string) ([]application.SKU, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}

	var skus []application.SKU
	if err := c.read(ctx, "getSkus", http.MethodGet, "/api/v1/skus?"+q.Encode(), nil, &skus); err != nil {
		return nil, err
	}
	return skus, nil
}

// TaskClient calls task-service
type TaskClient struct {
	*client
}

var _ application.TaskGateway = (*TaskClient)(nil)

// Tasks returns the task-service gateway
func (c *Clients) Tasks() *TaskClient {
	return &TaskClient{client: c.client("task", c.config.TaskServiceURL)}
}

type createTaskRequest struct {
	Kind string `json:"taskKind"`
	application.TaskPayload
}

// CreateTask creates a warehouse task and returns its code
func (c *TaskClient) CreateTask(ctx context.Context, kind string, payload application.TaskPayload) (string, error) {
	var task application.Task
	if err := c.write(ctx, "createTask", http.MethodPost, "/api/v1/tasks", createTaskRequest{Kind: kind, TaskPayload: payload}, &task); err != nil {
		return "", err
	}
	if task.Code == "" {
		return "", errors.ErrDependencyFailed("task", "createTask").WithDetail("reason", "empty task code")
	}
	return task.Code, nil
}

// GetTask fetches a task by code
func (c *TaskClient) GetTask(ctx context.Context, code string) (*application.Task, error) {
	var task application.Task
	path := fmt.Sprintf("/api/v1/tasks/%s", url.PathEscape(code))
	if err := c.read(ctx, "getTask", http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// AccountClient calls account-service
type AccountClient struct {
	*client
}

var _ application.AccountGateway = (*AccountClient)(nil)

// Accounts returns the account-service gateway
func (c *Clients) Accounts() *AccountClient {
	return &AccountClient{client: c.client("account", c.config.AccountServiceURL)}
}

type account struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
}

// GetAccountNames resolves account display names by id
func (c *AccountClient) GetAccountNames(ctx context.Context, ids []string) (map[string]string, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("fields", "name")

	var accounts []account
	if err := c.read(ctx, "getAccountNames", http.MethodGet, "/api/v1/accounts?"+q.Encode(), nil, &accounts); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.AccountID] = a.Name
	}
	return names, nil
}

// ShippingClient calls shipping-service
type ShippingClient struct {
	*client
}

var _ application.ShippingGateway = (*ShippingClient)(nil)

// Shipping returns the shipping-service gateway
func (c *Clients) Shipping() *ShippingClient {
	return &ShippingClient{client: c.client("shipping", c.config.ShippingServiceURL)}
}

// CreateLabel requests a carrier label
func (c *ShippingClient) CreateLabel(ctx context.Context, req application.LabelRequest) (*application.Label, error) {
	var label application.Label
	if err := c.write(ctx, "createLabel", http.MethodPost, "/api/v1/labels", req, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// TenantClient calls tenant-service for datastore settings
type TenantClient struct {
	*client
}

var _ tenant.SettingsProvider = (*TenantClient)(nil)

// Tenants returns the tenant-service gateway
func (c *Clients) Tenants() *TenantClient {
	return &TenantClient{client: c.client("tenant", c.config.TenantServiceURL)}
}

// GetDatastoreSettings returns nil settings for a tenant the service does not know
func (c *TenantClient) GetDatastoreSettings(ctx context.Context, tenantID string) (*tenant.DatastoreSettings, error) {
	var settings tenant.DatastoreSettings
	path := fmt.Sprintf("/api/v1/tenants/%s/datastore", url.PathEscape(tenantID))
	err := c.read(ctx, "getDatastoreSettings", http.MethodGet, path, nil, &settings)
	if stderrors.Is(err, errors.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
