package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/middleware"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/resilience"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tracing"
)

// DefaultTimeout bounds every downstream call
const DefaultTimeout = 10 * time.Second

// Config holds service URLs
type Config struct {
	InventoryServiceURL string
	ProductServiceURL   string
	TaskServiceURL      string
	AccountServiceURL   string
	ShippingServiceURL  string
	TenantServiceURL    string
	Timeout             time.Duration
}

// Clients builds one gateway per downstream service over a shared http.Client
type Clients struct {
	config     *Config
	httpClient *http.Client
	breakers   *resilience.CircuitBreakerRegistry
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewClients creates the gateway set
func NewClients(config *Config, logger *logging.Logger, m *metrics.Metrics) *Clients {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Clients{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		breakers:   resilience.NewCircuitBreakerRegistry(logger, m),
		logger:     logger.WithComponent("gateways"),
		metrics:    m,
	}
}

// BreakerStatus reports the state of every read-side breaker
func (c *Clients) BreakerStatus() map[string]string {
	return c.breakers.Status()
}

func (c *Clients) client(service, baseURL string) *client {
	return &client{
		service:    service,
		baseURL:    baseURL,
		httpClient: c.httpClient,
		breaker:    c.breakers.Get(service),
		logger:     c.logger.WithFields(map[string]any{"gateway": service}),
		metrics:    c.metrics,
	}
}

// client talks to one downstream service
type client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// remoteError is the error body WMS services render
type remoteError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// write performs a non-idempotent call. Writes are never retried and bypass the breaker.
func (c *client) write(ctx context.Context, operation, method, path string, body, result interface{}) error {
	start := time.Now()
	err := c.doRequest(ctx, operation, method, c.baseURL+path, body, result)
	c.observe(ctx, operation, start, err)
	return err
}

// read performs an idempotent call through the service's circuit breaker.
// 4xx answers do not count as breaker failures.
func (c *client) read(ctx context.Context, operation, method, path string, body, result interface{}) error {
	start := time.Now()
	var answered error
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		err := c.doRequest(ctx, operation, method, c.baseURL+path, body, result)
		if isClientError(err) {
			answered = err
			return nil, nil
		}
		return nil, err
	})
	if err == nil {
		err = answered
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		err = errors.ErrServiceUnavailable(c.service).
			WithDetail("operation", operation).
			Wrap(err)
	}
	c.observe(ctx, operation, start, err)
	return err
}

func (c *client) observe(ctx context.Context, operation string, start time.Time, err error) {
	c.metrics.RecordGatewayCall(c.service, operation, err == nil)
	log := c.logger.WithContext(ctx)
	if err != nil {
		log.WithError(err).Warn("Gateway call failed", "operation", operation, "durationMs", time.Since(start).Milliseconds())
		return
	}
	log.Debug("Gateway call", "operation", operation, "durationMs", time.Since(start).Milliseconds())
}

func (c *client) doRequest(ctx context.Context, operation, method, url string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	propagateHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(operation, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= 400 {
		return c.statusError(operation, resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return errors.ErrDependencyFailed(c.service, operation).
				Wrap(fmt.Errorf("failed to unmarshal response: %w", err))
		}
	}

	return nil
}

func (c *client) transportError(operation string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.ErrTimeout(c.service+" "+operation).
			WithDetails(map[string]string{"service": c.service, "operation": operation}).
			Wrap(err)
	}
	return errors.ErrDependencyFailed(c.service, operation).Wrap(fmt.Errorf("request failed: %w", err))
}

func (c *client) statusError(operation string, status int, body []byte) error {
	cause := fmt.Errorf("request failed with status %d: %s", status, string(body))

	var remote remoteError
	_ = json.Unmarshal(body, &remote)

	switch {
	case status == http.StatusNotFound:
		msg := remote.Message
		if msg == "" {
			msg = fmt.Sprintf("%s %s: resource not found", c.service, operation)
		}
		return errors.NewAppError(errors.CodeNotFound, msg, http.StatusNotFound).
			WithDetails(remote.Details).
			Wrap(cause)
	case remote.Code == errors.CodeInsufficientInventory:
		requested, _ := strconv.Atoi(remote.Details["requested"])
		available, _ := strconv.Atoi(remote.Details["available"])
		return errors.ErrInsufficientInventory(remote.Details["bucketId"], requested, available).Wrap(cause)
	case status == http.StatusConflict && remote.Code == errors.CodeDuplicate:
		return errors.NewAppError(errors.CodeDuplicate, remote.Message, http.StatusConflict).
			WithDetails(remote.Details).
			Wrap(cause)
	}

	return errors.ErrDependencyFailed(c.service, operation).
		WithDetail("status", strconv.Itoa(status)).
		Wrap(cause)
}

func isClientError(err error) bool {
	appErr, ok := errors.AsAppError(err)
	return ok && appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500
}

// propagateHeaders forwards tenant scope, correlation ids and trace context
func propagateHeaders(ctx context.Context, h http.Header) {
	tc := tenant.FromContextOptional(ctx)
	if tc.TenantID != "" {
		h.Set(middleware.HeaderWMSTenantID, tc.TenantID)
	}
	if tc.FacilityID != "" {
		h.Set(middleware.HeaderWMSFacilityID, tc.FacilityID)
	}
	if tc.WarehouseID != "" {
		h.Set(middleware.HeaderWMSWarehouseID, tc.WarehouseID)
	}
	if v, ok := ctx.Value(logging.RequestIDKey).(string); ok && v != "" {
		h.Set(middleware.HeaderRequestID, v)
	}
	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok && v != "" {
		h.Set(middleware.HeaderCorrelationID, v)
	}
	if v, ok := ctx.Value(logging.UserIDKey).(string); ok && v != "" {
		h.Set(middleware.HeaderUserID, v)
	}
	tracing.InjectHeaders(ctx, h)
}
