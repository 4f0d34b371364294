package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
)

// Config holds middleware configuration
type Config struct {
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	ServiceName    string
	EnableCORS     bool
	EnableTracing  bool
	TrustedProxies []string
	Tenant         *TenantAuthConfig
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig(serviceName string, logger *logging.Logger) *Config {
	return &Config{
		Logger:      logger,
		ServiceName: serviceName,
		EnableCORS:  true,
		Tenant:      DefaultTenantAuthConfig(),
	}
}

// Setup applies all standard middleware to a Gin router
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(Recovery(config.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	if config.EnableTracing {
		router.Use(Tracing(config.ServiceName))
	}
	if config.Metrics != nil {
		router.Use(Metrics(config.Metrics))
	}
	router.Use(Logger(config.Logger))

	if config.EnableCORS {
		router.Use(CORS())
	}

	router.Use(TenantAuth(config.Tenant))
	router.Use(ErrorHandler(config.Logger))

	router.NoRoute(NoRoute())
	router.NoMethod(NoMethod())
	router.HandleMethodNotAllowed = true
}

// CORS middleware for handling Cross-Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Correlation-ID, X-WMS-Tenant-ID, X-WMS-Facility-ID, X-WMS-Warehouse-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-Correlation-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// HealthCheck creates a health check handler
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	}
}

// Dependency is one named dependency checked by ReadinessCheck
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReadinessCheck reports ready only when every dependency passes within two seconds.
// The body lists the outcome per dependency.
func ReadinessCheck(serviceName string, deps ...Dependency) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		checks := make(map[string]string, len(deps))
		for _, d := range deps {
			if err := d.Check(ctx); err != nil {
				checks[d.Name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			checks[d.Name] = "ok"
		}

		c.JSON(code, gin.H{
			"status":  status,
			"service": serviceName,
			"checks":  checks,
		})
	}
}

// NoRoute answers unknown paths in the standard error envelope
func NoRoute() gin.HandlerFunc {
	return routingError(http.StatusNotFound, "ROUTE_NOT_FOUND", "The requested resource was not found")
}

// NoMethod answers unsupported methods in the standard error envelope
func NoMethod() gin.HandlerFunc {
	return routingError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource")
}

func routingError(status int, code, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(status, APIErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: GetRequestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      c.Request.URL.Path,
		})
	}
}
