package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all fulfillment service metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	TenantConnectionsOpen    prometheus.Gauge
	TenantFallbacks          *prometheus.CounterVec

	// Fulfillment metrics
	FulfillmentsCreated  *prometheus.CounterVec
	InventoryDebits      *prometheus.CounterVec
	UncompensatedDebits  *prometheus.CounterVec
	SagaStepDuration     *prometheus.HistogramVec
	SequenceAllocations  *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	GatewayCalls         *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	m.TenantConnectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "tenant_connections_open",
			Help:        "Number of cached tenant datastore clients",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.TenantFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "tenant_datastore_fallbacks_total",
			Help:      "Requests routed to the default datastore, by reason",
		},
		[]string{"service", "reason"},
	)

	m.FulfillmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "fulfillments_created_total",
			Help:      "Total number of order fulfillment requests created",
		},
		[]string{"service", "fulfillment_type"},
	)

	m.InventoryDebits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "inventory_debits_total",
			Help:      "Inventory debit calls issued by the reservation saga",
		},
		[]string{"service", "fulfillment_type", "status"},
	)

	m.UncompensatedDebits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "uncompensated_debits_total",
			Help:      "Debits left applied after a later saga step failed",
		},
		[]string{"service", "fulfillment_type"},
	)

	m.SagaStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "saga_step_duration_seconds",
			Help:      "Reservation saga step duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"service", "step", "status"},
	)

	m.SequenceAllocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "sequence_allocations_total",
			Help:      "Identifiers issued by the sequence allocator",
		},
		[]string{"service", "sequence", "status"},
	)

	m.StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "fulfillment_status_transitions_total",
			Help:      "Fulfillment status transitions applied",
		},
		[]string{"service", "to"},
	)

	m.GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "gateway_calls_total",
			Help:      "Calls to external service gateways",
		},
		[]string{"service", "gateway", "operation", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.TenantConnectionsOpen,
		m.TenantFallbacks,
		m.FulfillmentsCreated,
		m.InventoryDebits,
		m.UncompensatedDebits,
		m.SagaStepDuration,
		m.SequenceAllocations,
		m.StatusTransitions,
		m.GatewayCalls,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetTenantConnections sets the number of cached tenant clients
func (m *Metrics) SetTenantConnections(count int) {
	if m == nil {
		return
	}
	m.TenantConnectionsOpen.Set(float64(count))
}

// RecordTenantFallback records a request routed to the default datastore
func (m *Metrics) RecordTenantFallback(reason string) {
	if m == nil {
		return
	}
	m.TenantFallbacks.WithLabelValues(m.serviceName, reason).Inc()
}

// RecordFulfillmentCreated records a created fulfillment request
func (m *Metrics) RecordFulfillmentCreated(fulfillmentType string) {
	if m == nil {
		return
	}
	m.FulfillmentsCreated.WithLabelValues(m.serviceName, fulfillmentType).Inc()
}

// RecordInventoryDebit records one debit call
func (m *Metrics) RecordInventoryDebit(fulfillmentType string, success bool) {
	if m == nil {
		return
	}
	m.InventoryDebits.WithLabelValues(m.serviceName, fulfillmentType, statusLabel(success)).Inc()
}

// RecordUncompensatedDebits records debits left applied by a failed saga
func (m *Metrics) RecordUncompensatedDebits(fulfillmentType string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.UncompensatedDebits.WithLabelValues(m.serviceName, fulfillmentType).Add(float64(count))
}

// RecordSagaStep records the duration of one saga step
func (m *Metrics) RecordSagaStep(step string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.SagaStepDuration.WithLabelValues(m.serviceName, step, statusLabel(success)).Observe(duration.Seconds())
}

// RecordSequenceAllocation records an allocator call
func (m *Metrics) RecordSequenceAllocation(sequence string, success bool) {
	if m == nil {
		return
	}
	m.SequenceAllocations.WithLabelValues(m.serviceName, sequence, statusLabel(success)).Inc()
}

// RecordStatusTransition records a fulfillment status change
func (m *Metrics) RecordStatusTransition(to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(m.serviceName, to).Inc()
}

// RecordGatewayCall records an external gateway call
func (m *Metrics) RecordGatewayCall(gateway, operation string, success bool) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(m.serviceName, gateway, operation, statusLabel(success)).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}
