package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFulfillmentCreated("CONTAINER_QUANTITY")
		m.RecordInventoryDebit("CONTAINER_QUANTITY", false)
		m.RecordUncompensatedDebits("CONTAINER_QUANTITY", 2)
		m.RecordSagaStep("debit", true, time.Millisecond)
		m.SetCircuitBreakerState("inventory", 2)
		m.IncrementHTTPRequestsInFlight()
	})
}

func TestRecorders(t *testing.T) {
	m := New(DefaultConfig("outbound-fulfillment-service"))

	m.RecordFulfillmentCreated("LOCATION_QUANTITY")
	m.RecordFulfillmentCreated("LOCATION_QUANTITY")
	m.RecordInventoryDebit("LOCATION_QUANTITY", false)
	m.RecordUncompensatedDebits("LOCATION_QUANTITY", 0)
	m.RecordUncompensatedDebits("LOCATION_QUANTITY", 3)
	m.SetCircuitBreakerState("inventory", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.FulfillmentsCreated.WithLabelValues("outbound-fulfillment-service", "LOCATION_QUANTITY")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InventoryDebits.WithLabelValues("outbound-fulfillment-service", "LOCATION_QUANTITY", "error")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.UncompensatedDebits.WithLabelValues("outbound-fulfillment-service", "LOCATION_QUANTITY")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("outbound-fulfillment-service", "inventory")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["wms_fulfillments_created_total"])
	assert.True(t, names["wms_uncompensated_debits_total"])
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(DefaultConfig("outbound-fulfillment-service"))
	m.RecordSequenceAllocation("OFR", true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wms_sequence_allocations_total")
}
