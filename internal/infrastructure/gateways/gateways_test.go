package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/resilience"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

func newClients(url string) *Clients {
	return NewClients(&Config{
		InventoryServiceURL: url,
		ProductServiceURL:   url,
		TaskServiceURL:      url,
		AccountServiceURL:   url,
		ShippingServiceURL:  url,
		TenantServiceURL:    url,
		Timeout:             2 * time.Second,
	}, logging.Nop(), nil)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestInventory_DebitBucket(t *testing.T) {
	var captured *http.Request
	var payload application.DebitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		jsonHandler(http.StatusOK, `{"bucketId":"B1","beforeQuantity":10,"afterQuantity":7}`)(w, r)
	}))
	defer server.Close()

	ctx := tenant.ToContext(context.Background(), &tenant.Context{TenantID: "acme", FacilityID: "FAC-1"})
	ctx = logging.ContextWithCorrelationID(ctx, "corr-1")

	result, err := newClients(server.URL).Inventory().DebitBucket(ctx, application.DebitRequest{BucketID: "B1", Quantity: 3, Reference: "OFR-00000001"})

	require.NoError(t, err)
	assert.Equal(t, 10, result.BeforeQuantity)
	assert.Equal(t, 7, result.AfterQuantity)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/api/v1/buckets/B1/debit", captured.URL.Path)
	assert.Equal(t, "acme", captured.Header.Get("X-WMS-Tenant-ID"))
	assert.Equal(t, "FAC-1", captured.Header.Get("X-WMS-Facility-ID"))
	assert.Equal(t, "corr-1", captured.Header.Get("X-Correlation-ID"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, 3, payload.Quantity)
}

func TestInventory_LocationDebitAndLookups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/buckets/B1/location-debit", func(w http.ResponseWriter, r *http.Request) {
		var req application.LocationDebitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Breakdown, 2)
		jsonHandler(http.StatusOK, `{"bucketId":"B1","beforeQuantity":8,"afterQuantity":0}`)(w, r)
	})
	mux.HandleFunc("/api/v1/buckets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "B1,B2", r.URL.Query().Get("ids"))
		jsonHandler(http.StatusOK, `{"buckets":[{"bucketId":"B1","skuId":"SKU-1","availableQuantity":8,"locations":[{"locationId":"A-01","quantity":3}]}]}`)(w, r)
	})
	mux.HandleFunc("/api/v1/storage-items/lookup", jsonHandler(http.StatusOK, `{"items":[{"storageItemId":"SI-1","barcode":"ITM-1","skuId":"SKU-1","bucketId":"B1"}]}`))
	mux.HandleFunc("/api/v1/inventory/allocations", jsonHandler(http.StatusOK, `{"allocations":[{"locationId":"A-01","bucketId":"B1","quantity":5}]}`))
	mux.HandleFunc("/api/v1/inventory/transactions", jsonHandler(http.StatusCreated, `{"transactionId":"TX-1"}`))
	mux.HandleFunc("/api/v1/package-barcodes/consume", jsonHandler(http.StatusNoContent, ``))
	server := httptest.NewServer(mux)
	defer server.Close()

	inv := newClients(server.URL).Inventory()
	ctx := context.Background()

	debit, err := inv.DebitBucketLocations(ctx, application.LocationDebitRequest{
		BucketID:  "B1",
		Breakdown: []domain.LocationQuantity{{LocationID: "A-01", Quantity: 3}, {LocationID: "A-02", Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, debit.AfterQuantity)

	buckets, err := inv.GetBuckets(ctx, []string{"B1", "B2"})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	qty, ok := buckets[0].LocationQuantity("A-01")
	assert.True(t, ok)
	assert.Equal(t, 3, qty)

	items, err := inv.LookupStorageItems(ctx, []string{"ITM-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SI-1", items[0].StorageItemID)

	allocs, err := inv.AllocateLocations(ctx, application.AllocationRequest{SKUID: "SKU-1", Quantity: 5, TieBreak: application.TieBreakFIFO})
	require.NoError(t, err)
	assert.Equal(t, []domain.LocationAllocation{{LocationID: "A-01", BucketID: "B1", Quantity: 5}}, allocs)

	txID, err := inv.CreateTransaction(ctx, application.TransactionRequest{BucketID: "B1", Quantity: 8})
	require.NoError(t, err)
	assert.Equal(t, "TX-1", txID)

	require.NoError(t, inv.ConsumePackageBarcodes(ctx, []string{"PKG-1"}))

	empty, err := inv.GetBuckets(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
		check  func(t *testing.T, appErr *errors.AppError)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"code":"RESOURCE_NOT_FOUND","message":"bucket B9 not found","details":{"bucketId":"B9"}}`,
			code:   errors.CodeNotFound,
			check: func(t *testing.T, appErr *errors.AppError) {
				assert.Equal(t, "B9", appErr.Details["bucketId"])
			},
		},
		{
			name:   "insufficient inventory",
			status: http.StatusUnprocessableEntity,
			body:   `{"code":"INSUFFICIENT_INVENTORY","message":"short","details":{"bucketId":"B1","requested":"5","available":"2"}}`,
			code:   errors.CodeInsufficientInventory,
			check: func(t *testing.T, appErr *errors.AppError) {
				shortfall, ok := errors.Shortfall(appErr)
				require.True(t, ok)
				assert.Equal(t, 3, shortfall)
			},
		},
		{
			name:   "duplicate",
			status: http.StatusConflict,
			body:   `{"code":"DUPLICATE","message":"barcode used","details":{"barcode":"PKG-1"}}`,
			code:   errors.CodeDuplicate,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
			code:   errors.CodeDependencyFailed,
			check: func(t *testing.T, appErr *errors.AppError) {
				assert.Equal(t, "500", appErr.Details["status"])
				assert.Equal(t, "inventory", appErr.Details["service"])
				assert.Contains(t, appErr.Error(), "oops")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(jsonHandler(tt.status, tt.body))
			defer server.Close()

			_, err := newClients(server.URL).Inventory().DebitBucket(context.Background(), application.DebitRequest{BucketID: "B1", Quantity: 5})

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tt.code, appErr.Code)
			if tt.check != nil {
				tt.check(t, appErr)
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusOK, `{not json`))
	defer server.Close()

	_, err := newClients(server.URL).Inventory().DebitBucket(context.Background(), application.DebitRequest{BucketID: "B1", Quantity: 1})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeDependencyFailed, appErr.Code)
}

func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	clients := NewClients(&Config{ShippingServiceURL: server.URL, Timeout: 20 * time.Millisecond}, logging.Nop(), nil)

	_, err := clients.Shipping().CreateLabel(context.Background(), application.LabelRequest{FulfillmentID: "OFR-1"})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeTimeout, appErr.Code)
	assert.Equal(t, "shipping", appErr.Details["service"])
}

func TestReadBreakerTripsOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	products := newClients(server.URL).Products()
	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		_, err := products.GetSKUs(context.Background(), []string{"SKU-1"}, nil)
		require.Error(t, err)
	}

	_, err := products.GetSKUs(context.Background(), []string{"SKU-1"}, nil)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeServiceUnavailable, appErr.Code)
	assert.Equal(t, int32(resilience.DefaultFailureThreshold), hits.Load())
}

func TestReadBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tasks := newClients(server.URL).Tasks()
	for i := 0; i < 10; i++ {
		_, err := tasks.GetTask(context.Background(), "TSK-1")
		assert.ErrorIs(t, err, errors.KindNotFound)
	}
	assert.Equal(t, int32(10), hits.Load())
}

func TestWritesBypassBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	inv := newClients(server.URL).Inventory()
	for i := 0; i < 8; i++ {
		_, err := inv.DebitBucket(context.Background(), application.DebitRequest{BucketID: "B1", Quantity: 1})
		assert.ErrorIs(t, err, errors.KindDependencyFailed)
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestTasks(t *testing.T) {
	var kind string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		kind, _ = body["taskKind"].(string)
		assert.Equal(t, "OFR-00000001", body["fulfillmentId"])
		jsonHandler(http.StatusCreated, `{"taskCode":"TSK-1","taskKind":"PICKING","status":"OPEN"}`)(w, r)
	})
	mux.HandleFunc("/api/v1/tasks/TSK-1", jsonHandler(http.StatusOK, `{"taskCode":"TSK-1","taskKind":"PICKING","status":"DONE"}`))
	server := httptest.NewServer(mux)
	defer server.Close()

	tasks := newClients(server.URL).Tasks()

	code, err := tasks.CreateTask(context.Background(), domain.TaskKindPicking, application.TaskPayload{FulfillmentID: "OFR-00000001"})
	require.NoError(t, err)
	assert.Equal(t, "TSK-1", code)
	assert.Equal(t, domain.TaskKindPicking, kind)

	task, err := tasks.GetTask(context.Background(), "TSK-1")
	require.NoError(t, err)
	assert.Equal(t, "DONE", task.Status)
}

func TestTasks_EmptyCodeIsDependencyFailure(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusCreated, `{}`))
	defer server.Close()

	_, err := newClients(server.URL).Tasks().CreateTask(context.Background(), domain.TaskKindPackMove, application.TaskPayload{})

	assert.ErrorIs(t, err, errors.KindDependencyFailed)
}

func TestAccountsAndProducts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ACC-1,ACC-2", r.URL.Query().Get("ids"))
		jsonHandler(http.StatusOK, `[{"accountId":"ACC-1","name":"Acme"},{"accountId":"ACC-2","name":"Globex"}]`)(w, r)
	})
	mux.HandleFunc("/api/v1/skus", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tieBreakMethod", r.URL.Query().Get("fields"))
		jsonHandler(http.StatusOK, `[{"skuId":"SKU-1","tieBreakMethod":"LIFO"}]`)(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	clients := newClients(server.URL)

	names, err := clients.Accounts().GetAccountNames(context.Background(), []string{"ACC-1", "ACC-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ACC-1": "Acme", "ACC-2": "Globex"}, names)

	skus, err := clients.Products().GetSKUs(context.Background(), []string{"SKU-1"}, []string{"tieBreakMethod"})
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, application.TieBreakLIFO, skus[0].TieBreakMethod)
}

func TestShipping_CreateLabel(t *testing.T) {
	server := httptest.NewServer(jsonHandler(http.StatusCreated, `{"awbNumber":"AWB-1","trackingNumber":"TRK-1"}`))
	defer server.Close()

	label, err := newClients(server.URL).Shipping().CreateLabel(context.Background(), application.LabelRequest{
		FulfillmentID:   "OFR-1",
		CarrierCode:     "UPS",
		PackageBarcodes: []string{"PKG-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "AWB-1", label.AWBNumber)
}

func TestTenants_GetDatastoreSettings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tenants/acme/datastore", jsonHandler(http.StatusOK,
		`{"uri":"mongodb://acme:27017","database":"acme","username":"svc","password":"pw","credentialVersion":"v3"}`))
	mux.HandleFunc("/api/v1/tenants/ghost/datastore", jsonHandler(http.StatusNotFound, `{}`))
	server := httptest.NewServer(mux)
	defer server.Close()

	tenants := newClients(server.URL).Tenants()

	settings, err := tenants.GetDatastoreSettings(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, settings.HasCredentials())
	assert.Equal(t, "v3", settings.CredentialVersion)

	missing, err := tenants.GetDatastoreSettings(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPropagatesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-span")
	defer span.End()

	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		jsonHandler(http.StatusOK, `[{"accountId":"ACC-1","name":"Acme"}]`)(w, r)
	}))
	defer server.Close()

	_, err := newClients(server.URL).Accounts().GetAccountNames(ctx, []string{"ACC-1"})

	require.NoError(t, err)
	assert.Contains(t, captured.Get("traceparent"), span.SpanContext().TraceID().String())
}
