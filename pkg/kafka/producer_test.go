package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
)

func headerMap(t *testing.T, event *cloudevents.WMSCloudEvent) map[string]string {
	t.Helper()
	msg, err := BuildMessage(event)
	require.NoError(t, err)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

func TestBuildMessage(t *testing.T) {
	event := &cloudevents.WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            cloudevents.FulfillmentCreated,
		Source:          cloudevents.SourceOutboundFulfillment,
		Subject:         "fulfillment/OFR-00000001",
		ID:              "evt-1",
		Time:            time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		DataContentType: "application/json",
		Data:            cloudevents.FulfillmentEventData{FulfillmentID: "OFR-00000001"},
		TenantID:        "acme",
	}

	msg, err := BuildMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "fulfillment/OFR-00000001", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, cloudevents.FulfillmentCreated, decoded["type"])

	headers := headerMap(t, event)
	assert.Equal(t, "acme", headers["ce-wmstenantid"])
	assert.Equal(t, "2026-03-01T10:00:00Z", headers["ce-time"])
	assert.NotContains(t, headers, "ce-traceparent")
}
