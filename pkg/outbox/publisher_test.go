package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
)

type memRepo struct {
	events    []*OutboxEvent
	published map[string]bool
	retries   map[string]int
}

func newMemRepo(events ...*OutboxEvent) *memRepo {
	return &memRepo{events: events, published: map[string]bool{}, retries: map[string]int{}}
}

func (r *memRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *memRepo) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	var out []*OutboxEvent
	for _, e := range r.events {
		if !r.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) MarkPublished(ctx context.Context, eventID string) error {
	r.published[eventID] = true
	return nil
}

func (r *memRepo) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.retries[eventID]++
	return nil
}

type recordingProducer struct {
	failType string
	sent     []string
}

func (p *recordingProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	if event.Type == p.failType {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, topic+"|"+event.Type)
	return nil
}

func outboxEvent(t *testing.T, eventType string) *OutboxEvent {
	t.Helper()
	ce := cloudevents.NewEventFactory(cloudevents.SourceOutboundFulfillment).
		CreateFulfillmentEvent(context.Background(), eventType, cloudevents.FulfillmentEventData{FulfillmentID: "OFR-00000001"})
	e, err := NewOutboxEventFromCloudEvent("OFR-00000001", "OrderFulfillmentRequest", "wms.fulfillment.events", ce)
	require.NoError(t, err)
	return e
}

func TestPublisher_DrainsEveryRepository(t *testing.T) {
	defaultRepo := newMemRepo(outboxEvent(t, cloudevents.FulfillmentCreated))
	tenantRepo := newMemRepo(outboxEvent(t, cloudevents.FulfillmentShipped))
	producer := &recordingProducer{}

	p := NewPublisher(func() []Repository { return []Repository{defaultRepo, tenantRepo} }, producer, logging.Nop(), nil)
	p.PublishPending(context.Background())

	assert.ElementsMatch(t, []string{
		"wms.fulfillment.events|" + cloudevents.FulfillmentCreated,
		"wms.fulfillment.events|" + cloudevents.FulfillmentShipped,
	}, producer.sent)
	assert.Equal(t, 2, p.Stats()["published"])
	assert.True(t, defaultRepo.published[defaultRepo.events[0].ID])
}

func TestPublisher_FailedPublishIncrementsRetry(t *testing.T) {
	failing := outboxEvent(t, cloudevents.GINIssued)
	repo := newMemRepo(failing)
	producer := &recordingProducer{failType: cloudevents.GINIssued}

	p := NewPublisher(func() []Repository { return []Repository{repo} }, producer, logging.Nop(), nil)
	p.PublishPending(context.Background())

	assert.Equal(t, 1, repo.retries[failing.ID])
	assert.False(t, repo.published[failing.ID])
	assert.Equal(t, 1, p.Stats()["failed"])
}

func TestPublisher_StartStopLifecycle(t *testing.T) {
	p := NewPublisher(func() []Repository { return nil }, &recordingProducer{}, logging.Nop(), &PublisherConfig{PollInterval: time.Hour, BatchSize: 10})
	ctx := context.Background()

	assert.Error(t, p.Healthy(ctx))
	require.NoError(t, p.Start(ctx))
	assert.NoError(t, p.Healthy(ctx))
	assert.Error(t, p.Start(ctx))

	require.NoError(t, p.Stop())
	assert.Error(t, p.Healthy(ctx))
	assert.Error(t, p.Stop())
}
