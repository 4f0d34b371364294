package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("product-service")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cb := NewCircuitBreaker(cfg, logging.Nop(), nil)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := Call(context.Background(), cb, func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	_, err := Call(context.Background(), cb, func() (string, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCall_ReturnsTypedResult(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("task-service"), logging.Nop(), nil)

	got, err := Call(context.Background(), cb, func() ([]int, error) { return []int{1, 2}, nil })

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestRegistry_ReusesBreakers(t *testing.T) {
	r := NewCircuitBreakerRegistry(logging.Nop(), nil)

	a := r.Get("inventory-service")
	b := r.Get("inventory-service")

	assert.Same(t, a, b)
	assert.Equal(t, map[string]string{"inventory-service": "closed"}, r.Status())
}
