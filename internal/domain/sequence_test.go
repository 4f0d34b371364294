package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequenceFormats(t *testing.T) {
	assert.Equal(t, "OFR-00000042", FulfillmentIDSequence().Format(42))

	gin := GINSequence(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "gin-2026", gin.Name)
	assert.Equal(t, "GIN/2026/000007", gin.Format(7))
}

func TestIsKnownSequenceName(t *testing.T) {
	assert.True(t, IsKnownSequenceName("fulfillment-id"))
	assert.True(t, IsKnownSequenceName("gin-2026"))
	assert.False(t, IsKnownSequenceName("gin-26"))
	assert.False(t, IsKnownSequenceName("gin-abcd"))
	assert.False(t, IsKnownSequenceName("orders"))
}
