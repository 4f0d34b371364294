package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// FulfillmentSequenceName is the counter behind fulfillment ids
	FulfillmentSequenceName = "fulfillment-id"

	ginSequencePrefix = "gin-"
)

// Sequence names a persistent counter and how its values are rendered
type Sequence struct {
	Name   string
	format func(value int64) string
}

// FulfillmentIDSequence renders OFR-00000042
func FulfillmentIDSequence() Sequence {
	return Sequence{
		Name:   FulfillmentSequenceName,
		format: func(v int64) string { return fmt.Sprintf("OFR-%08d", v) },
	}
}

// GINSequence is year scoped and renders GIN/2026/000042
func GINSequence(at time.Time) Sequence {
	year := at.UTC().Year()
	return Sequence{
		Name:   fmt.Sprintf("%s%d", ginSequencePrefix, year),
		format: func(v int64) string { return fmt.Sprintf("GIN/%d/%06d", year, v) },
	}
}

// Format renders a counter value
func (s Sequence) Format(value int64) string {
	if s.format == nil {
		return fmt.Sprintf("%d", value)
	}
	return s.format(value)
}

// IsKnownSequenceName reports whether name belongs to a sequence this service allocates from
func IsKnownSequenceName(name string) bool {
	if name == FulfillmentSequenceName {
		return true
	}
	year, ok := strings.CutPrefix(name, ginSequencePrefix)
	if !ok || len(year) != 4 {
		return false
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
