package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Status is the fulfillment life-cycle status
type Status string

const (
	StatusReceived    Status = "RECEIVED"
	StatusAllocated   Status = "ALLOCATED"
	StatusPicking     Status = "PICKING"
	StatusPicked      Status = "PICKED"
	StatusPacking     Status = "PACKING"
	StatusPacked      Status = "PACKED"
	StatusReadyToShip Status = "READY_TO_SHIP"
	StatusShipped     Status = "SHIPPED"
	StatusDelivered   Status = "DELIVERED"
	StatusCancelled   Status = "CANCELLED"
	StatusOnHold      Status = "ON_HOLD"
)

// AllStatuses lists every status in life-cycle order
var AllStatuses = []Status{
	StatusReceived, StatusAllocated, StatusPicking, StatusPicked, StatusPacking, StatusPacked,
	StatusReadyToShip, StatusShipped, StatusDelivered, StatusCancelled, StatusOnHold,
}

// Status errors
var (
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotOnHold           = errors.New("fulfillment is not on hold")
	ErrStatusLogCorrupted  = errors.New("status history must have exactly one current entry")
	ErrStatusCacheMismatch = errors.New("cached fulfillment status does not match status history")
)

// forward lists the non-exceptional successors of each status
var forward = map[Status][]Status{
	StatusReceived:    {StatusAllocated},
	StatusAllocated:   {StatusPicking, StatusPicked, StatusReadyToShip},
	StatusPicking:     {StatusPicked, StatusReadyToShip},
	StatusPicked:      {StatusPacking, StatusPacked, StatusReadyToShip},
	StatusPacking:     {StatusPacked, StatusReadyToShip},
	StatusPacked:      {StatusReadyToShip},
	StatusReadyToShip: {StatusShipped},
	StatusShipped:     {StatusDelivered},
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether to may directly follow s. ON_HOLD resumption is
// handled by StatusLog.Resume since its target depends on history.
func (s Status) CanTransitionTo(to Status) bool {
	if s.IsTerminal() {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusOnHold:
		return s != StatusOnHold
	}
	for _, next := range forward[s] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusEntry is one immutable row of the status history
type StatusEntry struct {
	Status         Status    `bson:"status" json:"status"`
	PreviousStatus Status    `bson:"previousStatus,omitempty" json:"previousStatus,omitempty"`
	CurrentStatus  bool      `bson:"currentStatus" json:"currentStatus"`
	ChangedAt      time.Time `bson:"changedAt" json:"changedAt"`
	ChangedBy      string    `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	Reason         string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// StatusLog is the append-only status history. Its only mutators are
// Transition and Resume, which return a new log with exactly one current entry.
type StatusLog struct {
	entries []StatusEntry
}

// NewStatusLog starts a history at initial
func NewStatusLog(initial Status, by string, at time.Time) (StatusLog, error) {
	if !initial.IsValid() {
		return StatusLog{}, fmt.Errorf("%w: %s", ErrInvalidStatus, initial)
	}
	return StatusLog{entries: []StatusEntry{{
		Status:        initial,
		CurrentStatus: true,
		ChangedAt:     at,
		ChangedBy:     by,
	}}}, nil
}

// Current returns the current entry; the zero entry for an empty log
func (l StatusLog) Current() StatusEntry {
	if len(l.entries) == 0 {
		return StatusEntry{}
	}
	return l.entries[len(l.entries)-1]
}

// Entries returns a copy of the history, oldest first
func (l StatusLog) Entries() []StatusEntry {
	out := make([]StatusEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries
func (l StatusLog) Len() int {
	return len(l.entries)
}

// Contains reports whether status was ever recorded
func (l StatusLog) Contains(status Status) bool {
	for _, e := range l.entries {
		if e.Status == status {
			return true
		}
	}
	return false
}

// Transition appends to as the new current entry
func (l StatusLog) Transition(to Status, by, reason string, at time.Time) (StatusLog, error) {
	from := l.Current().Status
	if !to.IsValid() {
		return l, fmt.Errorf("%w: %s", ErrInvalidStatus, to)
	}
	if !from.CanTransitionTo(to) {
		return l, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return l.appendEntry(to, by, reason, at)
}

// Resume leaves ON_HOLD for the status it was held from
func (l StatusLog) Resume(by, reason string, at time.Time) (StatusLog, error) {
	current := l.Current()
	if current.Status != StatusOnHold {
		return l, ErrNotOnHold
	}
	return l.appendEntry(current.PreviousStatus, by, reason, at)
}

func (l StatusLog) appendEntry(to Status, by, reason string, at time.Time) (StatusLog, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}

	next := make([]StatusEntry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	prev := &next[len(next)-1]
	prev.CurrentStatus = false

	next = append(next, StatusEntry{
		Status:         to,
		PreviousStatus: prev.Status,
		CurrentStatus:  true,
		ChangedAt:      at,
		ChangedBy:      by,
		Reason:         reason,
	})

	out := StatusLog{entries: next}
	if err := out.Validate(); err != nil {
		return l, err
	}
	return out, nil
}

// Validate checks that exactly one entry, the last, is current
func (l StatusLog) Validate() error {
	current := 0
	for i, e := range l.entries {
		if e.CurrentStatus {
			current++
			if i != len(l.entries)-1 {
				return ErrStatusLogCorrupted
			}
		}
	}
	if current != 1 {
		return ErrStatusLogCorrupted
	}
	return nil
}

// MarshalBSONValue stores the log as a plain array
func (l StatusLog) MarshalBSONValue() (bsontype.Type, []byte, error) {
	entries := l.entries
	if entries == nil {
		entries = []StatusEntry{}
	}
	return bson.MarshalValue(entries)
}

// UnmarshalBSONValue reads the plain array form
func (l *StatusLog) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		l.entries = nil
		return nil
	}
	var entries []StatusEntry
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&entries); err != nil {
		return fmt.Errorf("decode status history: %w", err)
	}
	l.entries = entries
	return nil
}

// MarshalJSON renders the log as an array
func (l StatusLog) MarshalJSON() ([]byte, error) {
	entries := l.entries
	if entries == nil {
		entries = []StatusEntry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON reads the array form
func (l *StatusLog) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &l.entries)
}
