package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeTableChangesApplied = "TableChangesApplied"
	TypeRowChanged          = "RowChanged"
)

// RowFailure describes one row operation that the backing store rejected
type RowFailure struct {
	ID      string `json:"id"`
	Op      string `json:"op"`
	Message string `json:"message"`
}

// TableChangesApplied is raised after a change set was replayed against a table
type TableChangesApplied struct {
	BaseEvent
	Table    string       `json:"table"`
	Added    []string     `json:"added"`
	Deleted  []string     `json:"deleted"`
	Modified []string     `json:"modified"`
	Failures []RowFailure `json:"failures,omitempty"`
}

// Succeeded reports whether every row operation went through
func (e TableChangesApplied) Succeeded() bool {
	return len(e.Failures) == 0
}

// NewTableChangesApplied creates a TableChangesApplied event
func NewTableChangesApplied(table string, added, deleted, modified []string, failures []RowFailure, timestamp time.Time) TableChangesApplied {
	return TableChangesApplied{
		BaseEvent: BaseEvent{
			AggregateID: table,
			EventType:   TypeTableChangesApplied,
			Timestamp:   timestamp,
			Version:     1,
		},
		Table:    table,
		Added:    added,
		Deleted:  deleted,
		Modified: modified,
		Failures: failures,
	}
}

// RowChanged is raised by the single-row operations (add, update, delete)
type RowChanged struct {
	BaseEvent
	Table string `json:"table"`
	RowID string `json:"row_id"`
	Op    string `json:"op"`
}

// NewRowChanged creates a RowChanged event
func NewRowChanged(table, rowID, op string, timestamp time.Time) RowChanged {
	return RowChanged{
		BaseEvent: BaseEvent{
			AggregateID: table,
			EventType:   TypeRowChanged,
			Timestamp:   timestamp,
			Version:     1,
		},
		Table: table,
		RowID: rowID,
		Op:    op,
	}
}
