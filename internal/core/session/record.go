// Package session defines the permanent record of completed work periods.
package session

import (
	"context"
	"sync"
	"time"
)

// Adjustment is one committed change to a session's elapsed time.
type Adjustment struct {
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is an immutable entry in the session log.
type Record struct {
	ID                int64
	Title             string
	StartTime         time.Time
	StatisticalDateID string
	EndTime           time.Time
	RecordedDuration  int
	ActualDuration    int
	NetDuration       int
	GoalMinutes       int
	PauseCount        int
	Adjustments       []Adjustment
	TotalAdjustment   int
}

// TotalOf sums adjustment amounts.
func TotalOf(adjustments []Adjustment) int {
	total := 0
	for _, adjustment := range adjustments {
		total += adjustment.Amount
	}
	return total
}

// Log persists session records. Implementations must tolerate being called
// from the timer's goroutine and must never panic on malformed data.
type Log interface {
	List(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, record Record) error
	Remove(ctx context.Context, id int64) error
	Replace(ctx context.Context, records []Record) error
}

// MemoryLog is an in-process Log used when no store is configured.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// List returns a copy of all records in append order.
func (memory *MemoryLog) List(context.Context) ([]Record, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return append([]Record(nil), memory.records...), nil
}

// Append adds a record to the end of the log.
func (memory *MemoryLog) Append(_ context.Context, record Record) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.records = append(memory.records, record)
	return nil
}

// Remove deletes the record with the given id, if present.
func (memory *MemoryLog) Remove(_ context.Context, id int64) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	for index, record := range memory.records {
		if record.ID == id {
			memory.records = append(memory.records[:index], memory.records[index+1:]...)
			return nil
		}
	}
	return nil
}

// Replace overwrites the whole log.
func (memory *MemoryLog) Replace(_ context.Context, records []Record) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.records = append([]Record(nil), records...)
	return nil
}
