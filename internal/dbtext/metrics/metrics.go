// Package metrics collects lightweight runtime counters for the query
// engine, adapted from the teacher repo's monitoring.MetricsCollector:
// the same atomic-counter shape, retargeted at query/row/compaction
// counts instead of conversion-pipeline counts.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Collector accumulates engine-wide counters. All methods are safe for
// concurrent use from any thread (spec.md §5).
type Collector struct {
	queriesExecuted  int64
	statementsFailed int64
	rowsScanned      int64
	rowsAffected     int64
	compactions      int64

	errCountMu sync.RWMutex
	errCounts  map[string]int64
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{errCounts: make(map[string]int64)}
}

func (c *Collector) IncQueriesExecuted()         { atomic.AddInt64(&c.queriesExecuted, 1) }
func (c *Collector) IncStatementsFailed()        { atomic.AddInt64(&c.statementsFailed, 1) }
func (c *Collector) AddRowsScanned(n int64)       { atomic.AddInt64(&c.rowsScanned, n) }
func (c *Collector) AddRowsAffected(n int64)      { atomic.AddInt64(&c.rowsAffected, n) }
func (c *Collector) IncCompactions()              { atomic.AddInt64(&c.compactions, 1) }

// RecordError increments a named error-kind counter (e.g. "SchemaError").
func (c *Collector) RecordError(kind string) {
	c.errCountMu.Lock()
	defer c.errCountMu.Unlock()
	c.errCounts[kind]++
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	QueriesExecuted  int64
	StatementsFailed int64
	RowsScanned      int64
	RowsAffected     int64
	Compactions      int64
	ErrorsByKind     map[string]int64
}

func (c *Collector) Snapshot() Snapshot {
	c.errCountMu.RLock()
	defer c.errCountMu.RUnlock()
	byKind := make(map[string]int64, len(c.errCounts))
	for k, v := range c.errCounts {
		byKind[k] = v
	}
	return Snapshot{
		QueriesExecuted:  atomic.LoadInt64(&c.queriesExecuted),
		StatementsFailed: atomic.LoadInt64(&c.statementsFailed),
		RowsScanned:      atomic.LoadInt64(&c.rowsScanned),
		RowsAffected:     atomic.LoadInt64(&c.rowsAffected),
		Compactions:      atomic.LoadInt64(&c.compactions),
		ErrorsByKind:     byKind,
	}
}
