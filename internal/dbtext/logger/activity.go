package logger

import (
	"sync"
	"time"
)

// ActionType enumerates the kinds of engine activity the observer
// records, mirroring original_source/include/utils/activity_logger.h.
type ActionType int

const (
	ActionQueryExecuted ActionType = iota
	ActionDatabaseCreated
	ActionDatabaseRenamed
	ActionDatabaseDeleted
	ActionTableCreated
	ActionTableDropped
	ActionTableAltered
	ActionDataInserted
	ActionDataUpdated
	ActionDataDeleted
	ActionErrorOccurred
)

func (a ActionType) String() string {
	switch a {
	case ActionQueryExecuted:
		return "QUERY_EXECUTED"
	case ActionDatabaseCreated:
		return "DATABASE_CREATED"
	case ActionDatabaseRenamed:
		return "DATABASE_RENAMED"
	case ActionDatabaseDeleted:
		return "DATABASE_DELETED"
	case ActionTableCreated:
		return "TABLE_CREATED"
	case ActionTableDropped:
		return "TABLE_DROPPED"
	case ActionTableAltered:
		return "TABLE_ALTERED"
	case ActionDataInserted:
		return "DATA_INSERTED"
	case ActionDataUpdated:
		return "DATA_UPDATED"
	case ActionDataDeleted:
		return "DATA_DELETED"
	case ActionErrorOccurred:
		return "ERROR_OCCURRED"
	default:
		return "UNKNOWN"
	}
}

// ActivityEntry is one recorded event.
type ActivityEntry struct {
	ID        uint64
	Timestamp time.Time
	Action    ActionType
	Database  string
	Query     string
	Success   bool
	Error     string
}

// maxActivityEntries bounds the in-memory ring so a long-lived process
// doesn't grow this buffer unbounded (original_source caps at 10000).
const maxActivityEntries = 10000

// ActivityLogger is a thread-safe, pass-through observer of engine
// activity (spec.md §5): calls to it never hold a core lock and never
// block on I/O beyond a best-effort append. It is NOT a user-facing
// feature (spec.md §1 Non-goals) — it exists purely for the core's own
// diagnostics and for callers (e.g. a CLI) that want an audit trail.
type ActivityLogger struct {
	mu      sync.Mutex
	entries []ActivityEntry
	nextID  uint64
	log     *Logger
}

// NewActivityLogger creates an observer that also mirrors each entry to
// the given structured Logger (may be nil to record only in memory).
func NewActivityLogger(log *Logger) *ActivityLogger {
	return &ActivityLogger{log: log, nextID: 1}
}

// Record appends an entry, trimming the oldest if over capacity, and
// best-effort mirrors it to the structured logger.
func (a *ActivityLogger) Record(action ActionType, database, query string, success bool, errMsg string) {
	a.mu.Lock()
	entry := ActivityEntry{ID: a.nextID, Timestamp: time.Now(), Action: action, Database: database, Query: query, Success: success, Error: errMsg}
	a.nextID++
	a.entries = append(a.entries, entry)
	if len(a.entries) > maxActivityEntries {
		a.entries = a.entries[len(a.entries)-maxActivityEntries:]
	}
	a.mu.Unlock()

	if a.log == nil {
		return
	}
	fields := map[string]interface{}{"database": database, "action": action.String(), "success": success}
	if query != "" {
		fields["query"] = query
	}
	if success {
		a.log.Info("activity", "engine activity", fields)
	} else {
		fields["error"] = errMsg
		a.log.Warn("activity", "engine activity failed", fields)
	}
}

// Recent returns a copy of the last n recorded entries (fewer if not
// enough have been recorded yet).
func (a *ActivityLogger) Recent(n int) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]ActivityEntry, n)
	copy(out, a.entries[len(a.entries)-n:])
	return out
}
