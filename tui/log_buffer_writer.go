package tui

import (
	"sync"
	"time"
)

// LogEntry represents a single captured log line with the time it was written
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// LogBufferWriter implements io.Writer and retains the most recent log lines in a
// fixed-capacity circular buffer. The fuzzer's logger writes here while the TUI owns
// the terminal, and the log view reads the buffered lines back out.
type LogBufferWriter struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
	index    int  // Next write position in the circular buffer
	full     bool // Whether the buffer has wrapped at least once
}

// NewLogBufferWriter creates a new log buffer writer retaining up to capacity lines
func NewLogBufferWriter(capacity int) *LogBufferWriter {
	return &LogBufferWriter{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Write implements the io.Writer interface. Each call stores one entry, overwriting
// the oldest line once the buffer is full.
func (w *LogBufferWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries[w.index] = LogEntry{
		Timestamp: time.Now(),
		Message:   string(p),
	}

	w.index++
	if w.index >= w.capacity {
		w.index = 0
		w.full = true
	}

	return len(p), nil
}

// GetEntries returns the most recent log entries (up to limit) in chronological order
// (oldest first). If limit <= 0 or limit exceeds the buffered count, all available
// entries are returned.
func (w *LogBufferWriter) GetEntries(limit int) []LogEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	totalEntries := w.index
	if w.full {
		totalEntries = w.capacity
	}
	if totalEntries == 0 {
		return []LogEntry{}
	}

	numToReturn := totalEntries
	if limit > 0 && limit < numToReturn {
		numToReturn = limit
	}

	// The oldest retained entry sits at the write index once the buffer has
	// wrapped, and at position zero otherwise.
	startIdx := w.index - numToReturn
	if w.full {
		startIdx = (w.index - numToReturn + w.capacity) % w.capacity
	}

	result := make([]LogEntry, numToReturn)
	for i := 0; i < numToReturn; i++ {
		result[i] = w.entries[(startIdx+i)%w.capacity]
	}
	return result
}

// GetAllEntries returns all available log entries in chronological order
func (w *LogBufferWriter) GetAllEntries() []LogEntry {
	return w.GetEntries(0)
}

// Clear clears all log entries from the buffer
func (w *LogBufferWriter) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.index = 0
	w.full = false
}

// Count returns the current number of log entries in the buffer
func (w *LogBufferWriter) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.full {
		return w.capacity
	}
	return w.index
}
