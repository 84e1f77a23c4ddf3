package logging

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxEntries is the per-source limit used when NewLogCollector is
// given a non-positive size.
const DefaultMaxEntries = 100

// LogEntry is a single captured record.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Source     string         `json:"source"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogCollector keeps the most recent entries per source. It is safe for
// concurrent use.
type LogCollector struct {
	mu         sync.RWMutex
	maxEntries int
	logs       map[string][]LogEntry
}

// NewLogCollector creates a collector that keeps at most maxEntries per
// source, dropping the oldest.
func NewLogCollector(maxEntries int) *LogCollector {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &LogCollector{
		maxEntries: maxEntries,
		logs:       make(map[string][]LogEntry),
	}
}

// Add appends an entry for source.
func (c *LogCollector) Add(source string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[source], entry)
	if over := len(logs) - c.maxEntries; over > 0 {
		logs = append([]LogEntry(nil), logs[over:]...)
	}
	c.logs[source] = logs
}

// Entries returns a copy of the entries recorded for source, oldest first.
func (c *LogCollector) Entries(source string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, ok := c.logs[source]
	if !ok {
		return nil
	}
	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// All returns every entry from every source, ordered by time.
func (c *LogCollector) All() []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []LogEntry
	for _, logs := range c.logs {
		result = append(result, logs...)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})
	return result
}

// Sources returns the names of sources with at least one entry, sorted.
func (c *LogCollector) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make([]string, 0, len(c.logs))
	for s := range c.logs {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Clear removes all stored entries.
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string][]LogEntry)
}
