// Package observability provides query statistics tracking so operators
// can see which library columns their searches actually constrain.
package observability

import (
	"sort"
	"sync"
	"time"
)

// QueryStats tracks predicate frequency per column across searches.
type QueryStats struct {
	mu            sync.RWMutex
	predicateFreq map[string]*ColumnStats
}

// ColumnStats holds statistics for a column.
type ColumnStats struct {
	Column    string
	Frequency int64
	LastSeen  time.Time
	Operators map[string]int // operator → count (e.g., "=" → 5, "BETWEEN" → 2)
}

// NewQueryStats creates a new query statistics tracker.
func NewQueryStats() *QueryStats {
	return &QueryStats{
		predicateFreq: make(map[string]*ColumnStats),
	}
}

// RecordPredicate records a predicate access for a column.
// This method is O(1) and thread-safe.
func (q *QueryStats) RecordPredicate(column, operator string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats, exists := q.predicateFreq[column]
	if !exists {
		stats = &ColumnStats{
			Column:    column,
			Operators: make(map[string]int),
		}
		q.predicateFreq[column] = stats
	}

	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Operators[operator]++
}

// TopPredicates returns the top N predicates by frequency.
// Returns a copy of the stats sorted by frequency (descending).
func (q *QueryStats) TopPredicates(n int) []ColumnStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if n <= 0 || len(q.predicateFreq) == 0 {
		return []ColumnStats{}
	}

	stats := make([]ColumnStats, 0, len(q.predicateFreq))
	for _, s := range q.predicateFreq {
		cp := ColumnStats{
			Column:    s.Column,
			Frequency: s.Frequency,
			LastSeen:  s.LastSeen,
			Operators: make(map[string]int),
		}
		for op, count := range s.Operators {
			cp.Operators[op] = count
		}
		stats = append(stats, cp)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Frequency > stats[j].Frequency
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Reset clears all recorded statistics.
func (q *QueryStats) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.predicateFreq = make(map[string]*ColumnStats)
}
