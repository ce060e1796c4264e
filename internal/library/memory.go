package library

import (
	"context"
	"sync"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// MemoryStore implements Store in process memory. This is primarily
// used for testing and small ephemeral indexes.
type MemoryStore struct {
	mu      sync.RWMutex
	columns []string
	rows    []types.Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Columns returns the schema columns, or nil when no library exists.
func (m *MemoryStore) Columns(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.columns == nil {
		return nil, nil
	}
	cols := make([]string, len(m.columns))
	copy(cols, m.columns)
	return cols, nil
}

// CreateLibrary replaces the schema and empties the row table.
func (m *MemoryStore) CreateLibrary(ctx context.Context, columns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = make([]string, len(columns))
	copy(m.columns, columns)
	m.rows = nil
	return nil
}

// DropLibrary removes the schema and all rows.
func (m *MemoryStore) DropLibrary(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = nil
	m.rows = nil
	return nil
}

// Clear removes all rows, preserving the schema.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.columns == nil {
		return errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	m.rows = nil
	return nil
}

// Append adds a row at the end of the table.
func (m *MemoryStore) Append(ctx context.Context, row types.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.columns == nil {
		return errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	m.rows = append(m.rows, row)
	return nil
}

// All returns every row in insertion order.
func (m *MemoryStore) All(ctx context.Context) ([]types.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.columns == nil {
		return nil, errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	out := make([]types.Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// Count returns the number of rows.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows)), nil
}

// HasFingerprint reports whether a row with the given dataset path and
// fingerprint already exists.
func (m *MemoryStore) HasFingerprint(ctx context.Context, datasetPath string, fingerprint uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if row.DatasetPath == datasetPath && row.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// DeleteByPath removes all rows for a dataset path.
func (m *MemoryStore) DeleteByPath(ctx context.Context, datasetPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.columns == nil {
		return 0, errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	kept := m.rows[:0]
	var deleted int64
	for _, row := range m.rows {
		if row.DatasetPath == datasetPath {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return deleted, nil
}

// Snapshot is not supported for the in-memory store.
func (m *MemoryStore) Snapshot(ctx context.Context, destPath string) error {
	return errors.New(errors.ErrCategoryStorage, errors.CodeArchiveFailed,
		"memory store does not support snapshots")
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
