package library

import (
	"context"

	"github.com/datadex/datadex/pkg/types"
)

// Store is the persistence backend for a library: the schema column
// metadata and the ordered row table. Implementations must preserve
// insertion order in All. Writers are not safe for concurrent use; the
// caller serializes indexing runs.
type Store interface {
	// Columns returns the persisted schema columns, or nil when no
	// library has been created.
	Columns(ctx context.Context) ([]string, error)

	// CreateLibrary persists the schema columns and creates an empty
	// row table, replacing any existing library definition. Callers
	// enforce the rows-present guard before redefining.
	CreateLibrary(ctx context.Context, columns []string) error

	// DropLibrary removes the schema and all rows.
	DropLibrary(ctx context.Context) error

	// Clear removes all rows, preserving the schema.
	Clear(ctx context.Context) error

	// Append adds a row at the end of the table.
	Append(ctx context.Context, row types.Row) error

	// All returns every row in insertion order.
	All(ctx context.Context) ([]types.Row, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int64, error)

	// HasFingerprint reports whether a row with the given dataset path
	// and block fingerprint already exists.
	HasFingerprint(ctx context.Context, datasetPath string, fingerprint uint64) (bool, error)

	// DeleteByPath removes all rows for a dataset path and returns the
	// number of rows removed.
	DeleteByPath(ctx context.Context, datasetPath string) (int64, error)

	// Snapshot writes a consistent copy of the store to destPath for
	// archiving.
	Snapshot(ctx context.Context, destPath string) error

	// Close releases the underlying resources.
	Close() error
}
