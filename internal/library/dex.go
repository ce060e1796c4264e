package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datadex/datadex/internal/archive"
	"github.com/datadex/datadex/internal/config"
	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/internal/hashdir"
	"github.com/datadex/datadex/internal/indexer"
	"github.com/datadex/datadex/internal/observability"
	"github.com/datadex/datadex/internal/query"
	"github.com/datadex/datadex/pkg/types"
)

// Dex is the library handle: the single entry point for creating,
// indexing, and searching a parameter library. A Dex wraps an explicit
// store; there is no process-wide default library.
type Dex struct {
	store Store
	cfg   *config.Config
	stats *observability.QueryStats
}

// Open opens (or creates) a Dex backed by the SQLite database named in
// the configuration.
func Open(cfg *config.Config) (*Dex, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCategoryConfig, errors.CodeInvalidConfig,
			"invalid configuration", err)
	}
	store, err := OpenSQLite(cfg.DexPath)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, cfg), nil
}

// NewWithStore creates a Dex over an explicit store. Used by tests and
// by callers that manage their own persistence.
func NewWithStore(store Store, cfg *config.Config) *Dex {
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Resolve()
	}
	return &Dex{
		store: store,
		cfg:   cfg,
		stats: observability.NewQueryStats(),
	}
}

// Close releases the underlying store.
func (d *Dex) Close() error {
	return d.store.Close()
}

// Stats exposes the query statistics tracker.
func (d *Dex) Stats() *observability.QueryStats {
	return d.stats
}

// CreateLibrary defines the library schema. Redefining is allowed only
// while the library holds no rows; otherwise the call fails so existing
// data is never silently discarded.
func (d *Dex) CreateLibrary(ctx context.Context, columns ...string) error {
	schema, err := NewSchema(columns...)
	if err != nil {
		return err
	}

	existing, err := d.store.Columns(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		n, err := d.store.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.NewSchemaError(errors.CodeLibraryNotEmpty,
				fmt.Sprintf("library already exists with %d rows; reset it before redefining", n))
		}
	}

	return d.store.CreateLibrary(ctx, schema.Columns)
}

// ResetLibrary clears all rows. The schema is preserved.
func (d *Dex) ResetLibrary(ctx context.Context) error {
	if _, err := d.schema(ctx); err != nil {
		return err
	}
	return d.store.Clear(ctx)
}

// DropLibrary removes the schema and all rows.
func (d *Dex) DropLibrary(ctx context.Context) error {
	return d.store.DropLibrary(ctx)
}

// Index walks the directory tree rooted at root and appends one row
// per parameter block of every dataset directory found. Per-dataset
// failures are collected in the report; the walk continues past them.
func (d *Dex) Index(ctx context.Context, root string) (*indexer.Report, error) {
	schema, err := d.schema(ctx)
	if err != nil {
		return nil, err
	}

	ix := indexer.New(d.store, schema, indexer.Options{
		ParamsFilename: d.cfg.ParamsFilename,
		HashDir:        d.cfg.HashDir,
		SkipDuplicates: d.cfg.SkipDuplicates,
		Verbose:        d.cfg.Verbose,
	})
	return ix.Index(ctx, root)
}

// Reindex clears the library and indexes root from scratch.
func (d *Dex) Reindex(ctx context.Context, root string) (*indexer.Report, error) {
	if err := d.ResetLibrary(ctx); err != nil {
		return nil, err
	}
	return d.Index(ctx, root)
}

// Lookup returns every row verbatim, in insertion order.
func (d *Dex) Lookup(ctx context.Context) ([]types.Row, error) {
	if _, err := d.schema(ctx); err != nil {
		return nil, err
	}
	return d.store.All(ctx)
}

// Search evaluates the given predicate clauses, implicitly conjoined,
// and returns the dataset paths of matching rows in insertion order.
// Paths are not deduplicated: a dataset with several qualifying rows
// appears once per row. A malformed clause or unknown column aborts
// the whole search with no partial result.
func (d *Dex) Search(ctx context.Context, clauses ...string) ([]string, error) {
	schema, err := d.schema(ctx)
	if err != nil {
		return nil, err
	}

	eval := query.NewEvaluator(schema.Columns)
	parsed := make([]query.Clause, 0, len(clauses))
	for _, text := range clauses {
		clause, err := query.ParseClause(text)
		if err != nil {
			return nil, err
		}
		// Column validation up front, before touching any row.
		if _, err := eval.Resolve(clause); err != nil {
			return nil, err
		}
		parsed = append(parsed, clause)
	}

	for _, c := range parsed {
		d.stats.RecordPredicate(c.Column(), operatorOf(c))
	}

	rows, err := d.store.All(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, row := range rows {
		ok, err := eval.MatchesAll(row, parsed)
		if err != nil {
			return nil, err
		}
		if ok {
			paths = append(paths, row.DatasetPath)
		}
	}
	return paths, nil
}

// Prune removes rows whose dataset path no longer exists on disk.
// Returns the number of rows removed.
func (d *Dex) Prune(ctx context.Context) (int64, error) {
	if _, err := d.schema(ctx); err != nil {
		return 0, err
	}

	rows, err := d.store.All(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	var pruned int64
	for _, row := range rows {
		if seen[row.DatasetPath] {
			continue
		}
		seen[row.DatasetPath] = true
		if _, err := os.Stat(row.DatasetPath); os.IsNotExist(err) {
			n, err := d.store.DeleteByPath(ctx, row.DatasetPath)
			if err != nil {
				return pruned, err
			}
			pruned += n
		}
	}
	return pruned, nil
}

// Archive snapshots the library database and uploads it to the given
// object storage, content-addressed under snapshots/<sha256>.db.
// Returns the object path of the uploaded snapshot.
func (d *Dex) Archive(ctx context.Context, dest archive.ObjectStorage) (string, error) {
	tmp, err := os.MkdirTemp("", "datadex-snapshot-*")
	if err != nil {
		return "", errors.NewStorageError(errors.CodeArchiveFailed,
			"failed to create snapshot directory", err)
	}
	defer os.RemoveAll(tmp)

	snapPath := filepath.Join(tmp, "dex.db")
	if err := d.store.Snapshot(ctx, snapPath); err != nil {
		return "", err
	}

	digest, err := hashdir.HashFile(snapPath)
	if err != nil {
		return "", err
	}

	objectPath := fmt.Sprintf("snapshots/%s.db", digest)
	exists, err := dest.Exists(ctx, objectPath)
	if err != nil {
		return "", errors.NewStorageError(errors.CodeArchiveFailed,
			"failed to check archive", err)
	}
	if exists {
		// Content-addressed: identical snapshot is already archived.
		return objectPath, nil
	}

	if err := dest.Upload(ctx, snapPath, objectPath); err != nil {
		return "", errors.NewStorageError(errors.CodeArchiveFailed,
			"failed to upload snapshot", err)
	}
	return objectPath, nil
}

// schema loads the persisted schema, failing when no library exists.
func (d *Dex) schema(ctx context.Context) (*Schema, error) {
	columns, err := d.store.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if columns == nil {
		return nil, errors.NewConfigError(errors.CodeNoLibrary,
			"no library has been created; call CreateLibrary first")
	}
	return &Schema{Columns: columns}, nil
}

// operatorOf returns the operator label for statistics tracking.
func operatorOf(c query.Clause) string {
	switch cl := c.(type) {
	case *query.Compare:
		return cl.Op
	case *query.Between:
		return "BETWEEN"
	case *query.NullCheck:
		if cl.Not {
			return "IS NOT NULL"
		}
		return "IS NULL"
	default:
		return "?"
	}
}
