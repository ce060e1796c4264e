package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using a SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex // Write-only lock
	columns []string   // Cached schema columns, nil when no library
}

// OpenSQLite opens (or creates) the library database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewStorageError(errors.CodeStoreFailed,
				fmt.Sprintf("failed to create directory for %s", dbPath), err)
		}
	}

	// Single writer with WAL mode, matching SQLite's concurrency model.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("failed to open database %s", dbPath), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(CreateHeadersTableSQL); err != nil {
		db.Close()
		return nil, errors.NewStorageError(errors.CodeStoreFailed,
			"failed to initialize headers table", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.loadColumns(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// loadColumns reads the persisted schema columns into the cache.
func (s *SQLiteStore) loadColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM headers ORDER BY position")
	if err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to read headers", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.NewStorageError(errors.CodeStoreFailed, "failed to scan header", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to read headers", err)
	}

	s.columns = columns
	return nil
}

// Columns returns the persisted schema columns, or nil when no library
// has been created.
func (s *SQLiteStore) Columns(ctx context.Context) ([]string, error) {
	if s.columns == nil {
		return nil, nil
	}
	cols := make([]string, len(s.columns))
	copy(cols, s.columns)
	return cols, nil
}

// CreateLibrary persists the schema and (re)creates an empty row table.
func (s *SQLiteStore) CreateLibrary(ctx context.Context, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS library"); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to drop row table", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM headers"); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to clear headers", err)
	}
	for i, col := range columns {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO headers (position, name) VALUES (?, ?)", i, col); err != nil {
			return errors.NewStorageError(errors.CodeStoreFailed,
				fmt.Sprintf("failed to persist column %q", col), err)
		}
	}

	var defs strings.Builder
	for _, col := range columns {
		fmt.Fprintf(&defs, "%s,\n    ", quoteIdent(col))
	}
	createSQL := fmt.Sprintf(CreateLibraryTableSQL, strings.TrimSuffix(defs.String(), "\n    "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to create row table", err)
	}
	for _, stmt := range CreateLibraryIndexesSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.NewStorageError(errors.CodeStoreFailed, "failed to create index", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to commit library creation", err)
	}

	s.columns = make([]string, len(columns))
	copy(s.columns, columns)
	return nil
}

// DropLibrary removes the schema and all rows.
func (s *SQLiteStore) DropLibrary(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS library"); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to drop row table", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM headers"); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to clear headers", err)
	}
	s.columns = nil
	return nil
}

// Clear removes all rows, preserving the schema.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		return errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM library"); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to clear rows", err)
	}
	return nil
}

// Append adds a row at the end of the table.
func (s *SQLiteStore) Append(ctx context.Context, row types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		return errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	if len(row.Values) != len(s.columns) {
		return errors.New(errors.ErrCategoryInternal, errors.CodeUnexpected,
			fmt.Sprintf("row has %d values, schema has %d columns", len(row.Values), len(s.columns)))
	}

	cols := make([]string, 0, len(s.columns)+5)
	args := make([]interface{}, 0, len(s.columns)+5)
	cols = append(cols, "row_id")
	args = append(args, row.ID)
	for i, col := range s.columns {
		cols = append(cols, quoteIdent(col))
		args = append(args, toSQL(row.Values[i]))
	}
	cols = append(cols, "dataset_path", "fingerprint", "raw_block", "created_at")
	args = append(args, row.DatasetPath, int64(row.Fingerprint), row.Raw, time.Now().Unix())

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO library (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders)

	if _, err := s.db.ExecContext(ctx, insertSQL, args...); err != nil {
		return errors.NewStorageError(errors.CodeStoreFailed, "failed to append row", err)
	}
	return nil
}

// All returns every row in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]types.Row, error) {
	if s.columns == nil {
		return nil, errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}

	quoted := make([]string, len(s.columns))
	for i, col := range s.columns {
		quoted[i] = quoteIdent(col)
	}
	selectSQL := fmt.Sprintf(
		"SELECT row_id, %s, dataset_path, fingerprint, raw_block FROM library ORDER BY rowid",
		strings.Join(quoted, ", "))

	rows, err := s.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeStoreFailed, "failed to read rows", err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		dest := make([]interface{}, len(s.columns)+4)
		ptrs := make([]interface{}, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.NewStorageError(errors.CodeStoreFailed, "failed to scan row", err)
		}

		row := types.Row{Values: make([]types.Value, len(s.columns))}
		row.ID, _ = dest[0].(string)
		for i := range s.columns {
			row.Values[i] = fromSQL(dest[1+i])
		}
		row.DatasetPath, _ = dest[len(s.columns)+1].(string)
		if fp, ok := dest[len(s.columns)+2].(int64); ok {
			row.Fingerprint = uint64(fp)
		}
		if raw, ok := dest[len(s.columns)+3].([]byte); ok {
			row.Raw = append([]byte(nil), raw...)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError(errors.CodeStoreFailed, "failed to read rows", err)
	}
	return out, nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	if s.columns == nil {
		return 0, nil
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM library").Scan(&n); err != nil {
		return 0, errors.NewStorageError(errors.CodeStoreFailed, "failed to count rows", err)
	}
	return n, nil
}

// HasFingerprint reports whether a row with the given dataset path and
// block fingerprint already exists.
func (s *SQLiteStore) HasFingerprint(ctx context.Context, datasetPath string, fingerprint uint64) (bool, error) {
	if s.columns == nil {
		return false, nil
	}
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM library WHERE dataset_path = ? AND fingerprint = ?",
		datasetPath, int64(fingerprint)).Scan(&n)
	if err != nil {
		return false, errors.NewStorageError(errors.CodeStoreFailed, "failed to check fingerprint", err)
	}
	return n > 0, nil
}

// DeleteByPath removes all rows for a dataset path.
func (s *SQLiteStore) DeleteByPath(ctx context.Context, datasetPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		return 0, errors.NewConfigError(errors.CodeNoLibrary, "no library has been created")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM library WHERE dataset_path = ?", datasetPath)
	if err != nil {
		return 0, errors.NewStorageError(errors.CodeStoreFailed, "failed to delete rows", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewStorageError(errors.CodeStoreFailed, "failed to count deleted rows", err)
	}
	return n, nil
}

// Snapshot writes a consistent copy of the database to destPath using
// VACUUM INTO, which is safe against a live WAL.
func (s *SQLiteStore) Snapshot(ctx context.Context, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	escaped := strings.ReplaceAll(destPath, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return errors.NewStorageError(errors.CodeArchiveFailed,
			fmt.Sprintf("failed to snapshot database to %s", destPath), err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// quoteIdent quotes a schema column for embedding in SQL. Column names
// are already validated to identifier shape; quoting guards keywords.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// toSQL converts a Value to its SQLite representation.
func toSQL(v types.Value) interface{} {
	switch v.Kind {
	case types.KindInt:
		return v.Int
	case types.KindFloat:
		return v.Float
	case types.KindText:
		return v.Text
	default:
		return nil
	}
}

// fromSQL converts a scanned SQLite value back to a Value.
func fromSQL(x interface{}) types.Value {
	switch v := x.(type) {
	case nil:
		return types.Null()
	case int64:
		return types.IntValue(v)
	case float64:
		return types.FloatValue(v)
	case []byte:
		return types.TextValue(string(v))
	case string:
		return types.TextValue(v)
	default:
		return types.TextValue(fmt.Sprintf("%v", v))
	}
}
