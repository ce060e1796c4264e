package library

// SQL definitions for the library database (dex.db). The database holds
// two tables: headers, which persists the schema column names alongside
// the rows, and library, whose columns are generated per schema.

// CreateHeadersTableSQL creates the schema metadata table. position
// preserves the user-declared column order.
const CreateHeadersTableSQL = `
CREATE TABLE IF NOT EXISTS headers (
    position INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`

// CreateLibraryTableSQL is the template for the row table. The %s slot
// receives the generated schema column definitions. dataset_path is
// indexed for prune and duplicate lookups; rowid order is the insertion
// order contract.
const CreateLibraryTableSQL = `
CREATE TABLE IF NOT EXISTS library (
    row_id TEXT PRIMARY KEY,
    %s
    dataset_path TEXT NOT NULL,
    fingerprint INTEGER NOT NULL,
    raw_block BLOB,
    created_at INTEGER NOT NULL
)`

// CreateLibraryIndexesSQL creates supporting indexes for the row table.
var CreateLibraryIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_library_path ON library(dataset_path)`,
	`CREATE INDEX IF NOT EXISTS idx_library_fingerprint ON library(dataset_path, fingerprint)`,
}
