// Package library implements the parameter library: the user-declared
// column schema and the persistent index store of dataset rows.
package library

import (
	"fmt"
	"regexp"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// columnNamePattern restricts schema columns to identifier-shaped names
// so they can be used directly as SQLite column names.
var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedColumns are internal row fields that user schemas cannot shadow.
var reservedColumns = map[string]bool{
	"row_id":       true,
	"dataset_path": true,
	"fingerprint":  true,
	"raw_block":    true,
	"created_at":   true,
}

// Schema is the ordered set of parameter columns a library is built
// against. Once created it is fixed until the library is recreated.
type Schema struct {
	Columns []string
}

// NewSchema validates the column names and returns a Schema. Columns
// must be unique, identifier-shaped, and must not collide with internal
// row fields.
func NewSchema(columns ...string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, errors.NewSchemaError(errors.CodeInvalidColumn,
			"library requires at least one column")
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !columnNamePattern.MatchString(col) {
			return nil, errors.NewSchemaError(errors.CodeInvalidColumn,
				fmt.Sprintf("invalid column name %q", col))
		}
		if reservedColumns[col] {
			return nil, errors.NewSchemaError(errors.CodeInvalidColumn,
				fmt.Sprintf("column name %q is reserved", col))
		}
		if seen[col] {
			return nil, errors.NewSchemaError(errors.CodeDuplicateColumn,
				fmt.Sprintf("duplicate column name %q", col))
		}
		seen[col] = true
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Schema{Columns: cols}, nil
}

// Project shapes a parameter set onto the schema: one value per column
// in schema order. Parameters not in the schema are dropped; schema
// columns absent from the set become null. Matching is exact and
// case-sensitive.
func (s *Schema) Project(ps types.ParameterSet) []types.Value {
	values := make([]types.Value, len(s.Columns))
	for i, col := range s.Columns {
		if v, ok := ps[col]; ok {
			values[i] = v
		} else {
			values[i] = types.Null()
		}
	}
	return values
}
