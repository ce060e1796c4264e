package query

import (
	"fmt"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// Evaluator applies parsed clauses to library rows. Column resolution
// is exact and case-sensitive against the library schema.
type Evaluator struct {
	columns  []string
	colIndex map[string]int
}

// NewEvaluator creates an Evaluator for the given schema columns.
func NewEvaluator(columns []string) *Evaluator {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Evaluator{columns: columns, colIndex: idx}
}

// Resolve validates that the clause refers to a known schema column and
// returns its value index.
func (e *Evaluator) Resolve(c Clause) (int, error) {
	i, ok := e.colIndex[c.Column()]
	if !ok {
		return 0, errors.NewQueryError(errors.CodeUnknownColumn,
			fmt.Sprintf("clause %q: unknown column %q", c, c.Column()))
	}
	return i, nil
}

// Matches reports whether the row satisfies the clause. A null column
// value never matches any comparison; only explicit null-checks see it.
// Ordering operators applied to a textual value are a query error.
func (e *Evaluator) Matches(row types.Row, c Clause) (bool, error) {
	i, err := e.Resolve(c)
	if err != nil {
		return false, err
	}
	val := row.Values[i]

	switch cl := c.(type) {
	case *NullCheck:
		if cl.Not {
			return !val.IsNull(), nil
		}
		return val.IsNull(), nil

	case *Compare:
		if val.IsNull() {
			return false, nil
		}
		switch cl.Op {
		case "=":
			return val.Equal(cl.Lit), nil
		case "!=":
			return !val.Equal(cl.Lit), nil
		case "<", "<=", ">", ">=":
			vn, ok := val.Numeric()
			if !ok {
				return false, errors.NewQueryError(errors.CodeNonNumericCompare,
					fmt.Sprintf("clause %q: ordering comparison on non-numeric value %q", cl, val))
			}
			ln, ok := cl.Lit.Numeric()
			if !ok {
				return false, errors.NewQueryError(errors.CodeNonNumericCompare,
					fmt.Sprintf("clause %q: ordering comparison against non-numeric literal %q", cl, cl.Lit))
			}
			switch cl.Op {
			case "<":
				return vn < ln, nil
			case "<=":
				return vn <= ln, nil
			case ">":
				return vn > ln, nil
			default:
				return vn >= ln, nil
			}
		default:
			return false, errors.NewQueryError(errors.CodeBadClause,
				fmt.Sprintf("clause %q: unsupported operator %q", cl, cl.Op))
		}

	case *Between:
		if val.IsNull() {
			return false, nil
		}
		vn, ok := val.Numeric()
		if !ok {
			return false, errors.NewQueryError(errors.CodeNonNumericCompare,
				fmt.Sprintf("clause %q: BETWEEN on non-numeric value %q", cl, val))
		}
		low, _ := cl.Low.Numeric()
		high, _ := cl.High.Numeric()
		return low <= vn && vn <= high, nil

	default:
		return false, errors.NewQueryError(errors.CodeBadClause,
			fmt.Sprintf("unsupported clause type %T", c))
	}
}

// MatchesAll reports whether the row satisfies every clause.
func (e *Evaluator) MatchesAll(row types.Row, clauses []Clause) (bool, error) {
	for _, c := range clauses {
		ok, err := e.Matches(row, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
