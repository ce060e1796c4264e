package query

import (
	"fmt"

	"github.com/datadex/datadex/pkg/types"
)

// Clause is a single parsed predicate over one library column. Clauses
// supplied together to a search are conjoined.
type Clause interface {
	clauseNode()

	// Column returns the schema column the clause constrains.
	Column() string

	// String returns the canonical text of the clause.
	String() string
}

// Compare represents a comparison clause: column OP literal, where OP
// is one of =, !=, <, <=, >, >=.
type Compare struct {
	Col string
	Op  string
	Lit types.Value
}

func (c *Compare) clauseNode() {}

// Column returns the constrained column name.
func (c *Compare) Column() string { return c.Col }

// String returns the canonical text of the comparison.
func (c *Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Col, c.Op, c.Lit)
}

// Between represents an inclusive range clause:
// column BETWEEN low AND high.
type Between struct {
	Col  string
	Low  types.Value
	High types.Value
}

func (b *Between) clauseNode() {}

// Column returns the constrained column name.
func (b *Between) Column() string { return b.Col }

// String returns the canonical text of the range clause.
func (b *Between) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", b.Col, b.Low, b.High)
}

// NullCheck represents column IS NULL or column IS NOT NULL.
type NullCheck struct {
	Col string
	Not bool
}

func (n *NullCheck) clauseNode() {}

// Column returns the constrained column name.
func (n *NullCheck) Column() string { return n.Col }

// String returns the canonical text of the null check.
func (n *NullCheck) String() string {
	if n.Not {
		return fmt.Sprintf("%s IS NOT NULL", n.Col)
	}
	return fmt.Sprintf("%s IS NULL", n.Col)
}
