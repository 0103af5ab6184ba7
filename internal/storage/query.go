package storage

import (
	"fmt"
	"strings"
)

// Query is a minimal SELECT builder.
// Conditions use "?" placeholders which are numbered ($1, $2, ...) by SQL.
type Query struct {
	table      string
	alias      string
	columns    []selectColumn
	conditions []string
	args       []interface{}
	orderBy    []string
	limit      int
}

type selectColumn struct {
	expr  string
	alias string
}

// NewQuery creates a query selecting from table under the given alias
func NewQuery(table, alias string) *Query {
	return &Query{table: table, alias: alias}
}

// Table returns the queried table
func (q *Query) Table() string {
	return q.table
}

// Alias returns the table alias
func (q *Query) Alias() string {
	return q.alias
}

// Select adds a column expression. An empty alias selects the expression as-is.
func (q *Query) Select(expr, alias string) *Query {
	q.columns = append(q.columns, selectColumn{expr: expr, alias: alias})
	return q
}

// HasColumn reports whether a column with the given alias (or bare expression) is selected
func (q *Query) HasColumn(name string) bool {
	for _, c := range q.columns {
		if c.alias == name || (c.alias == "" && c.expr == name) {
			return true
		}
	}
	return false
}

// Columns returns the output column names in select order
func (q *Query) Columns() []string {
	names := make([]string, 0, len(q.columns))
	for _, c := range q.columns {
		if c.alias != "" {
			names = append(names, c.alias)
			continue
		}
		names = append(names, c.expr)
	}
	return names
}

// Where adds a condition joined with AND
func (q *Query) Where(condition string, args ...interface{}) *Query {
	q.conditions = append(q.conditions, condition)
	q.args = append(q.args, args...)
	return q
}

// OrderBy adds an ORDER BY expression
func (q *Query) OrderBy(expr string) *Query {
	q.orderBy = append(q.orderBy, expr)
	return q
}

// Limit sets the row limit (0 means unlimited)
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// SQL renders the query for PostgreSQL
func (q *Query) SQL() (string, []interface{}) {
	var b strings.Builder

	b.WriteString("SELECT ")
	if len(q.columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range q.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.expr)
		if c.alias != "" {
			b.WriteString(" AS ")
			b.WriteString(c.alias)
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(q.table)
	if q.alias != "" {
		b.WriteString(" ")
		b.WriteString(q.alias)
	}

	args := make([]interface{}, 0, len(q.args))
	if len(q.conditions) > 0 {
		b.WriteString(" WHERE ")
		argIdx := 1
		for i, cond := range q.conditions {
			if i > 0 {
				b.WriteString(" AND ")
			}
			for _, r := range cond {
				if r == '?' {
					fmt.Fprintf(&b, "$%d", argIdx)
					argIdx++
					continue
				}
				b.WriteRune(r)
			}
		}
		args = append(args, q.args...)
	}

	if len(q.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orderBy, ", "))
	}

	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}

	return b.String(), args
}
