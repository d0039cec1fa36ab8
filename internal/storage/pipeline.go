package storage

import (
	"fmt"
	"strings"
)

// Pipeline builds a SELECT statement out of explicit, order-insensitive
// stages (match, project, group, sort, limit). It keeps query construction
// testable independent of the database and guarantees positional
// parameter numbering.
type Pipeline struct {
	table    string
	columns  []string
	matches  []string
	args     []interface{}
	groupBy  []string
	sortBy   []string
	limit    int
	offset   int
	distinct bool
}

// NewPipeline starts a pipeline over table, selecting * until Project is
// called.
func NewPipeline(table string) *Pipeline {
	return &Pipeline{table: table, limit: -1, offset: -1}
}

// Project sets the selected column expressions.
func (p *Pipeline) Project(exprs ...string) *Pipeline {
	p.columns = append(p.columns, exprs...)
	return p
}

// Distinct adds DISTINCT to the projection.
func (p *Pipeline) Distinct() *Pipeline {
	p.distinct = true
	return p
}

// Match adds a WHERE condition. Use ? for placeholders; they are renumbered
// to positional $n parameters when the statement is built.
func (p *Pipeline) Match(cond string, args ...interface{}) *Pipeline {
	p.matches = append(p.matches, cond)
	p.args = append(p.args, args...)
	return p
}

// MatchIn adds a column IN (...) condition. An empty value set is skipped.
func (p *Pipeline) MatchIn(column string, values []string) *Pipeline {
	if len(values) == 0 {
		return p
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		p.args = append(p.args, v)
	}
	p.matches = append(p.matches, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return p
}

// GroupBy adds grouping columns.
func (p *Pipeline) GroupBy(cols ...string) *Pipeline {
	p.groupBy = append(p.groupBy, cols...)
	return p
}

// Sort adds an ordering expression.
func (p *Pipeline) Sort(expr string, desc bool) *Pipeline {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	p.sortBy = append(p.sortBy, expr+" "+dir)
	return p
}

// Limit caps the result set. Non-positive values are ignored.
func (p *Pipeline) Limit(n int) *Pipeline {
	if n > 0 {
		p.limit = n
	}
	return p
}

// Offset skips the first n rows. Non-positive values are ignored.
func (p *Pipeline) Offset(n int) *Pipeline {
	if n > 0 {
		p.offset = n
	}
	return p
}

// SQL compiles the pipeline into a statement with $n placeholders and its
// bound arguments.
func (p *Pipeline) SQL() (string, []interface{}) {
	var b strings.Builder

	b.WriteString("SELECT ")
	if p.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(p.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(p.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(p.table)

	if len(p.matches) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(p.matches, " AND "))
	}
	if len(p.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(p.groupBy, ", "))
	}
	if len(p.sortBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(p.sortBy, ", "))
	}
	if p.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.limit)
	}
	if p.offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.offset)
	}

	return renumber(b.String()), p.args
}

// renumber rewrites ? placeholders as $1..$n.
func renumber(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
