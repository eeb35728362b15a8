package builder

import (
	"fmt"
	"strings"
)

// Placeholder selects the bind parameter syntax of the target database.
type Placeholder int

const (
	// Dollar numbers parameters as $1, $2, ... (PostgreSQL).
	Dollar Placeholder = iota
	// Question keeps positional ? parameters (SQLite).
	Question
)

// SQLBuilder helps construct SQL queries dynamically. Conditions are written
// with ? markers and numbered for the configured placeholder style when the
// query is built.
type SQLBuilder struct {
	placeholder Placeholder

	table   string
	columns []string
	rows    [][]interface{}
	sets    []assignment
	joins   []string
	orderBy []string
	limit   int
	offset  int

	isInsert bool
	isUpdate bool
	isDelete bool
	isSelect bool

	where         []condition
	orConditions  []condition
	whereGroups   []*SQLBuilder
	rawConditions []condition

	conflictCols []string
	conflictSet  []string
}

type assignment struct {
	col string
	val interface{}
}

type condition struct {
	sql  string
	args []interface{}
}

// NewSQLBuilder creates a builder that emits PostgreSQL placeholders.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// NewSQLBuilderFor creates a builder for the given placeholder style.
func NewSQLBuilderFor(p Placeholder) *SQLBuilder {
	return &SQLBuilder{placeholder: p}
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.isSelect = true
	b.columns = cols
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.isInsert = true
	b.table = table
	b.columns = cols
	return b
}

// Update specifies the table to update.
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.isUpdate = true
	b.table = table
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.isDelete = true
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Set adds a column assignment to an UPDATE.
func (b *SQLBuilder) Set(col string, val interface{}) *SQLBuilder {
	b.sets = append(b.sets, assignment{col: col, val: val})
	return b
}

// Values appends one row to an INSERT. Call it repeatedly for a multi-row
// insert.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// OnConflict turns an INSERT into an upsert keyed on cols.
func (b *SQLBuilder) OnConflict(cols ...string) *SQLBuilder {
	b.conflictCols = cols
	return b
}

// DoUpdate lists the columns overwritten from the rejected row on conflict.
// Without it the conflicting row is left untouched.
func (b *SQLBuilder) DoUpdate(cols ...string) *SQLBuilder {
	b.conflictSet = cols
	return b
}

// Where adds a condition to the query. Multiple Where calls are joined with AND.
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, condition{sql: cond, args: args})
	return b
}

// Join adds a JOIN clause.
func (b *SQLBuilder) Join(joinType, table, on string) *SQLBuilder {
	b.joins = append(b.joins, fmt.Sprintf("%s JOIN %s ON %s", joinType, table, on))
	return b
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// Or adds an OR condition to the query.
func (b *SQLBuilder) Or(cond string, args ...interface{}) *SQLBuilder {
	b.orConditions = append(b.orConditions, condition{sql: cond, args: args})
	return b
}

// WhereGroup adds a grouped (parenthesized) WHERE condition.
// The provided function receives a new SQLBuilder for building the grouped conditions.
func (b *SQLBuilder) WhereGroup(fn func(*SQLBuilder) *SQLBuilder) *SQLBuilder {
	b.whereGroups = append(b.whereGroups, fn(NewSQLBuilderFor(b.placeholder)))
	return b
}

// WhereRaw adds a raw SQL condition with arguments.
func (b *SQLBuilder) WhereRaw(sql string, args ...interface{}) *SQLBuilder {
	b.rawConditions = append(b.rawConditions, condition{sql: sql, args: args})
	return b
}

// BuildSafe constructs the final SQL string and arguments with safety validation.
// Returns an error if the number of placeholders doesn't match the number of arguments.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	sql, args := b.Build()

	var placeholderCount int
	if b.placeholder == Question {
		placeholderCount = strings.Count(sql, "?")
	} else {
		for i := 1; strings.Contains(sql, fmt.Sprintf("$%d", i)); i++ {
			placeholderCount++
		}
	}

	if placeholderCount != len(args) {
		return "", nil, fmt.Errorf("placeholder count (%d) does not match argument count (%d)", placeholderCount, len(args))
	}

	return sql, args, nil
}

// Build constructs the final SQL string and arguments. It does not change the
// builder, so it can be called more than once.
func (b *SQLBuilder) Build() (string, []interface{}) {
	w := &writer{placeholder: b.placeholder}

	switch {
	case b.isSelect:
		w.sb.WriteString("SELECT ")
		w.sb.WriteString(strings.Join(b.columns, ", "))
		w.sb.WriteString(" FROM ")
		w.sb.WriteString(b.table)
		for _, join := range b.joins {
			w.sb.WriteString(" ")
			w.sb.WriteString(join)
		}
	case b.isInsert:
		b.writeInsert(w)
		return w.sb.String(), w.args
	case b.isUpdate:
		w.sb.WriteString("UPDATE ")
		w.sb.WriteString(b.table)
		w.sb.WriteString(" SET ")
		for i, s := range b.sets {
			if i > 0 {
				w.sb.WriteString(", ")
			}
			w.sb.WriteString(s.col)
			w.sb.WriteString(" = ")
			w.bind(s.val)
		}
	case b.isDelete:
		w.sb.WriteString("DELETE FROM ")
		w.sb.WriteString(b.table)
	}

	if conds := b.conditions(w); len(conds) > 0 {
		w.sb.WriteString(" WHERE ")
		w.sb.WriteString(strings.Join(conds, " OR "))
	}

	if len(b.orderBy) > 0 {
		w.sb.WriteString(" ORDER BY ")
		w.sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit > 0 {
		w.sb.WriteString(fmt.Sprintf(" LIMIT %d", b.limit))
	}

	if b.offset > 0 {
		w.sb.WriteString(fmt.Sprintf(" OFFSET %d", b.offset))
	}

	return w.sb.String(), w.args
}

func (b *SQLBuilder) writeInsert(w *writer) {
	w.sb.WriteString("INSERT INTO ")
	w.sb.WriteString(b.table)
	w.sb.WriteString(" (")
	w.sb.WriteString(strings.Join(b.columns, ", "))
	w.sb.WriteString(") VALUES ")
	for i, row := range b.rows {
		if i > 0 {
			w.sb.WriteString(", ")
		}
		w.sb.WriteString("(")
		for j, v := range row {
			if j > 0 {
				w.sb.WriteString(", ")
			}
			w.bind(v)
		}
		w.sb.WriteString(")")
	}

	if len(b.conflictCols) == 0 {
		return
	}
	w.sb.WriteString(" ON CONFLICT (")
	w.sb.WriteString(strings.Join(b.conflictCols, ", "))
	w.sb.WriteString(")")
	if len(b.conflictSet) == 0 {
		w.sb.WriteString(" DO NOTHING")
		return
	}
	sets := make([]string, len(b.conflictSet))
	for i, col := range b.conflictSet {
		sets[i] = col + " = excluded." + col
	}
	w.sb.WriteString(" DO UPDATE SET ")
	w.sb.WriteString(strings.Join(sets, ", "))
}

// conditions renders the WHERE parts in order: ANDed Where conditions,
// parenthesized groups, OR conditions, raw conditions. The parts are joined
// with OR by the caller.
func (b *SQLBuilder) conditions(w *writer) []string {
	var conds []string

	if len(b.where) > 0 {
		parts := make([]string, len(b.where))
		for i, c := range b.where {
			parts[i] = w.expand(c)
		}
		conds = append(conds, strings.Join(parts, " AND "))
	}

	for _, group := range b.whereGroups {
		if inner := group.conditions(w); len(inner) > 0 {
			conds = append(conds, "("+strings.Join(inner, " OR ")+")")
		}
	}

	for _, c := range b.orConditions {
		conds = append(conds, w.expand(c))
	}

	for _, c := range b.rawConditions {
		conds = append(conds, w.expand(c))
	}

	return conds
}

// writer accumulates SQL text and numbers placeholders as arguments are bound.
type writer struct {
	placeholder Placeholder
	sb          strings.Builder
	args        []interface{}
	n           int
}

func (w *writer) marker() string {
	w.n++
	if w.placeholder == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", w.n)
}

func (w *writer) bind(v interface{}) {
	w.args = append(w.args, v)
	w.sb.WriteString(w.marker())
}

// expand replaces each ? in c.sql with the next placeholder and collects the
// condition's arguments. A count mismatch is left for BuildSafe to report.
func (w *writer) expand(c condition) string {
	parts := strings.Split(c.sql, "?")
	var out strings.Builder
	for i, part := range parts {
		out.WriteString(part)
		if i < len(parts)-1 {
			out.WriteString(w.marker())
		}
	}
	w.args = append(w.args, c.args...)
	return out.String()
}
