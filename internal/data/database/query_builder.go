// Package database builds parameterized SELECT queries with quoted identifiers.
package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Op is a comparison a Condition applies.
type Op string

const (
	Equal  Op = "="
	IsNull Op = "IS NULL"

	noLimit = -1
)

var (
	aliasPattern    = regexp.MustCompile(`(?i)\s+AS\s+`)
	castTypePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\[\])?$`)
)

// Condition is one AND-ed predicate of the WHERE clause.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Eq matches rows where field equals value.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: Equal, Value: value}
}

// Null matches rows where field IS NULL.
func Null(field string) Condition {
	return Condition{Field: field, Op: IsNull}
}

// SelectQuery describes a single-table listing.
type SelectQuery struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	Desc       bool
	Limit      int
	Offset     int
}

// Select starts a query over table with no limit or offset.
func Select(table string, columns ...string) *SelectQuery {
	return &SelectQuery{Table: table, Columns: columns, Limit: noLimit, Offset: noLimit}
}

// Where appends conditions.
func (q *SelectQuery) Where(conds ...Condition) *SelectQuery {
	q.Conditions = append(q.Conditions, conds...)
	return q
}

// Order sets the ordering column. id is appended as a tiebreaker so pages are stable.
func (q *SelectQuery) Order(column string, desc bool) *SelectQuery {
	q.OrderBy, q.Desc = column, desc
	return q
}

// Page sets LIMIT and OFFSET. Negative values leave the clause out.
func (q *SelectQuery) Page(limit, offset int) *SelectQuery {
	q.Limit, q.Offset = limit, offset
	return q
}

// Build renders the SQL and its positional arguments.
//
//	query, args := Select("sensemaker_jobs", "id::text AS id", "script").
//		Where(Eq("analysable_type", "Debate")).
//		Order("created_at", true).
//		Page(10, 0).
//		Build()
func (q *SelectQuery) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteString("*")
	} else {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			cols[i] = columnSpec(c)
		}
		sb.WriteString(strings.Join(cols, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(pgx.Identifier{q.Table}.Sanitize())

	args := []any{}
	where := make([]string, 0, len(q.Conditions))
	for _, c := range q.Conditions {
		if c.Field == "" {
			continue
		}
		field := qualified(c.Field)
		switch c.Op {
		case IsNull:
			where = append(where, field+" IS NULL")
		case Equal:
			args = append(args, c.Value)
			where = append(where, fmt.Sprintf("%s = $%d", field, len(args)))
		}
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", qualified(q.OrderBy), dir)
		if q.OrderBy != "id" {
			fmt.Fprintf(&sb, `, "id" %s`, dir)
		}
	}
	if q.Limit >= 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset >= 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

// qualified quotes each part of identifiers like "table.column".
func qualified(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// columnSpec quotes "column", "table.column" or "column::type", each optionally followed by
// " AS alias". Cast types must be plain lowercase type names; anything else drops the cast.
func columnSpec(spec string) string {
	alias := ""
	if parts := aliasPattern.Split(spec, 2); len(parts) == 2 {
		spec = strings.TrimSpace(parts[0])
		alias = " AS " + pgx.Identifier{strings.TrimSpace(parts[1])}.Sanitize()
	}
	column, castType, hasCast := strings.Cut(spec, "::")
	out := qualified(strings.TrimSpace(column))
	castType = strings.ToLower(strings.TrimSpace(castType))
	if hasCast && castTypePattern.MatchString(castType) {
		out += "::" + castType
	}
	return out + alias
}
