// Package query composes enriched, paginated listings over PostgreSQL.
//
// A View declares the primary table, its columns, and the relations that
// enrich each row (owner profile, like counts, "did the actor interact"
// flags). Filters, sorts and windows are applied on top of a View to build
// the listing statement and its matching count statement.
package query

import (
	"strconv"
	"strings"
)

// Alias is the SQL alias of the primary table in every View.
const Alias = "p"

// relatedAlias is the SQL alias of the target table inside relation subqueries.
const relatedAlias = "r"

// Table returns a FROM clause selecting name under the primary alias.
func Table(name string) string {
	return name + " " + Alias
}

// Field maps a JSON key of a sub-projection to a column of the related table.
type Field struct {
	Key    string
	Column string
}

// F is shorthand for Field{Key: key, Column: column}.
func F(key, column string) Field {
	return Field{Key: key, Column: column}
}

type relationKind int

const (
	relationOne relationKind = iota
	relationCount
	relationMember
	relationExpr
)

// Relation describes how one derived output column is computed from a related table.
type Relation struct {
	kind      relationKind
	as        string
	table     string
	targetKey string
	localKey  string
	actorKey  string
	fields    []Field
	where     string
	orderBy   string
	expr      string
}

// HasOne projects at most one related row as a JSON object (or NULL when none matches).
// targetKey is the column on table matched against localKey of the primary row.
func HasOne(as, table, targetKey, localKey string, fields ...Field) Relation {
	return Relation{kind: relationOne, as: as, table: table, targetKey: targetKey, localKey: localKey, fields: fields}
}

// CountOf counts related rows whose targetKey equals the primary id.
func CountOf(as, table, targetKey string) Relation {
	return Relation{kind: relationCount, as: as, table: table, targetKey: targetKey, localKey: "id"}
}

// MemberOf reports whether the current actor appears in actorKey of any related row.
// Without an actor the column is always false.
func MemberOf(as, table, targetKey, actorKey string) Relation {
	return Relation{kind: relationMember, as: as, table: table, targetKey: targetKey, localKey: "id", actorKey: actorKey}
}

// Expr selects a raw scalar subquery. The expression may reference the primary alias.
func Expr(as, expr string) Relation {
	return Relation{kind: relationExpr, as: as, expr: expr}
}

// On overrides the primary column matched against the relation's target key.
func (r Relation) On(localKey string) Relation {
	r.localKey = localKey
	return r
}

// Where adds a static predicate on the related alias "r".
func (r Relation) Where(cond string) Relation {
	r.where = cond
	return r
}

// OrderBy chooses which related row HasOne picks when several match.
func (r Relation) OrderBy(expr string) Relation {
	r.orderBy = expr
	return r
}

// Name returns the output column name.
func (r Relation) Name() string { return r.as }

func (r Relation) render(b *builder) string {
	var sb strings.Builder
	switch r.kind {
	case relationOne:
		sb.WriteString("(SELECT json_build_object(")
		for i, f := range r.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("'" + f.Key + "', " + relatedAlias + "." + f.Column)
		}
		sb.WriteString(") FROM " + r.table + " " + relatedAlias)
		sb.WriteString(" WHERE " + r.joinCondition())
		if r.orderBy != "" {
			sb.WriteString(" ORDER BY " + r.orderBy)
		}
		sb.WriteString(" LIMIT 1)")
	case relationCount:
		sb.WriteString("(SELECT COUNT(*) FROM " + r.table + " " + relatedAlias)
		sb.WriteString(" WHERE " + r.joinCondition() + ")")
	case relationMember:
		if b.actor == "" {
			sb.WriteString("FALSE")
			break
		}
		sb.WriteString("EXISTS (SELECT 1 FROM " + r.table + " " + relatedAlias)
		sb.WriteString(" WHERE " + r.joinCondition())
		sb.WriteString(" AND " + relatedAlias + "." + r.actorKey + " = " + b.actorRef() + ")")
	case relationExpr:
		sb.WriteString("(" + r.expr + ")")
	}
	sb.WriteString(" AS " + r.as)
	return sb.String()
}

func (r Relation) joinCondition() string {
	cond := relatedAlias + "." + r.targetKey + " = " + Alias + "." + r.localKey
	if r.where != "" {
		cond += " AND " + r.where
	}
	return cond
}

// View is a declarative description of an enriched listing.
type View struct {
	// From must select the primary table under Alias, optionally joined to others.
	From      string
	Columns   []string
	Relations []Relation
	// Sortable maps API sort fields to ORDER BY expressions.
	Sortable    map[string]string
	DefaultSort string
}

// Statement is a rendered SQL statement with positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

type builder struct {
	args     []any
	actor    string
	actorPos string
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) actorRef() string {
	if b.actorPos == "" {
		b.actorPos = b.bind(b.actor)
	}
	return b.actorPos
}

// List renders the windowed listing statement.
func (v View) List(actor string, filter Filter, sort Sort, window Window) Statement {
	b := &builder{actor: actor}
	where := filter.render(b)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(v.projection(b))
	sb.WriteString(" FROM ")
	sb.WriteString(v.From)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(v.orderBy(sort))
	window = window.normalized()
	sb.WriteString(" LIMIT " + b.bind(window.Limit))
	sb.WriteString(" OFFSET " + b.bind(window.Offset()))

	return Statement{SQL: sb.String(), Args: b.args}
}

// Count renders the total-count statement under the same predicate as List.
func (v View) Count(filter Filter) Statement {
	b := &builder{}
	where := filter.render(b)
	return Statement{SQL: "SELECT COUNT(*) FROM " + v.From + where, Args: b.args}
}

func (v View) projection(b *builder) string {
	parts := make([]string, 0, len(v.Columns)+len(v.Relations))
	for _, col := range v.Columns {
		parts = append(parts, Alias+"."+col)
	}
	for _, rel := range v.Relations {
		parts = append(parts, rel.render(b))
	}
	return strings.Join(parts, ", ")
}

func (v View) orderBy(sort Sort) string {
	expr, ok := v.Sortable[sort.Field]
	if !ok {
		expr, ok = v.Sortable[v.DefaultSort]
	}
	if !ok {
		expr = Alias + ".created_at"
	}
	dir := " DESC"
	if !sort.Desc {
		dir = " ASC"
	}
	return expr + dir + ", " + Alias + ".id" + dir
}
