package query

import "strings"

type condition struct {
	expr string
	args []any
}

// Filter is an immutable conjunction of predicates over the primary alias.
type Filter struct {
	conds []condition
}

// Where adds a predicate. Each '?' in expr is bound to the next argument.
func (f Filter) Where(expr string, args ...any) Filter {
	conds := make([]condition, len(f.conds), len(f.conds)+1)
	copy(conds, f.conds)
	return Filter{conds: append(conds, condition{expr: expr, args: args})}
}

// Eq matches a primary column against a value.
func (f Filter) Eq(column string, value any) Filter {
	return f.Where(Alias+"."+column+" = ?", value)
}

// Search matches term case-insensitively against any of the primary columns.
// An empty term leaves the filter unchanged.
func (f Filter) Search(term string, columns ...string) Filter {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return f
	}
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = Alias + "." + col + " ILIKE ?"
		args[i] = pattern
	}
	return f.Where("("+strings.Join(parts, " OR ")+")", args...)
}

// Empty reports whether the filter has no predicates.
func (f Filter) Empty() bool { return len(f.conds) == 0 }

func (f Filter) render(b *builder) string {
	if len(f.conds) == 0 {
		return ""
	}
	parts := make([]string, len(f.conds))
	for i, c := range f.conds {
		parts[i] = bindPlaceholders(c.expr, c.args, b)
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func bindPlaceholders(expr string, args []any, b *builder) string {
	var sb strings.Builder
	next := 0
	for _, r := range expr {
		if r == '?' && next < len(args) {
			sb.WriteString(b.bind(args[next]))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
