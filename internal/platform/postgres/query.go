package postgres

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// Filter accumulates WHERE conditions written with ? placeholders and renders
// them for lib/pq.
type Filter struct {
	conds []string
	args  []any
}

// Add appends a condition. Each ? in cond consumes one of args.
func (f *Filter) Add(cond string, args ...any) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
}

// Search adds a case-insensitive substring match over columns.
func (f *Filter) Search(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	pattern := "%" + EscapeLike(term) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		parts[i] = c + " ILIKE ?"
		args[i] = pattern
	}
	f.Add("("+strings.Join(parts, " OR ")+")", args...)
}

// Where renders " WHERE a AND b" or the empty string.
func (f *Filter) Where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (f *Filter) Args() []any {
	return f.args
}

// Rebind converts ? placeholders to $n.
func Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
