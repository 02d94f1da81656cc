package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates and quotes a possibly schema-qualified identifier.
// Table and column names come from configuration and are interpolated.
func quoteIdent(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !identPattern.MatchString(p) {
			return "", fmt.Errorf("invalid identifier %q", name)
		}
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, "."), nil
}

func quoteIdents(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := quoteIdent(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// asText renders a column as text so timestamps, integers and strings
// compare the same way on every driver.
func asText(quoted string) string {
	return "COALESCE(CAST(" + quoted + " AS TEXT), '')"
}

// Assignment is one column/value pair of an update or key predicate.
type Assignment struct {
	Column string
	Value  string
}

// FetchTable selects the listed columns of a table as text.
func (s *Store) FetchTable(ctx context.Context, table string, columns []string) (*tabular.Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("fetch %s: no columns", table)
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	qc, err := quoteIdents(columns)
	if err != nil {
		return nil, err
	}

	selects := make([]string, len(qc))
	for i, c := range qc {
		selects[i] = asText(c)
	}
	query := "SELECT " + strings.Join(selects, ", ") + " FROM " + qt

	r, err := s.conn.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer r.Close()

	var records [][]string
	for r.Next() {
		values := make([]string, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := r.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		records = append(records, values)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return tabular.New(columns, records), nil
}

// UpdateRow sets columns on the rows matching every key predicate and
// returns the number of rows changed.
func (s *Store) UpdateRow(ctx context.Context, table string, set, key []Assignment) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	if len(key) == 0 {
		return 0, fmt.Errorf("update %s: refusing update without key", table)
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	args := make([]any, 0, len(set)+len(key))
	b.WriteString("UPDATE ")
	b.WriteString(qt)
	b.WriteString(" SET ")
	for i, a := range set {
		qc, err := quoteIdent(a.Column)
		if err != nil {
			return 0, err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, a.Value)
		b.WriteString(qc + " = " + s.conn.placeholder(len(args)))
	}
	b.WriteString(" WHERE ")
	for i, a := range key {
		qc, err := quoteIdent(a.Column)
		if err != nil {
			return 0, err
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		args = append(args, a.Value)
		b.WriteString(asText(qc) + " = " + s.conn.placeholder(len(args)))
	}

	n, err := s.conn.exec(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return n, nil
}
