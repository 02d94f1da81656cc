package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// EnsureLogTable creates the change-log table when absent. Every column is
// text; Time holds models.TimeLayout.
func (s *Store) EnsureLogTable(ctx context.Context, table string) error {
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}
	qc, err := quoteIdents(models.AuditLogColumns)
	if err != nil {
		return err
	}
	defs := make([]string, len(qc))
	for i, c := range qc {
		defs[i] = c + " TEXT NOT NULL DEFAULT ''"
	}
	query := "CREATE TABLE IF NOT EXISTS " + qt + " (" + strings.Join(defs, ", ") + ")"
	if _, err := s.conn.exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	return nil
}

// InsertLogEntries appends entries in one batch.
func (s *Store) InsertLogEntries(ctx context.Context, table string, entries []models.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}
	qc, err := quoteIdents(models.AuditLogColumns)
	if err != nil {
		return err
	}
	marks := make([]string, len(qc))
	for i := range marks {
		marks[i] = s.conn.placeholder(i + 1)
	}
	query := "INSERT INTO " + qt + " (" + strings.Join(qc, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	argSets := make([][]any, 0, len(entries))
	for _, e := range entries {
		argSets = append(argSets, toArgs(models.AuditValues(e)))
	}
	if err := s.conn.batch(ctx, query, argSets); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// ListLogEntries returns the whole log ordered by time.
func (s *Store) ListLogEntries(ctx context.Context, table string) ([]models.AuditLogEntry, error) {
	t, err := s.FetchTable(ctx, table, models.AuditLogColumns)
	if err != nil {
		return nil, err
	}
	entries, err := models.AuditEntriesFromTable(t)
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

// DeleteLogEntries removes rows matching an entry on every column and
// returns how many rows went away.
func (s *Store) DeleteLogEntries(ctx context.Context, table string, entries []models.AuditLogEntry) (int64, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return 0, err
	}
	qc, err := quoteIdents(models.AuditLogColumns)
	if err != nil {
		return 0, err
	}
	preds := make([]string, len(qc))
	for i, c := range qc {
		preds[i] = asText(c) + " = " + s.conn.placeholder(i+1)
	}
	query := "DELETE FROM " + qt + " WHERE " + strings.Join(preds, " AND ")

	var total int64
	for _, e := range entries {
		n, err := s.conn.exec(ctx, query, toArgs(models.AuditValues(e))...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// sortEntries keeps rows written in one batch in insertion order.
func sortEntries(entries []models.AuditLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
}
