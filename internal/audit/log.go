package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// Log is the append-only change log. Delete is reserved for administrators
// and removes entries matching on every field.
type Log interface {
	Append(ctx context.Context, entries []models.AuditLogEntry) error
	List(ctx context.Context) ([]models.AuditLogEntry, error)
	Delete(ctx context.Context, entries []models.AuditLogEntry) (int, error)
}

// BlobLog keeps the log as one shared CSV object. Each write rewrites the
// object, so writers in this process are serialized.
type BlobLog struct {
	mu        sync.Mutex
	store     blobstore.Store
	key       string
	encodings []tabular.Encoding
	log       logrus.FieldLogger
}

// NewBlobLog binds the log to an object key.
func NewBlobLog(store blobstore.Store, key string, encodings []tabular.Encoding, log logrus.FieldLogger) *BlobLog {
	if len(encodings) == 0 {
		encodings = []tabular.Encoding{tabular.UTF8, tabular.Latin1, tabular.UTF16BE}
	}
	return &BlobLog{store: store, key: key, encodings: encodings, log: log}
}

func (l *BlobLog) load(ctx context.Context) (*tabular.Table, error) {
	data, _, err := blobstore.ReadAll(ctx, l.store, l.key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return tabular.New(models.AuditLogColumns, nil), nil
	}
	if err != nil {
		return nil, err
	}
	table, _, err := tabular.Decode(data, l.encodings, tabular.RequireColumns(models.AuditLogColumns...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.key, err)
	}
	return table, nil
}

func (l *BlobLog) save(ctx context.Context, table *tabular.Table) error {
	data, _, err := tabular.Encode(table, l.encodings)
	if err != nil {
		return &datasets.StoreWriteError{Target: l.key, Row: -1, Err: err}
	}
	if _, err := blobstore.WriteAll(ctx, l.store, l.key, data); err != nil {
		return &datasets.StoreWriteError{Target: l.key, Row: -1, Err: err}
	}
	return nil
}

func (l *BlobLog) Append(ctx context.Context, entries []models.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.load(ctx)
	if err != nil {
		return &datasets.StoreWriteError{Target: l.key, Row: -1, Err: err}
	}
	for _, e := range entries {
		table.Append(models.AuditRecord(e))
	}
	if err := l.save(ctx, table); err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{"key": l.key, "entries": len(entries)}).Info("change log appended")
	return nil
}

func (l *BlobLog) List(ctx context.Context) ([]models.AuditLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	table, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return models.AuditEntriesFromTable(table)
}

func (l *BlobLog) Delete(ctx context.Context, entries []models.AuditLogEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	existing, err := models.AuditEntriesFromTable(table)
	if err != nil {
		return 0, err
	}
	removed := 0
	kept := table.Filter(func(row int) bool {
		for _, e := range entries {
			if models.SameEntry(existing[row], e) {
				removed++
				return false
			}
		}
		return true
	})
	if removed == 0 {
		return 0, nil
	}
	if err := l.save(ctx, kept); err != nil {
		return 0, err
	}
	l.log.WithFields(logrus.Fields{"key": l.key, "removed": removed}).Warn("change log entries deleted")
	return removed, nil
}

// WarehouseLog keeps the log in a warehouse table.
type WarehouseLog struct {
	store *db.Lazy
	table string
}

// NewWarehouseLog binds the log to a table on the shared connection.
func NewWarehouseLog(store *db.Lazy, table string) *WarehouseLog {
	return &WarehouseLog{store: store, table: table}
}

// Ensure creates the log table when missing.
func (l *WarehouseLog) Ensure(ctx context.Context) error {
	store, err := l.store.Get(ctx)
	if err != nil {
		return err
	}
	return store.EnsureLogTable(ctx, l.table)
}

func (l *WarehouseLog) Append(ctx context.Context, entries []models.AuditLogEntry) error {
	store, err := l.store.Get(ctx)
	if err != nil {
		return &datasets.StoreWriteError{Target: l.table, Row: -1, Err: err}
	}
	if err := store.InsertLogEntries(ctx, l.table, entries); err != nil {
		return &datasets.StoreWriteError{Target: l.table, Row: -1, Err: err}
	}
	return nil
}

func (l *WarehouseLog) List(ctx context.Context) ([]models.AuditLogEntry, error) {
	store, err := l.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListLogEntries(ctx, l.table)
}

func (l *WarehouseLog) Delete(ctx context.Context, entries []models.AuditLogEntry) (int, error) {
	store, err := l.store.Get(ctx)
	if err != nil {
		return 0, err
	}
	n, err := store.DeleteLogEntries(ctx, l.table, entries)
	return int(n), err
}

// MemoryLog keeps entries in memory.
type MemoryLog struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
}

func (m *MemoryLog) Append(_ context.Context, entries []models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *MemoryLog) List(context.Context) ([]models.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryLog) Delete(_ context.Context, entries []models.AuditLogEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	removed := 0
	for _, have := range m.entries {
		match := false
		for _, e := range entries {
			if models.SameEntry(have, e) {
				match = true
				break
			}
		}
		if match {
			removed++
			continue
		}
		kept = append(kept, have)
	}
	m.entries = kept
	return removed, nil
}
