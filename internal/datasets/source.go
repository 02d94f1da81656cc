package datasets

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
	"github.com/wastewater-dashboards/surveillance-review/internal/metrics"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// ErrRowNotFound is returned when a keyed update matched nothing.
var ErrRowNotFound = errors.New("row not found")

// RowChange is one edited row: its position in the fetched table, its
// natural key and the editable columns to set.
type RowChange struct {
	Index  int
	Key    map[string]string
	Values map[string]string
}

// StoreWriteError wraps a failed data or log write. Row is -1 when the
// write covered the whole object.
type StoreWriteError struct {
	Target string
	Row    int
	Err    error
}

func (e *StoreWriteError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("write %s row %d: %v", e.Target, e.Row, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Target, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// Source reads a dataset and writes edited rows back.
type Source interface {
	Fetch(ctx context.Context) (*tabular.Table, error)
	Persist(ctx context.Context, table *tabular.Table, changes []RowChange) error
}

// BlobSource keeps a dataset as one CSV object that is rewritten whole.
type BlobSource struct {
	dataset Dataset
	store   blobstore.Store
	log     logrus.FieldLogger
	metrics *metrics.Recorder
}

// NewBlobSource binds a dataset to an object store.
func NewBlobSource(d Dataset, store blobstore.Store, log logrus.FieldLogger) *BlobSource {
	return &BlobSource{dataset: d, store: store, log: log}
}

// WithMetrics counts decodes by winning encoding.
func (s *BlobSource) WithMetrics(rec *metrics.Recorder) *BlobSource {
	s.metrics = rec
	return s
}

func (s *BlobSource) Fetch(ctx context.Context) (*tabular.Table, error) {
	encodings, err := s.dataset.EncodingList()
	if err != nil {
		return nil, err
	}
	data, _, err := blobstore.ReadAll(ctx, s.store, s.dataset.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", s.dataset.BlobKey, err)
	}
	table, enc, err := tabular.Decode(data, encodings, tabular.RequireColumns(s.dataset.KeyColumns...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.dataset.BlobKey, err)
	}
	s.metrics.Decoded(s.dataset.Name, string(enc))
	s.log.WithFields(logrus.Fields{"dataset": s.dataset.Name, "encoding": enc, "rows": table.Len()}).Debug("dataset decoded")
	return table, nil
}

// Persist re-encodes the full table and overwrites the object. The table
// already carries the changes.
func (s *BlobSource) Persist(ctx context.Context, table *tabular.Table, changes []RowChange) error {
	if len(changes) == 0 {
		return nil
	}
	encodings, err := s.dataset.EncodingList()
	if err != nil {
		return err
	}
	data, enc, err := tabular.Encode(table, encodings)
	if err != nil {
		return &StoreWriteError{Target: s.dataset.BlobKey, Row: -1, Err: err}
	}
	if _, err := blobstore.WriteAll(ctx, s.store, s.dataset.BlobKey, data); err != nil {
		return &StoreWriteError{Target: s.dataset.BlobKey, Row: -1, Err: err}
	}
	s.log.WithFields(logrus.Fields{"dataset": s.dataset.Name, "encoding": enc, "rows": len(changes)}).Info("dataset uploaded")
	return nil
}

// WarehouseSource keeps a dataset in a warehouse table updated row by row.
type WarehouseSource struct {
	dataset Dataset
	store   *db.Lazy
	log     logrus.FieldLogger
}

// NewWarehouseSource binds a dataset to the shared warehouse connection.
func NewWarehouseSource(d Dataset, store *db.Lazy, log logrus.FieldLogger) *WarehouseSource {
	return &WarehouseSource{dataset: d, store: store, log: log}
}

func (s *WarehouseSource) Fetch(ctx context.Context) (*tabular.Table, error) {
	store, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	return store.FetchTable(ctx, s.dataset.Table, s.dataset.Columns)
}

// Persist issues one keyed update per change. The first failure aborts the
// remaining rows; rows already written stay written.
func (s *WarehouseSource) Persist(ctx context.Context, _ *tabular.Table, changes []RowChange) error {
	if len(changes) == 0 {
		return nil
	}
	store, err := s.store.Get(ctx)
	if err != nil {
		return &StoreWriteError{Target: s.dataset.Table, Row: -1, Err: err}
	}
	for _, ch := range changes {
		var set []db.Assignment
		for _, col := range s.dataset.EditableNames() {
			if v, ok := ch.Values[col]; ok {
				set = append(set, db.Assignment{Column: col, Value: v})
			}
		}
		key := make([]db.Assignment, 0, len(s.dataset.KeyColumns))
		for _, col := range s.dataset.KeyColumns {
			key = append(key, db.Assignment{Column: col, Value: ch.Key[col]})
		}
		n, err := store.UpdateRow(ctx, s.dataset.Table, set, key)
		if err != nil {
			return &StoreWriteError{Target: s.dataset.Table, Row: ch.Index, Err: err}
		}
		if n == 0 && len(set) > 0 {
			return &StoreWriteError{Target: s.dataset.Table, Row: ch.Index, Err: ErrRowNotFound}
		}
	}
	s.log.WithFields(logrus.Fields{"dataset": s.dataset.Name, "rows": len(changes)}).Info("warehouse rows updated")
	return nil
}
