// Package edit runs reviewer edits: select rows, open the form, then
// refresh, validate, write the data and append the audit log.
package edit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/audit"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/jobs"
	"github.com/wastewater-dashboards/surveillance-review/internal/metrics"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/notify"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// Publisher receives an event for every committed transaction.
type Publisher interface {
	Publish(notify.Event)
}

// Deps wires a Controller. Jobs and Publisher are optional.
type Deps struct {
	Registry   *datasets.Registry
	Sources    map[string]datasets.Source
	Log        audit.Log
	Authorizer identity.Authorizer
	Publisher  Publisher
	Jobs       *jobs.Client
	Metrics    *metrics.Recorder
	Logger     logrus.FieldLogger
}

type Controller struct {
	deps Deps
	now  func() time.Time
}

func NewController(deps Deps) *Controller {
	return &Controller{deps: deps, now: time.Now}
}

// RowEdit carries the form values submitted for one selected row, keyed by
// its snapshot index.
type RowEdit struct {
	Index  int               `json:"index"`
	Values map[string]string `json:"values"`
}

// Result summarises a finished transaction.
type Result struct {
	TransactionID string                 `json:"transaction_id"`
	State         State                  `json:"state"`
	Rows          int                    `json:"rows"`
	Entries       []models.AuditLogEntry `json:"entries"`
}

func (c *Controller) dataset(name string) (datasets.Dataset, datasets.Source, error) {
	d, ok := c.deps.Registry.Get(name)
	if !ok {
		return datasets.Dataset{}, nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	src, ok := c.deps.Sources[name]
	if !ok {
		return datasets.Dataset{}, nil, fmt.Errorf("%w: %s has no source", ErrUnknownDataset, name)
	}
	return d, src, nil
}

// Begin moves a new transaction from Idle to RowsSelected. The permission
// gate runs first; snapshot is the table the user was looking at.
func (c *Controller) Begin(who identity.Identity, name string, snapshot *tabular.Table, indices []int) (*Transaction, error) {
	d, _, err := c.dataset(name)
	if err != nil {
		return nil, err
	}
	if err := c.deps.Authorizer.Check(who, "edit "+d.Page); err != nil {
		return nil, err
	}
	if d.ReadOnly() {
		return nil, &ValidationError{Row: -1, Reason: "dataset " + d.Name + " is read-only"}
	}
	if snapshot == nil {
		return nil, &ValidationError{Row: -1, Reason: "no table displayed for " + d.Name}
	}
	if len(indices) == 0 {
		return nil, &ValidationError{Row: -1, Reason: "select at least one row"}
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	tx := &Transaction{
		ID:      uuid.NewString(),
		Dataset: d,
		User:    who,
		Opened:  c.now(),
		state:   Idle,
		header:  append([]string(nil), snapshot.Header...),
	}
	for i, idx := range sorted {
		if i > 0 && sorted[i-1] == idx {
			continue
		}
		if idx < 0 || idx >= snapshot.Len() {
			return nil, &ValidationError{Row: idx, Reason: "no such row"}
		}
		values := snapshot.Row(idx)
		tx.rows = append(tx.rows, SelectedRow{Index: idx, Key: d.Key(values), Values: values})
	}
	tx.state = RowsSelected

	c.deps.Logger.WithFields(logrus.Fields{
		"dataset":     d.Name,
		"transaction": tx.ID,
		"user":        who.User,
		"rows":        len(tx.rows),
	}).Debug("rows selected")
	return tx, nil
}

// Submit validates the form against a freshly fetched table and commits it.
// Validation problems return the transaction to FormOpen; refresh, stale-row
// and write failures end it in Failed. Rows written before a failure are not
// rolled back and the log append is a separate write from the data. When the
// transaction is Done but the downstream job could not be triggered the
// result is returned together with a *jobs.TriggerError.
func (c *Controller) Submit(ctx context.Context, tx *Transaction, edits []RowEdit) (Result, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != FormOpen {
		return Result{}, &ValidationError{Row: -1, Reason: "transaction is " + tx.state.String()}
	}
	started := c.now()
	d := tx.Dataset
	log := c.deps.Logger.WithFields(logrus.Fields{"dataset": d.Name, "transaction": tx.ID, "user": tx.User.User})

	_, src, err := c.dataset(d.Name)
	if err != nil {
		return Result{}, err
	}

	tx.state = Validating
	wanted, err := userChanges(tx, edits)
	if err != nil {
		tx.state = FormOpen
		return Result{}, err
	}

	// Refresh before write: the displayed snapshot may be stale.
	fresh, err := src.Fetch(ctx)
	if err != nil {
		return Result{}, c.fail(tx, log, "refresh", started, fmt.Errorf("refresh %s: %w", d.Name, err))
	}

	meta := audit.Meta{User: tx.User.User, Page: d.Page, Time: c.now()}
	var (
		changes []datasets.RowChange
		entries []models.AuditLogEntry
	)
	for _, w := range wanted {
		idx, ok := fresh.FindRow(w.row.Key)
		if !ok {
			return Result{}, c.fail(tx, log, "validate", started, &StaleRowError{Row: w.row.Index, Key: w.row.Key})
		}
		current := fresh.Row(idx)
		diff := audit.Diff(current, w.values, d.EditableNames())
		if len(diff) == 0 {
			continue
		}
		set := make(map[string]string, len(diff))
		for _, ch := range diff {
			if err := fresh.Set(idx, ch.Column, ch.New); err != nil {
				return Result{}, c.fail(tx, log, "validate", started, err)
			}
			set[ch.Column] = ch.New
		}
		changes = append(changes, datasets.RowChange{Index: idx, Key: w.row.Key, Values: set})
		entries = append(entries, audit.NewEntries(meta, current, d.AuditKey, diff)...)
	}

	tx.state = Committing
	if len(changes) > 0 {
		// In-flight writes are not cancelled with the request.
		wctx := context.WithoutCancel(ctx)
		if err := src.Persist(wctx, fresh, changes); err != nil {
			return Result{}, c.fail(tx, log, "persist", started, err)
		}
		if err := c.deps.Log.Append(wctx, entries); err != nil {
			return Result{}, c.fail(tx, log, "audit", started, &datasets.StoreWriteError{Target: "audit log", Row: -1, Err: err})
		}
	}

	tx.state = Done
	tx.entries = entries
	result := Result{TransactionID: tx.ID, State: Done, Rows: len(changes), Entries: entries}

	c.deps.Metrics.EditCommitted(d.Name, len(entries), c.now().Sub(started))
	log.WithFields(logrus.Fields{"rows": len(changes), "entries": len(entries)}).Info("edit committed")
	if len(changes) == 0 {
		return result, nil
	}

	if c.deps.Publisher != nil {
		c.deps.Publisher.Publish(notify.Event{
			Type:          "commit",
			Dataset:       d.Name,
			TransactionID: tx.ID,
			User:          tx.User.User,
			Rows:          len(changes),
			Changes:       entries,
			Time:          meta.Time.UTC(),
		})
	}

	if c.deps.Jobs != nil {
		err := c.deps.Jobs.Trigger(ctx, jobs.Parameters{User: tx.User.User, Changes: entries})
		c.deps.Metrics.JobTriggered(err)
		if err != nil {
			log.WithError(err).Error("downstream job trigger failed")
			return result, err
		}
	}
	return result, nil
}

func (c *Controller) fail(tx *Transaction, log logrus.FieldLogger, stage string, started time.Time, err error) error {
	tx.state = Failed
	tx.err = err
	c.deps.Metrics.EditFailed(tx.Dataset.Name, stage, c.now().Sub(started))

	entry := log.WithError(err).WithField("stage", stage)
	var stale *StaleRowError
	if errors.As(err, &stale) {
		entry.Warn("edit rejected")
	} else {
		entry.Error("edit failed")
	}
	return err
}

type rowChanges struct {
	row    SelectedRow
	values map[string]string
}

// userChanges keeps only the columns the user actually changed relative to
// the displayed row, so concurrent edits to other columns survive the
// overlay onto the refreshed row.
func userChanges(tx *Transaction, edits []RowEdit) ([]rowChanges, error) {
	if len(edits) == 0 {
		return nil, &ValidationError{Row: -1, Reason: "no rows submitted"}
	}
	seen := make(map[int]bool, len(edits))
	var out []rowChanges
	for _, e := range edits {
		row, ok := tx.row(e.Index)
		if !ok {
			return nil, &ValidationError{Row: e.Index, Reason: "row is not part of this selection"}
		}
		if seen[e.Index] {
			return nil, &ValidationError{Row: e.Index, Reason: "row submitted twice"}
		}
		seen[e.Index] = true

		changed := make(map[string]string)
		cols := make([]string, 0, len(e.Values))
		for col := range e.Values {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			v := e.Values[col]
			if prev, ok := row.Values[col]; ok && prev == v {
				continue
			}
			ec, ok := tx.Dataset.EditableColumn(col)
			if !ok {
				return nil, &ValidationError{Row: e.Index, Column: col, Reason: "column is read-only"}
			}
			if !ec.Allows(v) {
				return nil, &ValidationError{Row: e.Index, Column: col, Reason: fmt.Sprintf("%q is not one of %v", v, ec.Options)}
			}
			changed[col] = v
		}
		if len(changed) > 0 {
			out = append(out, rowChanges{row: row, values: changed})
		}
	}
	return out, nil
}
