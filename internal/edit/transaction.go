package edit

import (
	"sync"
	"time"

	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// SelectedRow is a row as the user saw it when selecting.
type SelectedRow struct {
	Index  int               `json:"index"`
	Key    map[string]string `json:"key"`
	Values map[string]string `json:"values"`
}

// Form is what the edit dialog renders.
type Form struct {
	TransactionID string                    `json:"transaction_id"`
	Dataset       string                    `json:"dataset"`
	Page          string                    `json:"page"`
	State         State                     `json:"state"`
	Rows          []SelectedRow             `json:"rows"`
	Editable      []datasets.EditableColumn `json:"editable"`
	ReadOnly      []string                  `json:"read_only"`
}

// Transaction is one pass through the edit lifecycle for a set of rows.
type Transaction struct {
	ID      string
	Dataset datasets.Dataset
	User    identity.Identity
	Opened  time.Time

	mu      sync.Mutex
	state   State
	header  []string
	rows    []SelectedRow
	entries []models.AuditLogEntry
	err     error
}

// TransactionID lets sessions park the transaction between requests.
func (t *Transaction) TransactionID() string { return t.ID }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err is the failure that moved the transaction to Failed.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Entries returns the audit entries written by a Done transaction.
func (t *Transaction) Entries() []models.AuditLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.AuditLogEntry(nil), t.entries...)
}

// Form opens the edit dialog: the selected rows, the editable columns with
// their allowed options and every other column as read-only.
func (t *Transaction) Form() (Form, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case RowsSelected:
		t.state = FormOpen
	case FormOpen:
	default:
		return Form{}, &ValidationError{Row: -1, Reason: "transaction is " + t.state.String()}
	}

	var readOnly []string
	for _, col := range t.header {
		if _, ok := t.Dataset.EditableColumn(col); !ok {
			readOnly = append(readOnly, col)
		}
	}
	return Form{
		TransactionID: t.ID,
		Dataset:       t.Dataset.Name,
		Page:          t.Dataset.Page,
		State:         t.state,
		Rows:          t.rows,
		Editable:      t.Dataset.Editable,
		ReadOnly:      readOnly,
	}, nil
}

func (t *Transaction) row(index int) (SelectedRow, bool) {
	for _, r := range t.rows {
		if r.Index == index {
			return r, true
		}
	}
	return SelectedRow{}, false
}
