package edit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDataset is returned for a dataset name the registry lacks.
var ErrUnknownDataset = errors.New("unknown dataset")

// ValidationError rejects a selection or a submitted form before anything is
// written. Row is the snapshot index, or -1 when the problem is not tied to a
// row.
type ValidationError struct {
	Row    int
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row >= 0 && e.Column != "":
		return fmt.Sprintf("row %d column %s: %s", e.Row, e.Column, e.Reason)
	case e.Row >= 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("column %s: %s", e.Column, e.Reason)
	default:
		return e.Reason
	}
}

// StaleRowError means a selected row no longer exists in the refreshed
// table, typically because someone else changed its key or removed it.
type StaleRowError struct {
	Row int
	Key map[string]string
}

func (e *StaleRowError) Error() string {
	parts := make([]string, 0, len(e.Key))
	for k, v := range e.Key {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return fmt.Sprintf("row %d (%s) changed since it was displayed; reload and try again", e.Row, strings.Join(parts, ", "))
}
