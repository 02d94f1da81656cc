package tabular

import (
	"fmt"
	"strings"
)

// MissingColumnError reports required columns absent from a table.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "missing required column(s): " + strings.Join(e.Columns, ", ")
}

// Attempt records why one candidate encoding was rejected.
type Attempt struct {
	Encoding Encoding
	Err      error
}

// DecodeError is returned when no candidate encoding produced a table.
type DecodeError struct {
	Attempts []Attempt
}

func (e *DecodeError) Error() string {
	if len(e.Attempts) == 0 {
		return "decode csv: no candidate encodings"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Encoding, a.Err))
	}
	return "decode csv: no candidate encoding succeeded (" + strings.Join(parts, "; ") + ")"
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
