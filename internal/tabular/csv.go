package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

type decodeOptions struct {
	required []string
}

// DecodeOption tunes Decode.
type DecodeOption func(*decodeOptions)

// RequireColumns makes a candidate encoding succeed only when the decoded
// header carries every named column.
func RequireColumns(columns ...string) DecodeOption {
	return func(o *decodeOptions) {
		o.required = append(o.required, columns...)
	}
}

// Decode parses CSV bytes, trying each encoding in order until one decodes
// and parses cleanly. The encoding that succeeded is returned with the table.
func Decode(data []byte, encodings []Encoding, opts ...DecodeOption) (*Table, Encoding, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	decErr := &DecodeError{}
	for _, enc := range encodings {
		text, err := enc.decodeText(data)
		if err != nil {
			decErr.Attempts = append(decErr.Attempts, Attempt{Encoding: enc, Err: err})
			continue
		}
		table, err := Parse(text)
		if err != nil {
			decErr.Attempts = append(decErr.Attempts, Attempt{Encoding: enc, Err: err})
			continue
		}
		if err := table.Require(o.required...); err != nil {
			decErr.Attempts = append(decErr.Attempts, Attempt{Encoding: enc, Err: err})
			continue
		}
		return table, enc, nil
	}
	return nil, "", decErr
}

// Parse reads UTF-8 CSV text whose first record is the header.
func Parse(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty csv: no header row")
	}
	header := records[0]
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}
	return New(header, records[1:]), nil
}

// Format renders the table as UTF-8 CSV text.
func Format(t *Table) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(t.Header); err != nil {
		return "", err
	}
	if err := w.WriteAll(t.Records); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Encode serializes the table, using the first encoding that can represent
// every cell.
func Encode(t *Table, encodings []Encoding) ([]byte, Encoding, error) {
	text, err := Format(t)
	if err != nil {
		return nil, "", fmt.Errorf("format csv: %w", err)
	}
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	var errs []error
	for _, enc := range encodings {
		out, err := enc.encodeText(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", enc, err))
			continue
		}
		return out, enc, nil
	}
	return nil, "", fmt.Errorf("encode csv: %w", errors.Join(errs...))
}
