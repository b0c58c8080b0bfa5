package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	ErrMissingSelection = errors.New("missing selection")
	ErrUnknownColumn    = errors.New("unknown base column")
	ErrInvalidAnswer    = errors.New("invalid answer")
	ErrModel            = errors.New("prediction model failed")
)

// PredictionRequest carries one interaction's answers: numeric values keyed by
// base column and one category per dummy group keyed by group name.
type PredictionRequest struct {
	Answers    map[string]any    `json:"answers"`
	Selections map[string]string `json:"selections"`
}

// FeatureRow is the schema-aligned model input. Columns and Values are parallel.
type FeatureRow struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Get returns the value of column.
func (r FeatureRow) Get(column string) (float64, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Map returns the row keyed by column.
func (r FeatureRow) Map() map[string]float64 {
	out := make(map[string]float64, len(r.Columns))
	for i, c := range r.Columns {
		out[c] = r.Values[i]
	}
	return out
}

// Prediction is the result of one model call.
type Prediction struct {
	RequestID string     `json:"request_id"`
	Value     float64    `json:"prediction"`
	Formatted string     `json:"formatted"`
	Row       FeatureRow `json:"-"`
}

// PredictionResponse is the JSON body returned by the prediction API.
type PredictionResponse struct {
	RequestID  string  `json:"request_id"`
	Prediction float64 `json:"prediction"`
	Formatted  string  `json:"formatted"`
}

// FieldErrors maps an input name to a user-facing message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// FormatCurrency renders v as dollars with thousands separators and cents,
// e.g. $1,234,567.89.
func FormatCurrency(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
