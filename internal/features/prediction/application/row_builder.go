package application

import (
	"fmt"
	"sort"

	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"

	"github.com/spf13/cast"
)

// RowBuilder turns answers and group selections into a schema-aligned row.
// It holds only the read-only schema and is safe for concurrent use.
type RowBuilder struct {
	schema *schemadomain.Schema
}

// NewRowBuilder creates a RowBuilder for schema.
func NewRowBuilder(schema *schemadomain.Schema) *RowBuilder {
	return &RowBuilder{schema: schema}
}

// Build starts from an all-zero row over every schema column, copies base
// answers (coerced to float64) and sets exactly one column per dummy group.
// Base columns without an answer stay 0. A selection that names no known
// category is an error, as is a group without a selection.
func (b *RowBuilder) Build(answers map[string]any, selections map[string]string) (domain.FeatureRow, error) {
	row := domain.FeatureRow{
		Columns: append([]string(nil), b.schema.Columns...),
		Values:  make([]float64, len(b.schema.Columns)),
	}

	for _, column := range sortedKeys(answers) {
		if !b.schema.IsBase(column) {
			return domain.FeatureRow{}, fmt.Errorf("%w: %q", domain.ErrUnknownColumn, column)
		}
		raw := answers[column]
		if raw == nil {
			return domain.FeatureRow{}, fmt.Errorf("%w: %s is empty", domain.ErrInvalidAnswer, column)
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return domain.FeatureRow{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidAnswer, column, err)
		}
		i, _ := b.schema.Index(column)
		row.Values[i] = v
	}

	for _, group := range sortedKeys(selections) {
		if _, ok := b.schema.Group(group); !ok {
			return domain.FeatureRow{}, fmt.Errorf("%w: %q", schemadomain.ErrUnknownGroup, group)
		}
	}
	for _, g := range b.schema.Groups {
		category, ok := selections[g.Name]
		if !ok {
			return domain.FeatureRow{}, fmt.Errorf("%w: %s", domain.ErrMissingSelection, g.Name)
		}
		i, err := b.schema.CategoryIndex(g.Name, category)
		if err != nil {
			return domain.FeatureRow{}, err
		}
		row.Values[i] = 1
	}
	return row, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
