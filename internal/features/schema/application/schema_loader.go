package application

import (
	"fmt"
	"strings"

	"hdb-predictor/backend/internal/features/schema/domain"
)

// HeaderReader fetches the header row of the reference dataset.
type HeaderReader func(path string) ([]string, error)

// SchemaLoader discovers the model input schema from a reference dataset.
type SchemaLoader interface {
	Load(path string) (*domain.Schema, error)
}

type schemaLoader struct {
	readHeader    HeaderReader
	baseColumns   []string
	groups        []domain.GroupSpec
	ignoreColumns []string
}

// NewSchemaLoader creates a loader for a fixed base column list and set of
// dummy group prefixes. ignoreColumns are dropped from the header first.
func NewSchemaLoader(readHeader HeaderReader, baseColumns []string, groups []domain.GroupSpec, ignoreColumns []string) SchemaLoader {
	return &schemaLoader{
		readHeader:    readHeader,
		baseColumns:   baseColumns,
		groups:        groups,
		ignoreColumns: ignoreColumns,
	}
}

// Load reads the header at path and discovers the schema.
func (l *schemaLoader) Load(path string) (*domain.Schema, error) {
	header, err := l.readHeader(path)
	if err != nil {
		return nil, err
	}
	return Discover(header, l.baseColumns, l.groups, l.ignoreColumns)
}

// Discover builds a schema from header. Base columns must all be present; each
// group collects, in header order, the non-base columns starting with its
// prefix. Columns matched by neither stay in the schema as passthrough.
func Discover(header, baseColumns []string, groups []domain.GroupSpec, ignoreColumns []string) (*domain.Schema, error) {
	ignored := make(map[string]struct{}, len(ignoreColumns))
	for _, c := range ignoreColumns {
		ignored[c] = struct{}{}
	}

	columns := make([]string, 0, len(header))
	for _, c := range header {
		if _, skip := ignored[c]; skip {
			continue
		}
		columns = append(columns, c)
	}
	if len(columns) == 0 {
		return nil, domain.ErrEmptyHeader
	}

	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	base := make(map[string]struct{}, len(baseColumns))
	for _, c := range baseColumns {
		if _, ok := present[c]; !ok {
			return nil, fmt.Errorf("%w: base column %q not found in reference dataset", domain.ErrMissingColumn, c)
		}
		base[c] = struct{}{}
	}

	dummies := make([]domain.DummyGroup, len(groups))
	claimed := make(map[string]struct{})
	for i, gs := range groups {
		g := domain.DummyGroup{Name: gs.Name, Prefix: gs.Prefix}
		for _, c := range columns {
			if _, isBase := base[c]; isBase {
				continue
			}
			category, ok := strings.CutPrefix(c, gs.Prefix)
			if !ok || category == "" {
				continue
			}
			if _, taken := claimed[c]; taken {
				return nil, fmt.Errorf("column %q matches more than one dummy group", c)
			}
			claimed[c] = struct{}{}
			g.Categories = append(g.Categories, category)
		}
		dummies[i] = g
	}

	var passthrough []string
	for _, c := range columns {
		_, isBase := base[c]
		_, isDummy := claimed[c]
		if !isBase && !isDummy {
			passthrough = append(passthrough, c)
		}
	}

	return domain.New(columns, baseColumns, dummies, passthrough)
}
