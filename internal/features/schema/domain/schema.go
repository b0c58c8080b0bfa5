// Package domain describes the column layout the prediction model was
// trained on.
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrEmptyHeader     = errors.New("empty header")
	ErrEmptyGroup      = errors.New("dummy group has no columns")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownGroup    = errors.New("unknown dummy group")
	ErrShapeMismatch   = errors.New("row does not match schema")
)

// GroupSpec names a one-hot family and the column prefix its members share.
type GroupSpec struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// DummyGroup is a one-hot family discovered in the reference header.
// Categories keep header order.
type DummyGroup struct {
	Name       string   `json:"name"`
	Prefix     string   `json:"prefix"`
	Categories []string `json:"categories"`
}

// Column returns the schema column for category.
func (g DummyGroup) Column(category string) string {
	return g.Prefix + category
}

// Schema is the ordered set of model input columns, partitioned into base
// columns, dummy groups and passthrough columns. It is immutable.
type Schema struct {
	Columns     []string     `json:"columns"`
	BaseColumns []string     `json:"base_columns"`
	Groups      []DummyGroup `json:"groups"`
	Passthrough []string     `json:"passthrough,omitempty"`

	index      map[string]int
	groupIndex map[string]int
	categories map[string]map[string]int
}

// New indexes a schema. Every base, group and passthrough column must appear
// exactly once in columns.
func New(columns, base []string, groups []DummyGroup, passthrough []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyHeader
	}
	s := &Schema{
		Columns:     append([]string(nil), columns...),
		BaseColumns: append([]string(nil), base...),
		Groups:      make([]DummyGroup, len(groups)),
		Passthrough: append([]string(nil), passthrough...),
		index:       make(map[string]int, len(columns)),
		groupIndex:  make(map[string]int, len(groups)),
		categories:  make(map[string]map[string]int, len(groups)),
	}
	for i, c := range columns {
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		s.index[c] = i
	}

	for _, c := range base {
		if _, ok := s.index[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	for i, g := range groups {
		if len(g.Categories) == 0 {
			return nil, fmt.Errorf("%w: %s (prefix %q)", ErrEmptyGroup, g.Name, g.Prefix)
		}
		cats := make(map[string]int, len(g.Categories))
		for _, cat := range g.Categories {
			pos, ok := s.index[g.Column(cat)]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingColumn, g.Column(cat))
			}
			cats[cat] = pos
		}
		s.categories[g.Name] = cats
		s.Groups[i] = DummyGroup{
			Name:       g.Name,
			Prefix:     g.Prefix,
			Categories: append([]string(nil), g.Categories...),
		}
		s.groupIndex[g.Name] = i
	}
	return s, nil
}

// Index returns the position of column.
func (s *Schema) Index(column string) (int, bool) {
	i, ok := s.index[column]
	return i, ok
}

// Group returns the dummy group called name.
func (s *Schema) Group(name string) (DummyGroup, bool) {
	i, ok := s.groupIndex[name]
	if !ok {
		return DummyGroup{}, false
	}
	return s.Groups[i], true
}

// CategoryIndex resolves a group selection to its column position.
func (s *Schema) CategoryIndex(group, category string) (int, error) {
	cats, ok := s.categories[group]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	i, ok := cats[category]
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a known %s", ErrUnknownCategory, category, group)
	}
	return i, nil
}

// IsBase reports whether column is a base column.
func (s *Schema) IsBase(column string) bool {
	for _, c := range s.BaseColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Conforms checks that columns has the schema's names in the schema's order.
func (s *Schema) Conforms(columns []string) error {
	if len(columns) != len(s.Columns) {
		return fmt.Errorf("%w: %d columns, want %d", ErrShapeMismatch, len(columns), len(s.Columns))
	}
	for i, c := range columns {
		if c != s.Columns[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrShapeMismatch, i, c, s.Columns[i])
		}
	}
	return nil
}
