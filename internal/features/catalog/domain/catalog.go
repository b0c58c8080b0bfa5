// Package domain holds the form catalog: the prompt, bounds and default of
// every base column and the prompt of every categorical group.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrOutOfRange    = errors.New("value out of range")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidNumber = errors.New("invalid number")
	ErrUnknownOption = errors.New("unknown option")
)

// FieldKind selects the input widget of a base column.
type FieldKind string

const (
	// KindNumber is a bounded numeric input.
	KindNumber FieldKind = "number"
	// KindBinary is a Yes/No select stored as 1/0.
	KindBinary FieldKind = "binary"
	// KindChoice is a labelled select stored as the option value.
	KindChoice FieldKind = "choice"
)

// Option is one entry of a choice field.
type Option struct {
	Label string  `yaml:"label" json:"label"`
	Value float64 `yaml:"value" json:"value"`
}

// Field describes the input for one base column.
type Field struct {
	Column  string    `yaml:"column" json:"column"`
	Kind    FieldKind `yaml:"kind" json:"kind"`
	Prompt  string    `yaml:"prompt" json:"prompt"`
	Min     float64   `yaml:"min" json:"min"`
	Max     float64   `yaml:"max" json:"max"`
	Default float64   `yaml:"default" json:"default"`
	Options []Option  `yaml:"options,omitempty" json:"options,omitempty"`
}

// Group describes the select for one categorical (one-hot) family.
type Group struct {
	Name    string `yaml:"name" json:"name"`
	Prefix  string `yaml:"prefix" json:"prefix"`
	Prompt  string `yaml:"prompt" json:"prompt"`
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

// Catalog is immutable once loaded.
type Catalog struct {
	Title  string  `yaml:"title" json:"title"`
	Fields []Field `yaml:"fields" json:"fields"`
	Groups []Group `yaml:"groups" json:"groups"`

	index map[string]int
}

// NewCatalog validates fields and groups and indexes them by column.
func NewCatalog(title string, fields []Field, groups []Group) (*Catalog, error) {
	c := &Catalog{
		Title:  title,
		Fields: append([]Field(nil), fields...),
		Groups: append([]Group(nil), groups...),
		index:  make(map[string]int, len(fields)),
	}
	if len(c.Fields) == 0 {
		return nil, errors.New("catalog: no fields")
	}
	if len(c.Groups) == 0 {
		return nil, errors.New("catalog: no groups")
	}

	for i, f := range c.Fields {
		if err := validateField(f); err != nil {
			return nil, fmt.Errorf("catalog: field %q: %w", f.Column, err)
		}
		if _, dup := c.index[f.Column]; dup {
			return nil, fmt.Errorf("catalog: duplicate field %q", f.Column)
		}
		c.index[f.Column] = i
	}

	names := make(map[string]struct{}, len(c.Groups))
	prefixes := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if g.Name == "" || g.Prefix == "" {
			return nil, fmt.Errorf("catalog: group %q needs a name and a prefix", g.Name)
		}
		if _, dup := names[g.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate group %q", g.Name)
		}
		if _, dup := prefixes[g.Prefix]; dup {
			return nil, fmt.Errorf("catalog: duplicate group prefix %q", g.Prefix)
		}
		names[g.Name] = struct{}{}
		prefixes[g.Prefix] = struct{}{}
	}
	return c, nil
}

func validateField(f Field) error {
	if f.Column == "" {
		return errors.New("column is required")
	}
	if f.Min > f.Max {
		return fmt.Errorf("min %v greater than max %v", f.Min, f.Max)
	}
	if f.Default < f.Min || f.Default > f.Max {
		return fmt.Errorf("default %v outside [%v, %v]", f.Default, f.Min, f.Max)
	}
	switch f.Kind {
	case KindNumber:
	case KindBinary:
		if f.Min != 0 || f.Max != 1 {
			return errors.New("binary fields are bounded to [0, 1]")
		}
	case KindChoice:
		if len(f.Options) == 0 {
			return errors.New("choice fields need options")
		}
		for _, o := range f.Options {
			if o.Value < f.Min || o.Value > f.Max {
				return fmt.Errorf("option %q value %v outside [%v, %v]", o.Label, o.Value, f.Min, f.Max)
			}
		}
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	if err := f.Validate(f.Default); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	return nil
}

// Field returns the field for a base column.
func (c *Catalog) Field(column string) (Field, bool) {
	i, ok := c.index[column]
	if !ok {
		return Field{}, false
	}
	return c.Fields[i], true
}

// BaseColumns lists the base columns in catalog order.
func (c *Catalog) BaseColumns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Column
	}
	return out
}

// Defaults maps every base column to its pre-filled value.
func (c *Catalog) Defaults() map[string]float64 {
	out := make(map[string]float64, len(c.Fields))
	for _, f := range c.Fields {
		out[f.Column] = f.Default
	}
	return out
}

// Validate checks value against the inclusive bounds of column.
func (c *Catalog) Validate(column string, value float64) error {
	f, ok := c.Field(column)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, column)
	}
	return f.Validate(value)
}

// Validate checks value against the field's inclusive bounds. Binary fields
// take only 0 or 1 and choice fields only the value of one of their options.
func (f Field) Validate(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidNumber, f.Column)
	}
	if value < f.Min || value > f.Max {
		return fmt.Errorf("%w: %s must be between %s and %s", ErrOutOfRange, f.Column, FormatNumber(f.Min), FormatNumber(f.Max))
	}
	switch f.Kind {
	case KindBinary:
		if value != 0 && value != 1 {
			return fmt.Errorf("%w: %s must be 0 or 1", ErrUnknownOption, f.Column)
		}
	case KindChoice:
		for _, o := range f.Options {
			if o.Value == value {
				return nil
			}
		}
		return fmt.Errorf("%w: %s for %s", ErrUnknownOption, FormatNumber(value), f.Column)
	}
	return nil
}

// Parse turns user text into the numeric value of the field. Choice fields
// accept an option label, binary fields accept Yes/No; every kind accepts a
// plain number.
func (f Field) Parse(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	switch f.Kind {
	case KindChoice:
		for _, o := range f.Options {
			if strings.EqualFold(o.Label, text) {
				return o.Value, nil
			}
		}
	case KindBinary:
		switch strings.ToLower(text) {
		case "yes", "true":
			return 1, nil
		case "no", "false":
			return 0, nil
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if f.Kind == KindChoice {
			return 0, fmt.Errorf("%w: %q for %s", ErrUnknownOption, raw, f.Column)
		}
		return 0, fmt.Errorf("%w: %q for %s", ErrInvalidNumber, raw, f.Column)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q for %s", ErrInvalidNumber, raw, f.Column)
	}
	return v, nil
}

// OptionLabel returns the label shown for value, or the number itself.
func (f Field) OptionLabel(value float64) string {
	switch f.Kind {
	case KindChoice:
		for _, o := range f.Options {
			if o.Value == value {
				return o.Label
			}
		}
	case KindBinary:
		if value == 1 {
			return "Yes"
		}
		return "No"
	}
	return FormatNumber(value)
}

// FormatNumber prints integral values without a fraction.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
