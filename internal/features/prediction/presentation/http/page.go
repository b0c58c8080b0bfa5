package http

import (
	"embed"
	"errors"
	"html/template"

	catalogdomain "hdb-predictor/backend/internal/features/catalog/domain"
	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Templates parses the embedded page templates for gin's HTML renderer.
func Templates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.tmpl")
}

type optionView struct {
	Label    string
	Value    string
	Selected bool
}

type fieldView struct {
	Name    string
	Kind    catalogdomain.FieldKind
	Prompt  template.HTML
	Min     string
	Max     string
	Value   string
	Options []optionView
	Error   string
}

type formPage struct {
	Title     string
	Fields    []fieldView
	Groups    []fieldView
	Result    string
	RequestID string
	Error     string
}

// newFormPage builds the view of form. values and selections hold submitted
// input and win over defaults; err spreads onto the fields it names, anything
// else becomes the page banner.
func newFormPage(form configdomain.FormDescription, values, selections map[string]string, err error) formPage {
	var fieldErrs domain.FieldErrors
	if err != nil {
		errors.As(err, &fieldErrs)
	}

	page := formPage{Title: form.Title}
	for _, f := range form.Fields {
		value, ok := values[f.Column]
		if !ok {
			value = catalogdomain.FormatNumber(f.Default)
		}
		view := fieldView{
			Name:   f.Column,
			Kind:   f.Kind,
			Prompt: template.HTML(f.Prompt), // sanitized by the catalog loader
			Min:    catalogdomain.FormatNumber(f.Min),
			Max:    catalogdomain.FormatNumber(f.Max),
			Value:  value,
			Error:  fieldErrs[f.Column],
		}
		// Submitted text may be a label ("Yes", "4-Room") as well as a number.
		parsed, parseErr := f.Parse(value)
		chosen := func(v float64) bool { return parseErr == nil && parsed == v }
		switch f.Kind {
		case catalogdomain.KindBinary:
			view.Options = []optionView{
				{Label: "Yes", Value: "1", Selected: chosen(1)},
				{Label: "No", Value: "0", Selected: !chosen(1)},
			}
		case catalogdomain.KindChoice:
			for _, o := range f.Options {
				view.Options = append(view.Options, optionView{
					Label:    o.Label,
					Value:    catalogdomain.FormatNumber(o.Value),
					Selected: chosen(o.Value),
				})
			}
		}
		page.Fields = append(page.Fields, view)
	}

	for _, g := range form.Groups {
		selected, ok := selections[g.Name]
		if !ok || selected == "" {
			selected = g.Default
		}
		view := fieldView{
			Name:   g.Name,
			Prompt: template.HTML(g.Prompt),
			Value:  selected,
		}
		for _, category := range g.Categories {
			view.Options = append(view.Options, optionView{Label: category, Value: category, Selected: category == selected})
		}
		switch {
		case errors.Is(err, schemadomain.ErrUnknownCategory) && !isKnown(g.Categories, selected):
			view.Error = "Unknown category " + selected
		case errors.Is(err, domain.ErrMissingSelection) && ok && selections[g.Name] == "":
			view.Error = "Select one option"
		}
		page.Groups = append(page.Groups, view)
	}

	if err != nil && fieldErrs == nil {
		page.Error = err.Error()
	} else if fieldErrs != nil {
		page.Error = "Some answers are invalid."
	}
	return page
}

func isKnown(categories []string, value string) bool {
	for _, c := range categories {
		if c == value {
			return true
		}
	}
	return false
}
