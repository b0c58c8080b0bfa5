package domain

import catalogdomain "hdb-predictor/backend/internal/features/catalog/domain"

// FormDescription is everything a form surface needs to render the inputs.
type FormDescription struct {
	Title  string      `json:"title"`
	Fields []FormField `json:"fields"`
	Groups []FormGroup `json:"groups"`
}

// FormField is one base column input.
type FormField struct {
	catalogdomain.Field
}

// FormGroup is one categorical select. Default is the preselected category.
type FormGroup struct {
	Name       string   `json:"name"`
	Prompt     string   `json:"prompt"`
	Categories []string `json:"categories"`
	Default    string   `json:"default"`
}

// DefaultSelections maps every group to its preselected category.
func (f FormDescription) DefaultSelections() map[string]string {
	out := make(map[string]string, len(f.Groups))
	for _, g := range f.Groups {
		out[g.Name] = g.Default
	}
	return out
}
