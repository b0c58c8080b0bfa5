package application

import (
	"fmt"

	catalogdomain "hdb-predictor/backend/internal/features/catalog/domain"
	"hdb-predictor/backend/internal/features/config/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"
)

// FormConfigService exposes the immutable form configuration assembled at
// startup from the catalog and the discovered schema.
type FormConfigService interface {
	Form() domain.FormDescription
	Catalog() *catalogdomain.Catalog
	Schema() *schemadomain.Schema
}

// formConfigService is the implementation of FormConfigService.
type formConfigService struct {
	catalog *catalogdomain.Catalog
	schema  *schemadomain.Schema
	form    domain.FormDescription
}

// NewFormConfigService joins catalog prompts with the categories found in the
// schema. A group's default must be one of its categories; without one the
// first category is preselected.
func NewFormConfigService(catalog *catalogdomain.Catalog, schema *schemadomain.Schema) (FormConfigService, error) {
	form := domain.FormDescription{
		Title:  catalog.Title,
		Fields: make([]domain.FormField, len(catalog.Fields)),
		Groups: make([]domain.FormGroup, 0, len(catalog.Groups)),
	}
	for i, f := range catalog.Fields {
		form.Fields[i] = domain.FormField{Field: f}
	}

	for _, cg := range catalog.Groups {
		g, ok := schema.Group(cg.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", schemadomain.ErrUnknownGroup, cg.Name)
		}
		def := g.Categories[0]
		if cg.Default != "" {
			if _, err := schema.CategoryIndex(cg.Name, cg.Default); err != nil {
				return nil, fmt.Errorf("default for %s: %w", cg.Name, err)
			}
			def = cg.Default
		}
		form.Groups = append(form.Groups, domain.FormGroup{
			Name:       cg.Name,
			Prompt:     cg.Prompt,
			Categories: append([]string(nil), g.Categories...),
			Default:    def,
		})
	}

	return &formConfigService{catalog: catalog, schema: schema, form: form}, nil
}

func (s *formConfigService) Form() domain.FormDescription { return s.form }

func (s *formConfigService) Catalog() *catalogdomain.Catalog { return s.catalog }

func (s *formConfigService) Schema() *schemadomain.Schema { return s.schema }

// GroupSpecs lists the dummy groups declared by the catalog.
func GroupSpecs(catalog *catalogdomain.Catalog) []schemadomain.GroupSpec {
	out := make([]schemadomain.GroupSpec, len(catalog.Groups))
	for i, g := range catalog.Groups {
		out[i] = schemadomain.GroupSpec{Name: g.Name, Prefix: g.Prefix}
	}
	return out
}
