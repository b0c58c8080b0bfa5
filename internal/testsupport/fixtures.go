// Package testsupport builds the fixtures shared by the prediction tests.
package testsupport

import (
	"testing"

	catalogapp "hdb-predictor/backend/internal/features/catalog/application"
	configapp "hdb-predictor/backend/internal/features/config/application"
	schemaapp "hdb-predictor/backend/internal/features/schema/application"
)

// Towns and FlatModels are the categories present in Header.
var (
	Towns      = []string{"ANG MO KIO", "BEDOK", "TAMPINES", "YISHUN"}
	FlatModels = []string{"Apartment", "Improved", "Model A", "New Generation"}
)

// IgnoredColumns matches the stray index column in Header.
var IgnoredColumns = []string{"Unnamed: 0"}

// Header is a reference dataset header in the layout of the training export:
// index column, base columns, one passthrough column, then the dummy groups.
func Header(t testing.TB) []string {
	t.Helper()
	catalog, err := catalogapp.DefaultCatalog()
	if err != nil {
		t.Fatalf("failed to load default catalog: %v", err)
	}
	header := []string{"Unnamed: 0"}
	header = append(header, catalog.BaseColumns()...)
	header = append(header, "mid_storey")
	for _, town := range Towns {
		header = append(header, "town_"+town)
	}
	for _, model := range FlatModels {
		header = append(header, "flat_model_"+model)
	}
	return header
}

// Forms returns the form configuration built from the default catalog and Header.
func Forms(t testing.TB) configapp.FormConfigService {
	t.Helper()
	catalog, err := catalogapp.DefaultCatalog()
	if err != nil {
		t.Fatalf("failed to load default catalog: %v", err)
	}
	schema, err := schemaapp.Discover(Header(t), catalog.BaseColumns(), configapp.GroupSpecs(catalog), IgnoredColumns)
	if err != nil {
		t.Fatalf("failed to discover schema: %v", err)
	}
	forms, err := configapp.NewFormConfigService(catalog, schema)
	if err != nil {
		t.Fatalf("failed to build form config: %v", err)
	}
	return forms
}
