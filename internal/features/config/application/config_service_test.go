package application

import (
	"testing"

	catalogdomain "hdb-predictor/backend/internal/features/catalog/domain"
	schemadomain "hdb-predictor/backend/internal/features/schema/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, townDefault string) *catalogdomain.Catalog {
	t.Helper()
	c, err := catalogdomain.NewCatalog("Test",
		[]catalogdomain.Field{{Column: "floor_area_sqm", Kind: catalogdomain.KindNumber, Min: 0, Max: 300, Default: 100}},
		[]catalogdomain.Group{
			{Name: "town", Prefix: "town_", Prompt: "Select Town", Default: townDefault},
			{Name: "flat_model", Prefix: "flat_model_", Prompt: "Select Flat Model"},
		},
	)
	require.NoError(t, err)
	return c
}

func newTestSchema(t *testing.T) *schemadomain.Schema {
	t.Helper()
	s, err := schemadomain.New(
		[]string{"floor_area_sqm", "town_BEDOK", "town_YISHUN", "flat_model_Improved"},
		[]string{"floor_area_sqm"},
		[]schemadomain.DummyGroup{
			{Name: "town", Prefix: "town_", Categories: []string{"BEDOK", "YISHUN"}},
			{Name: "flat_model", Prefix: "flat_model_", Categories: []string{"Improved"}},
		},
		nil,
	)
	require.NoError(t, err)
	return s
}

func TestNewFormConfigService(t *testing.T) {
	catalog := newTestCatalog(t, "YISHUN")
	schema := newTestSchema(t)

	svc, err := NewFormConfigService(catalog, schema)
	require.NoError(t, err)

	form := svc.Form()
	assert.Equal(t, "Test", form.Title)
	require.Len(t, form.Fields, 1)
	assert.Equal(t, "floor_area_sqm", form.Fields[0].Column)
	require.Len(t, form.Groups, 2)
	assert.Equal(t, []string{"BEDOK", "YISHUN"}, form.Groups[0].Categories)
	assert.Equal(t, map[string]string{"town": "YISHUN", "flat_model": "Improved"}, form.DefaultSelections())
	assert.Same(t, catalog, svc.Catalog())
	assert.Same(t, schema, svc.Schema())
}

func TestNewFormConfigServiceRejectsUnknownDefault(t *testing.T) {
	_, err := NewFormConfigService(newTestCatalog(t, "ATLANTIS"), newTestSchema(t))
	assert.ErrorIs(t, err, schemadomain.ErrUnknownCategory)
}

func TestNewFormConfigServiceRejectsGroupMissingFromSchema(t *testing.T) {
	s, err := schemadomain.New([]string{"floor_area_sqm"}, []string{"floor_area_sqm"}, nil, nil)
	require.NoError(t, err)

	_, err = NewFormConfigService(newTestCatalog(t, ""), s)
	assert.ErrorIs(t, err, schemadomain.ErrUnknownGroup)
}

func TestGroupSpecs(t *testing.T) {
	assert.Equal(t, []schemadomain.GroupSpec{
		{Name: "town", Prefix: "town_"},
		{Name: "flat_model", Prefix: "flat_model_"},
	}, GroupSpecs(newTestCatalog(t, "")))
}
