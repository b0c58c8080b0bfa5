package application

import (
	_ "embed"
	"fmt"
	"html"
	"os"
	"strings"
	"sync"

	"hdb-predictor/backend/internal/features/catalog/domain"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type catalogDocument struct {
	Title  string         `yaml:"title"`
	Fields []domain.Field `yaml:"fields"`
	Groups []domain.Group `yaml:"groups"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*domain.Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes a YAML catalog, sanitizes its prompts and validates it.
func ParseCatalog(data []byte) (*domain.Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i := range doc.Fields {
		doc.Fields[i].Column = strings.TrimSpace(doc.Fields[i].Column)
		doc.Fields[i].Prompt = SanitizePrompt(doc.Fields[i].Prompt)
	}
	for i := range doc.Groups {
		doc.Groups[i].Prompt = SanitizePrompt(doc.Groups[i].Prompt)
	}

	return domain.NewCatalog(strings.TrimSpace(doc.Title), doc.Fields, doc.Groups)
}

var (
	promptPolicyOnce sync.Once
	promptPolicy     *bluemonday.Policy
)

// SanitizePrompt strips markup from a prompt except em, strong and code. The
// result is HTML and is rendered unescaped by the web form.
func SanitizePrompt(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(promptSanitizer().Sanitize(trimmed))
}

// PlainPrompt removes all markup, for terminal output.
func PlainPrompt(prompt string) string {
	return html.UnescapeString(bluemonday.StrictPolicy().Sanitize(prompt))
}

func promptSanitizer() *bluemonday.Policy {
	promptPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("em", "strong", "code")
		promptPolicy = policy
	})
	return promptPolicy
}
