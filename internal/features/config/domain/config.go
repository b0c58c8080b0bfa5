package domain

import "time"

// AppConfig represents the application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Schema  SchemaConfig  `mapstructure:"schema"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Model   ModelConfig   `mapstructure:"model"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchemaConfig points at the reference dataset whose header defines the model
// input columns. IgnoreColumns are dropped from the header before discovery.
type SchemaConfig struct {
	DatasetPath   string   `mapstructure:"dataset_path"`
	IgnoreColumns []string `mapstructure:"ignore_columns"`
}

// CatalogConfig locates the form catalog. An empty path selects the catalog
// compiled into the binary.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Model providers.
const (
	ProviderLinear   = "linear"
	ProviderHTTP     = "http"
	ProviderOpenAI   = "openai"
	ProviderConstant = "constant"
)

// ModelConfig selects and configures the prediction model backend.
type ModelConfig struct {
	Provider string        `mapstructure:"provider"`
	Path     string        `mapstructure:"path"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Constant float64       `mapstructure:"constant"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
}

// OpenAIConfig defines the parameters for the chat model provider.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
}
