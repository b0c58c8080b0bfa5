package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hdb-predictor/backend/internal/features/config/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. HDB_MODEL_PROVIDER.
const EnvPrefix = "HDB"

// AppConfigService defines the interface for application configuration loading.
type AppConfigService interface {
	LoadAppConfig() (*domain.AppConfig, error)
	ConfigFileUsed() string
}

// appConfigService is the viper-backed implementation of AppConfigService.
type appConfigService struct {
	configPath string
	v          *viper.Viper
}

// NewAppConfigService creates a config service. An empty configPath searches
// for config.yaml in the working directory and ./configs.
func NewAppConfigService(configPath string) AppConfigService {
	return &appConfigService{configPath: configPath, v: viper.New()}
}

// LoadAppConfig reads .env, the config file and HDB_* environment overrides,
// applies defaults and validates the result.
func (s *appConfigService) LoadAppConfig() (*domain.AppConfig, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := s.v
	setDefaults(v)

	if s.configPath != "" {
		v.SetConfigFile(s.configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if s.configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var appConfig domain.AppConfig
	if err := v.Unmarshal(&appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&appConfig); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &appConfig, nil
}

// ConfigFileUsed reports the file viper read, empty when running on defaults.
func (s *appConfigService) ConfigFileUsed() string {
	return s.v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("schema.dataset_path", "X_train_transformed.csv")
	v.SetDefault("schema.ignore_columns", []string{})
	v.SetDefault("catalog.path", "")
	v.SetDefault("model.provider", domain.ProviderLinear)
	v.SetDefault("model.path", "model.json")
	v.SetDefault("model.url", "")
	v.SetDefault("model.timeout", 10*time.Second)
	v.SetDefault("model.constant", 0)
	v.SetDefault("model.openai.api_key", "")
	v.SetDefault("model.openai.model", "gpt-4o-mini")
	v.SetDefault("model.openai.base_url", "")
	v.SetDefault("model.openai.temperature", 0)
}

func validateConfig(cfg *domain.AppConfig) error {
	if cfg.Schema.DatasetPath == "" {
		return errors.New("schema.dataset_path is required")
	}
	if cfg.Model.Timeout <= 0 {
		return errors.New("model.timeout must be positive")
	}

	switch cfg.Model.Provider {
	case domain.ProviderLinear:
		if cfg.Model.Path == "" {
			return errors.New("model.path is required for the linear provider")
		}
	case domain.ProviderHTTP:
		if cfg.Model.URL == "" {
			return errors.New("model.url is required for the http provider")
		}
	case domain.ProviderOpenAI:
		if cfg.Model.OpenAI.APIKey == "" {
			return errors.New("model.openai.api_key is required for the openai provider")
		}
	case domain.ProviderConstant:
	default:
		return fmt.Errorf("unknown model.provider %q", cfg.Model.Provider)
	}
	return nil
}
