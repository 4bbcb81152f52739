package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Session   SessionConfig   `mapstructure:"session"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Export    ExportConfig    `mapstructure:"export"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"oneof=development staging production test"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig holds the product backend connection settings
type BackendConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required"`
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=1"`
}

// TimeoutConfig holds the per-payload call deadlines
type TimeoutConfig struct {
	JSON time.Duration `mapstructure:"json" validate:"gt=0"`
	Form time.Duration `mapstructure:"form" validate:"gt=0"`
	CSV  time.Duration `mapstructure:"csv" validate:"gt=0"`
}

// SessionConfig holds operator session lifetime settings
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// ProgressConfig holds the processing progress settings
type ProgressConfig struct {
	Tick time.Duration `mapstructure:"tick" validate:"gt=0"`
}

// ExportConfig holds where the CLI writes exported files
type ExportConfig struct {
	DownloadDir string `mapstructure:"download_dir" validate:"required"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip" validate:"gte=1"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	FilePath string `mapstructure:"file_path"`
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load loads configuration from a .env file, environment variables and
// config files, in increasing order of precedence: defaults, config file, env
func Load() (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/productstudio/")

	// STUDIO_BACKEND_BASE_URL -> backend.base_url
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// keys without a default are only seen by Unmarshal when bound
	if err := v.BindEnv("backend.api_key"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads variables from path into the process environment.
// Variables already set win; a missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8000/api")
	v.SetDefault("backend.requests_per_second", 5)
	v.SetDefault("backend.burst", 5)

	// Call deadlines
	v.SetDefault("timeouts.json", "120s")
	v.SetDefault("timeouts.form", "600s")
	v.SetDefault("timeouts.csv", "180s")

	// Sessions
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.cleanup_interval", "10m")

	v.SetDefault("progress.tick", "1s")
	v.SetDefault("export.download_dir", ".")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
}

var configValidator = validator.New()

// validate validates the configuration
func validate(config *Config) error {
	if err := configValidator.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	u, err := url.Parse(config.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend base URL must be an absolute http(s) URL, got: %s", config.Backend.BaseURL)
	}

	if config.IsProduction() {
		for _, origin := range config.Server.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("wildcard CORS origin is not allowed in production")
			}
		}
	}

	return nil
}
