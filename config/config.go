package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	relayhttp "github.com/sagarc03/mediarelay/http"
)

// DotEnvFile is the dotenv file read from the working directory by Load.
const DotEnvFile = ".env"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the relay.
type Config struct {
	Env     string               `mapstructure:"env" yaml:"env" validate:"omitempty,oneof=dev development prod production"`
	Server  ServerConfig         `mapstructure:"server" yaml:"server"`
	API     APIConfig            `mapstructure:"api" yaml:"api"`
	Storage StorageConfig        `mapstructure:"storage" yaml:"storage"`
	CORS    relayhttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Metrics MetricsConfig        `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig            `mapstructure:"log" yaml:"log"`
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

// APIConfig points at the Record API collection endpoint.
type APIConfig struct {
	URL     string        `mapstructure:"url" yaml:"url" validate:"required,http_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Backend    string           `mapstructure:"backend" yaml:"backend" validate:"required,oneof=s3 filesystem"`
	S3         S3Config         `mapstructure:"s3" yaml:"s3"`
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`
}

// S3Config holds the bucket settings. Endpoint and PathStyle target
// S3-compatible servers; empty keys fall back to the default credential chain.
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,http_url"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// FilesystemConfig holds the local directory backend settings.
type FilesystemConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"api-url":         "api.url",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.filesystem.path",
	"bucket":          "storage.s3.bucket",
	"log-level":       "log.level",
}

// legacyEnv binds the variable names used by earlier deployments.
// The MEDIARELAY_ form wins when both are set.
var legacyEnv = map[string]string{
	"storage.s3.region": "AWS_REGION",
	"storage.s3.bucket": "S3_BUCKET_NAME",
	"api.url":           "API_GATEWAY_URL",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// gets a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_upload_size", 10<<20)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("api.url", "")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.path_style", false)
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.filesystem.path", "./data")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
}

// loadDotEnv copies variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading dotenv file", "file", path, "err", err)
	}
}

// storageValidation requires the settings of the selected backend.
func storageValidation(sl validator.StructLevel) {
	s := sl.Current().Interface().(StorageConfig)

	switch s.Backend {
	case "s3":
		if s.S3.Bucket == "" {
			sl.ReportError(s.S3.Bucket, "S3.Bucket", "Bucket", "required_with_backend", "s3")
		}
		if s.S3.Region == "" {
			sl.ReportError(s.S3.Region, "S3.Region", "Region", "required_with_backend", "s3")
		}
		if (s.S3.AccessKey == "") != (s.S3.SecretKey == "") {
			sl.ReportError(s.S3.AccessKey, "S3.AccessKey", "AccessKey", "paired_with_secret_key", "")
		}
	case "filesystem":
		if s.Filesystem.Path == "" {
			sl.ReportError(s.Filesystem.Path, "Filesystem.Path", "Path", "required_with_backend", "filesystem")
		}
	}
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > .env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables, seeded from .env
	loadDotEnv(DotEnvFile)

	v.SetEnvPrefix("MEDIARELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		prefixed := "MEDIARELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	validate.RegisterStructValidation(storageValidation, StorageConfig{})
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Redacted returns a copy of cfg with credentials masked, for display.
func Redacted(cfg *Config) Config {
	out := *cfg
	if out.Storage.S3.AccessKey != "" {
		out.Storage.S3.AccessKey = mask(out.Storage.S3.AccessKey)
	}
	if out.Storage.S3.SecretKey != "" {
		out.Storage.S3.SecretKey = "********"
	}
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
