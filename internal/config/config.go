// Package config defines the ingest service configuration and its loader.
// Configuration merges defaults, an optional YAML file, environment
// variables and command-line flags, and is passed down explicitly to each
// stage instead of being read from ambient lookups.
package config

import (
	"fmt"
	"strings"
)

// Config is the complete configuration for the ingest service.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage" json:"storage"`
	Detect   DetectConfig   `mapstructure:"detect" yaml:"detect" json:"detect"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database" json:"database"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// StorageConfig points at the Supabase storage backend used to sign image
// URLs. URL and ServiceKey are required to run the service.
type StorageConfig struct {
	URL        string `mapstructure:"url" yaml:"url" json:"url"`
	ServiceKey string `mapstructure:"service_key" yaml:"service_key" json:"service_key"`
	Bucket     string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	SignTTLSec int    `mapstructure:"sign_ttl_sec" yaml:"sign_ttl_sec" json:"sign_ttl_sec"`
}

// DetectConfig configures the optional YOLO region-detection service. An
// empty endpoint disables preprocessing entirely.
type DetectConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
}

// OCRConfig selects and configures the text-recognition provider.
// ConfidenceFloor is validated but currently informational: stored
// confidences are not rejected against it.
type OCRConfig struct {
	Provider        string      `mapstructure:"provider" yaml:"provider" json:"provider"`
	ConfidenceFloor float64     `mapstructure:"confidence_floor" yaml:"confidence_floor" json:"confidence_floor"`
	Clova           ClovaConfig `mapstructure:"clova" yaml:"clova" json:"clova"`
}

// ClovaConfig holds CLOVA OCR credentials, required when the provider is
// "clova". TemplateID is optional and scopes calls to one template.
type ClovaConfig struct {
	SecretKey  string `mapstructure:"secret_key" yaml:"secret_key" json:"secret_key"`
	InvokeURL  string `mapstructure:"invoke_url" yaml:"invoke_url" json:"invoke_url"`
	TemplateID string `mapstructure:"template_id" yaml:"template_id" json:"template_id"`
}

// DatabaseConfig holds the Postgres connection string for the result store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url" json:"url"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Storage: StorageConfig{
			Bucket:     "records-raw",
			SignTTLSec: 60,
		},
		OCR: OCRConfig{
			Provider:        "clova",
			ConfidenceFloor: 0,
		},
	}
}

// Validate checks ranges and enumerations. Required credentials are checked
// separately by ValidateService so that offline commands stay usable.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server timeout must be positive, got %d", c.Server.TimeoutSec)
	}
	if c.Storage.SignTTLSec <= 0 {
		return fmt.Errorf("storage sign TTL must be positive, got %d", c.Storage.SignTTLSec)
	}
	if c.OCR.ConfidenceFloor < 0 || c.OCR.ConfidenceFloor > 1 {
		return fmt.Errorf("ocr confidence floor must be within [0, 1], got %g", c.OCR.ConfidenceFloor)
	}
	return nil
}

// ValidateService checks the settings that serving (or one-shot ingestion)
// cannot run without. Absence of any of these is fatal at startup.
func (c *Config) ValidateService() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Storage.URL == "" {
		return fmt.Errorf("storage.url is required")
	}
	if c.Storage.ServiceKey == "" {
		return fmt.Errorf("storage.service_key is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.OCR.Provider == "" {
		return fmt.Errorf("ocr.provider is required")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
