package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.v == nil {
		t.Error("Loader viper instance is nil")
	}
}

// TestLoadWithFileNonexistent tests that a missing explicit config file is an error.
func TestLoadWithFileNonexistent(t *testing.T) {
	loader := NewLoader()
	if _, err := loader.LoadWithFile("/nonexistent/ingest.yaml"); err == nil {
		t.Error("Expected error for nonexistent config file, got nil")
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file, with
// environment variables taking precedence over file values.
func TestLoadWithValidYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "ingest.yaml")

	yamlContent := `
log_level: debug
verbose: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  url: https://project.supabase.co
  bucket: records-archive
ocr:
  provider: clova
  clova:
    invoke_url: https://clovaocr.example.com/general
`

	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("INGEST_SERVER_HOST", "127.0.0.1")

	loader := NewLoader()
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %s", cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected env var to override host, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Bucket != "records-archive" {
		t.Errorf("Expected bucket 'records-archive', got %s", cfg.Storage.Bucket)
	}
	if cfg.OCR.Clova.InvokeURL != "https://clovaocr.example.com/general" {
		t.Errorf("Expected clova invoke URL from file, got %s", cfg.OCR.Clova.InvokeURL)
	}

	// Values absent from the file keep their defaults.
	if cfg.Storage.SignTTLSec != 60 {
		t.Errorf("Expected default sign_ttl_sec 60, got %d", cfg.Storage.SignTTLSec)
	}
	if cfg.Server.CORSOrigin != "*" {
		t.Errorf("Expected default cors_origin '*', got %s", cfg.Server.CORSOrigin)
	}
}

// TestLoadWithInvalidValues tests that an out-of-range file value fails validation.
func TestLoadWithInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "ingest.yaml")

	yamlContent := `
server:
  port: 99999
`
	if err := os.WriteFile(configFile, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := NewLoader()
	if _, err := loader.LoadWithFile(configFile); err == nil {
		t.Error("Expected validation error for out-of-range port, got nil")
	}
}

// TestGetConfigSearchPaths tests that search paths include the working
// directory and the system config directory.
func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths()
	if len(paths) == 0 {
		t.Fatal("Expected non-empty search paths")
	}
	if paths[0] != "." {
		t.Errorf("Expected first search path '.', got %s", paths[0])
	}

	found := false
	for _, p := range paths {
		if p == "/etc/ingest" {
			found = true
		}
	}
	if !found {
		t.Error("Expected /etc/ingest in search paths")
	}
}
