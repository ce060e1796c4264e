// Package config provides unified configuration for the datadex CLI
// and library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a datadex instance.
type Config struct {
	// DexPath is the path to the library database file.
	DexPath string `json:"dex_path" yaml:"dex_path"`

	// ParamsFilename is the parameter descriptor name looked for in
	// each dataset directory.
	ParamsFilename string `json:"params_filename" yaml:"params_filename"`

	// HashDir enables content hashing: dataset directories are renamed
	// to their content digest during indexing.
	HashDir bool `json:"hash_dir" yaml:"hash_dir"`

	// SkipDuplicates suppresses rows already indexed for the same
	// dataset path and parameter block.
	SkipDuplicates bool `json:"skip_duplicates" yaml:"skip_duplicates"`

	// Verbose enables per-directory status logging during indexing.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Archive configures the snapshot archive destination.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// ArchiveConfig holds snapshot archive configuration.
type ArchiveConfig struct {
	// Type is the archive backend: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local archive directory (for local type).
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type).
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region.
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage).
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DexPath:        "dex.db",
		ParamsFilename: "params.txt",
		Archive: ArchiveConfig{
			Type: "local",
		},
	}
}

// Resolve fills in paths derived from DexPath.
func (c *Config) Resolve() {
	if c.DexPath == "" {
		c.DexPath = "dex.db"
	}
	if c.ParamsFilename == "" {
		c.ParamsFilename = "params.txt"
	}
	if c.Archive.Type == "" {
		c.Archive.Type = "local"
	}
	if c.Archive.Type == "local" && c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(filepath.Dir(c.DexPath), "archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DexPath == "" {
		return fmt.Errorf("dex_path is required")
	}
	if c.ParamsFilename == "" {
		return fmt.Errorf("params_filename is required")
	}
	if strings.ContainsRune(c.ParamsFilename, os.PathSeparator) {
		return fmt.Errorf("params_filename must be a bare file name, got %q", c.ParamsFilename)
	}

	if c.Archive.Type != "local" && c.Archive.Type != "s3" {
		return fmt.Errorf("invalid archive type: %s (must be local or s3)", c.Archive.Type)
	}
	if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when archive type is s3")
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DATADEX_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DATADEX_DEX_PATH"); v != "" {
		cfg.DexPath = v
	}
	if v := os.Getenv("DATADEX_PARAMS_FILENAME"); v != "" {
		cfg.ParamsFilename = v
	}
	if v := os.Getenv("DATADEX_HASH_DIR"); v != "" {
		cfg.HashDir = v == "true" || v == "1"
	}
	if v := os.Getenv("DATADEX_SKIP_DUPLICATES"); v != "" {
		cfg.SkipDuplicates = v == "true" || v == "1"
	}
	if v := os.Getenv("DATADEX_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1"
	}

	if v := os.Getenv("DATADEX_ARCHIVE_TYPE"); v != "" {
		cfg.Archive.Type = v
	}
	if v := os.Getenv("DATADEX_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("DATADEX_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
	}
	if v := os.Getenv("DATADEX_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("DATADEX_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}
}
