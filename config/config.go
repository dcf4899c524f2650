// Package config loads service configuration from a YAML file with
// environment variable expansion. A .env file next to the binary is loaded
// first, so ${VAR} references in the YAML resolve against it.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Resolver ResolverConfig `yaml:"resolver"`
	Archive  ArchiveConfig  `yaml:"archive"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string `yaml:"port"`
	CORSEnabled bool   `yaml:"cors_enabled"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN assembles the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// ResolverConfig holds URL resolution settings
type ResolverConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
}

// ArchiveConfig selects where page snapshots go. Backend is one of "none",
// "fs" or "s3".
type ArchiveConfig struct {
	Backend  string   `yaml:"backend"`
	BasePath string   `yaml:"base_path"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Load reads the config file at path, expanding ${VAR} references from the
// environment. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	// Ignore a missing .env; environment variables may come from anywhere
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSEnabled: true,
		},
		Database: DatabaseConfig{
			Port:    "5432",
			SSLMode: "disable",
		},
		Resolver: ResolverConfig{
			TimeoutSeconds: 120,
			UserAgent:      "Mozilla/5.0 (compatible; Later/1.0)",
			MaxBodyBytes:   10 * 1024 * 1024,
		},
		Archive: ArchiveConfig{
			Backend:  "fs",
			BasePath: "./archive",
		},
		LogLevel: "info",
	}
}

func (c *Config) validate() error {
	switch c.Archive.Backend {
	case "none", "fs", "s3":
	default:
		return fmt.Errorf("unknown archive backend: %q", c.Archive.Backend)
	}

	if c.Resolver.TimeoutSeconds <= 0 {
		return fmt.Errorf("resolver timeout must be positive, got %d", c.Resolver.TimeoutSeconds)
	}

	return nil
}
