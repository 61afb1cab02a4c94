package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/decoder/internal/logging"
)

// Config captures the decoder configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	HTTPAddr      string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr      string `yaml:"grpc_addr" toml:"grpc_addr"`
	AuditLog      string `yaml:"audit_log" toml:"audit_log"`
	LogLevel      string `yaml:"log_level" toml:"log_level"`
	Seed          uint64 `yaml:"seed" toml:"seed"`
	MaxImageBytes int64  `yaml:"max_image_bytes" toml:"max_image_bytes"`
}

// Default returns the built-in decoder configuration.
func Default() Config {
	return Config{
		HTTPAddr:      "127.0.0.1:8713",
		GRPCAddr:      "127.0.0.1:50061",
		AuditLog:      "",
		LogLevel:      "info",
		Seed:          0,
		MaxImageBytes: 32 << 20,
	}
}

// Validate reports the first field that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" && strings.TrimSpace(c.GRPCAddr) == "" {
		return errors.New("at least one of http_addr or grpc_addr must be set")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("max_image_bytes must be positive, got %d", c.MaxImageBytes)
	}
	return nil
}

// Load resolves the decoder configuration. The lookup order is:
//  1. ~/.decoder/config.toml (TOML)
//  2. ./decoder.yml (YAML)
//
// Environment variables prefixed with DECODER_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory means no home config.
		return nil
	}
	return loadFile(cfg, filepath.Join(home, ".decoder", "config.toml"), "toml")
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, "decoder.yml"), "yaml")
}

func loadFile(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig distinguishes absent keys from zero values.
type fileConfig struct {
	HTTPAddr      *string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr      *string `yaml:"grpc_addr" toml:"grpc_addr"`
	AuditLog      *string `yaml:"audit_log" toml:"audit_log"`
	LogLevel      *string `yaml:"log_level" toml:"log_level"`
	Seed          *uint64 `yaml:"seed" toml:"seed"`
	MaxImageBytes *int64  `yaml:"max_image_bytes" toml:"max_image_bytes"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case "toml":
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = strings.TrimSpace(*fc.HTTPAddr)
	}
	if fc.GRPCAddr != nil {
		cfg.GRPCAddr = strings.TrimSpace(*fc.GRPCAddr)
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = strings.TrimSpace(*fc.AuditLog)
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = strings.TrimSpace(*fc.LogLevel)
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	if fc.MaxImageBytes != nil {
		cfg.MaxImageBytes = *fc.MaxImageBytes
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := strings.TrimSpace(os.Getenv("DECODER_HTTP_ADDR")); val != "" {
		cfg.HTTPAddr = val
	}
	if val := strings.TrimSpace(os.Getenv("DECODER_GRPC_ADDR")); val != "" {
		cfg.GRPCAddr = val
	}
	if val := strings.TrimSpace(os.Getenv("DECODER_AUDIT_LOG")); val != "" {
		cfg.AuditLog = val
	}
	if val := strings.TrimSpace(os.Getenv("DECODER_LOG_LEVEL")); val != "" {
		cfg.LogLevel = val
	}
	if val := strings.TrimSpace(os.Getenv("DECODER_SEED")); val != "" {
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("DECODER_SEED: %w", err)
		}
		cfg.Seed = parsed
	}
	if val := strings.TrimSpace(os.Getenv("DECODER_MAX_IMAGE_BYTES")); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("DECODER_MAX_IMAGE_BYTES: %w", err)
		}
		cfg.MaxImageBytes = parsed
	}
	return nil
}
