// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads engine configuration from a YAML file with
// environment-variable overrides, validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnreadableConfig indicates the config file exists but could not
	// be read or parsed.
	ErrUnreadableConfig = errors.New("unreadable configuration file")
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host" validate:"required"`

	// Port is the listen port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// ReadTimeoutMs bounds request reads.
	ReadTimeoutMs int `yaml:"readTimeoutMs" validate:"min=0"`

	// WriteTimeoutMs bounds response writes.
	WriteTimeoutMs int `yaml:"writeTimeoutMs" validate:"min=0"`
}

// BuildConfig configures graph construction.
type BuildConfig struct {
	// WorkerCount is the parallel resolution worker count. Zero means
	// one worker per CPU.
	WorkerCount int `yaml:"workerCount" validate:"min=0"`

	// TimeoutMs bounds one graph build. Zero disables the builder
	// deadline.
	TimeoutMs int `yaml:"timeoutMs" validate:"min=0"`

	// MaxNodes caps graph size.
	MaxNodes int `yaml:"maxNodes" validate:"min=1"`

	// MaxEdges caps graph size.
	MaxEdges int `yaml:"maxEdges" validate:"min=1"`

	// PathAliasTable maps import-alias prefixes to project-relative
	// directories. Alias resolution always wins over package-manager
	// resolution.
	PathAliasTable map[string]string `yaml:"pathAliasTable"`

	// IgnoreDirs extends the default ignore set for directory scans.
	IgnoreDirs []string `yaml:"ignoreDirs"`
}

// ImpactConfig configures impact analysis.
type ImpactConfig struct {
	// MaxTransitiveDepth bounds the reverse walk.
	MaxTransitiveDepth int `yaml:"maxTransitiveDepth" validate:"min=1,max=10"`

	// CriticalPathFanInThreshold is the dependent count above which a
	// node counts as critical path.
	CriticalPathFanInThreshold int `yaml:"criticalPathFanInThreshold" validate:"min=1"`
}

// CyclesConfig configures cycle detection.
type CyclesConfig struct {
	// CorePathPatterns grade any cycle through a matching node high.
	CorePathPatterns []string `yaml:"corePathPatterns"`

	// MaxCycles caps reported cycles per scan.
	MaxCycles int `yaml:"maxCycles" validate:"min=1"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	// Dir is the on-disk store location. Ignored when InMemory is set.
	Dir string `yaml:"dir"`

	// InMemory keeps snapshots in memory only.
	InMemory bool `yaml:"inMemory"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir, when set, duplicates logs as JSON lines to a dated file in
	// this directory.
	Dir string `yaml:"dir"`
}

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Build   BuildConfig   `yaml:"build"`
	Impact  ImpactConfig  `yaml:"impact"`
	Cycles  CyclesConfig  `yaml:"cycles"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8844,
			ReadTimeoutMs:  30_000,
			WriteTimeoutMs: 60_000,
		},
		Build: BuildConfig{
			TimeoutMs: 60_000,
			MaxNodes:  1_000_000,
			MaxEdges:  10_000_000,
		},
		Impact: ImpactConfig{
			MaxTransitiveDepth:         3,
			CriticalPathFanInThreshold: 20,
		},
		Cycles: CyclesConfig{
			MaxCycles: 1000,
		},
		Storage: StorageConfig{
			Dir: defaultStorageDir(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".depgraph"
	}
	return home + "/.depgraph/snapshots"
}

// Load reads the given YAML file over the defaults, applies environment
// overrides, and validates the result.
//
// Description:
//
//	A missing file is not an error; the defaults plus environment
//	overrides apply. Recognized environment variables:
//	DEPGRAPH_HOST, DEPGRAPH_PORT, DEPGRAPH_STORAGE_DIR,
//	DEPGRAPH_LOG_LEVEL, DEPGRAPH_BUILD_TIMEOUT_MS.
//
// Errors:
//
//	ErrUnreadableConfig - The file exists but cannot be read or parsed.
//	ErrInvalidConfig - The merged configuration fails validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults apply.
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableConfig, path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableConfig, path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEPGRAPH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DEPGRAPH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DEPGRAPH_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("DEPGRAPH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DEPGRAPH_BUILD_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Build.TimeoutMs = ms
		}
	}
}
