// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Impact.MaxTransitiveDepth != 3 {
		t.Errorf("MaxTransitiveDepth = %d, want 3", cfg.Impact.MaxTransitiveDepth)
	}
	if cfg.Impact.CriticalPathFanInThreshold != 20 {
		t.Errorf("CriticalPathFanInThreshold = %d, want 20", cfg.Impact.CriticalPathFanInThreshold)
	}
	if cfg.Server.Port != 8844 {
		t.Errorf("Port = %d, want 8844", cfg.Server.Port)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Build.TimeoutMs != 60_000 {
		t.Errorf("TimeoutMs = %d, want default", cfg.Build.TimeoutMs)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depgraph.yaml")
	body := `
server:
  port: 9000
build:
  pathAliasTable:
    "@app": "src/app"
impact:
  maxTransitiveDepth: 5
cycles:
  corePathPatterns:
    - "^src/core/"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Build.PathAliasTable["@app"] != "src/app" {
		t.Errorf("alias table = %v", cfg.Build.PathAliasTable)
	}
	if cfg.Impact.MaxTransitiveDepth != 5 {
		t.Errorf("MaxTransitiveDepth = %d, want 5", cfg.Impact.MaxTransitiveDepth)
	}
	// Untouched keys keep defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEPGRAPH_PORT", "7001")
	t.Setenv("DEPGRAPH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrUnreadableConfig) {
			t.Errorf("error = %v, want ErrUnreadableConfig", err)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		if err := os.WriteFile(path, []byte("impact:\n  maxTransitiveDepth: 99\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("DEPGRAPH_LOG_LEVEL", "loud")
		if _, err := Load(""); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})
}
