// Package gatewayconfig loads the gateway's runtime configuration from an
// optional JSON file with environment-variable overrides.
package gatewayconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/consolehq/agui-gateway/internal/config"
)

type Config struct {
	Addr            string `json:"addr"`
	UpstreamURL     string `json:"upstreamUrl"`
	AppName         string `json:"appName"`
	RunLogPath      string `json:"runLogPath"`
	DebugBufferSize int    `json:"debugBufferSize"`
	OTelEnabled     bool   `json:"otelEnabled"`
}

func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8910",
		RunLogPath:      "./.agui/runs.db",
		DebugBufferSize: 256,
	}
}

// Load reads the JSON config file at path. An empty path yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", absPath, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %q as JSON: %w", absPath, err)
	}
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.UpstreamURL = strings.TrimSpace(cfg.UpstreamURL)
	cfg.AppName = strings.TrimSpace(cfg.AppName)
	cfg.RunLogPath = strings.TrimSpace(cfg.RunLogPath)
	return cfg, nil
}

// ApplyEnv overlays environment variables onto a loaded config. Environment
// wins over file values.
func ApplyEnv(cfg Config) Config {
	cfg.Addr = config.GetenvDefault("AGUI_ADDR", cfg.Addr)
	cfg.UpstreamURL = config.GetenvDefault("AGUI_UPSTREAM_URL", cfg.UpstreamURL)
	cfg.AppName = config.GetenvDefault("AGUI_APP_NAME", cfg.AppName)
	cfg.RunLogPath = config.GetenvDefault("AGUI_RUN_LOG", cfg.RunLogPath)
	cfg.DebugBufferSize = config.ParseIntEnv("AGUI_DEBUG_BUFFER", cfg.DebugBufferSize)
	cfg.OTelEnabled = config.ParseBoolEnv("AGUI_OTEL", cfg.OTelEnabled)
	return cfg
}
