package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envOverrides are the environment knobs applied last; they win over every
// file source.
type envOverrides struct {
	Disabled bool   `env:"HOOKCORE_DISABLED"`
	LogLevel string `env:"HOOKCORE_LOG_LEVEL"`
	StateDir string `env:"HOOKCORE_STATE_DIR"`
}

// Default returns the configuration used when no file source exists.
func Default() *Config {
	return &Config{
		Enabled:  true,
		LogLevel: "info",
		StateDir: DefaultStateDir,
	}
}

// Load reads the configuration rooted at dir. Missing files are fine; a
// present-but-malformed file is an error. Precedence, lowest to highest:
// defaults, settings.json, settings.local.json, hooks.yaml, environment.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if err := mergeJSONFile(cfg, filepath.Join(dir, SettingsFile)); err != nil {
		return nil, err
	}
	if err := mergeJSONFile(cfg, filepath.Join(dir, SettingsLocalFile)); err != nil {
		return nil, err
	}
	if err := mergeYAMLFile(cfg, filepath.Join(dir, HooksYAMLFile)); err != nil {
		return nil, err
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}
	if ov.Disabled {
		cfg.Enabled = false
	}
	if ov.LogLevel != "" {
		cfg.LogLevel = ov.LogLevel
	}
	if ov.StateDir != "" {
		cfg.StateDir = ov.StateDir
	}

	cfg.normalize()
	return cfg, nil
}

// mergeJSONFile unmarshals the file onto cfg so only present keys override.
func mergeJSONFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// mergeYAMLFile applies the optional YAML hook table. It owns the hook
// events it names; other config keys merge like the JSON sources.
func mergeYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if overlay.LogLevel != "" {
		cfg.LogLevel = overlay.LogLevel
	}
	if overlay.StateDir != "" {
		cfg.StateDir = overlay.StateDir
	}
	mergeExclusions(&cfg.Exclusions, overlay.Exclusions)
	if overlay.Hooks.MaxStdinPayloadBytes > 0 {
		cfg.Hooks.MaxStdinPayloadBytes = overlay.Hooks.MaxStdinPayloadBytes
	}
	if overlay.Hooks.KeepLastNPayloads > 0 {
		cfg.Hooks.KeepLastNPayloads = overlay.Hooks.KeepLastNPayloads
	}
	if len(overlay.Notify) > 0 {
		cfg.Notify = overlay.Notify
	}
	for key, entries := range overlay.Hooks.Events {
		if cfg.Hooks.Events == nil {
			cfg.Hooks.Events = make(map[string][]HookConfig)
		}
		cfg.Hooks.Events[key] = entries
	}
	return nil
}

func mergeExclusions(dst *ExclusionConfig, src ExclusionConfig) {
	if src.Enabled != nil {
		dst.Enabled = src.Enabled
	}
	if src.SecretPatterns != nil {
		dst.SecretPatterns = src.SecretPatterns
	}
	if src.SubstringMatching != nil {
		dst.SubstringMatching = src.SubstringMatching
	}
	if src.BuiltinPatterns != nil {
		dst.BuiltinPatterns = src.BuiltinPatterns
	}
	if len(src.Patterns) > 0 {
		dst.Patterns = src.Patterns
	}
	if len(src.Allowlist) > 0 {
		dst.Allowlist = src.Allowlist
	}
	if src.OnMatch != "" {
		dst.OnMatch = src.OnMatch
	}
}

// normalize folds hook-table keys onto native event-type spellings,
// concatenating lists that normalize to the same type.
func (c *Config) normalize() {
	if len(c.Hooks.Events) == 0 {
		return
	}
	normalized := make(map[string][]HookConfig, len(c.Hooks.Events))
	for key, entries := range c.Hooks.Events {
		t := NormalizeEventType(key)
		normalized[t] = append(normalized[t], entries...)
	}
	c.Hooks.Events = normalized
}
