package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcodex.io/hookcore/envelope"
	"xcodex.io/hookcore/gateway"
)

func writeConfigFile(t *testing.T, dir, rel, contents string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Empty(t, cfg.Hooks.Events)
}

func TestLoadSettingsJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, SettingsFile, `{
		"log_level": "debug",
		"exclusions": {"enabled": true, "secret_patterns": true, "on_match": "block"},
		"hooks": {
			"max_stdin_payload_bytes": 2048,
			"events": {
				"tool-call-finished": [
					{"command": ["audit-hook", "--json"], "timeout_seconds": 5, "matcher": "^Write$"}
				]
			}
		}
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2048, cfg.Hooks.MaxStdinPayloadBytes)

	policy := cfg.Exclusions.Policy()
	assert.True(t, policy.Enabled)
	assert.Equal(t, gateway.OnMatchBlock, policy.OnMatch)

	reg := cfg.Hooks.Registry()
	specs := reg.Specs(envelope.EventToolCallFinished)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"audit-hook", "--json"}, specs[0].Argv)
	assert.Equal(t, 5*time.Second, specs[0].Timeout)
	assert.Equal(t, "^Write$", specs[0].Matcher)
}

func TestLoadLocalSettingsOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, SettingsFile, `{"log_level":"info","exclusions":{"secret_patterns":true}}`)
	writeConfigFile(t, dir, SettingsLocalFile, `{"log_level":"debug"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	// The local file only overrides what it mentions.
	require.NotNil(t, cfg.Exclusions.SecretPatterns)
	assert.True(t, *cfg.Exclusions.SecretPatterns)
}

func TestLoadYAMLHookTable(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, HooksYAMLFile, `
hooks:
  keep_last_n_payloads: 7
  events:
    tool_call_started:
      - command: ["lint-hook"]
    session-end:
      - command: ["flush-hook"]
        timeout_seconds: 2
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Hooks.KeepLastNPayloads)

	reg := cfg.Hooks.Registry()
	assert.Len(t, reg.Specs(envelope.EventToolCallStarted), 1, "underscored key must normalize")
	assert.Len(t, reg.Specs(envelope.EventSessionEnd), 1)
}

func TestLoadEnvOverridesWin(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, SettingsFile, `{"log_level":"info"}`)
	t.Setenv("HOOKCORE_LOG_LEVEL", "error")
	t.Setenv("HOOKCORE_DISABLED", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.False(t, cfg.Enabled)
}

func TestLoadMalformedSettingsIsError(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, SettingsFile, `{"log_level":`)
	_, err := Load(dir)
	require.Error(t, err)
}

func TestNormalizeEventType(t *testing.T) {
	assert.Equal(t, "tool-call-finished", NormalizeEventType("Tool_Call_Finished"))
	assert.Equal(t, "tool-call-finished", NormalizeEventType("tool-call-finished"))
	assert.Equal(t, "session-start", NormalizeEventType("Session Start"))
}

func TestExclusionPolicyDefaults(t *testing.T) {
	policy := ExclusionConfig{}.Policy()
	assert.Equal(t, gateway.DefaultPolicy(), policy)

	off := false
	policy = ExclusionConfig{Enabled: &off}.Policy()
	assert.False(t, policy.Enabled)
}

func TestRegistrySkipsEmptyCommands(t *testing.T) {
	hc := HooksConfig{Events: map[string][]HookConfig{
		envelope.EventNotification: {{Command: nil}, {Command: []string{"real-hook"}}},
	}}
	reg := hc.Registry()
	assert.Equal(t, 1, reg.Len())
}

func TestLegacyNotifyCarriedThrough(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, SettingsFile, `{"notify":["notify-send","done"]}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"notify-send", "done"}, cfg.Notify)
}
