// Package config loads the hookcore configuration surface: the exclusion
// policy feeding the content gateway, and the hook command table feeding
// the registry. Sources are a JSON settings file with an optional local
// override, an optional YAML hook table, and environment variables, applied
// in that order.
package config

import (
	"time"

	"xcodex.io/hookcore/envelope"
	"xcodex.io/hookcore/gateway"
	"xcodex.io/hookcore/hooks"
)

const (
	// SettingsFile is the project-relative settings path.
	SettingsFile = ".xcodex/settings.json"
	// SettingsLocalFile overrides SettingsFile and is not meant to be
	// committed.
	SettingsLocalFile = ".xcodex/settings.local.json"
	// HooksYAMLFile is the optional YAML hook table.
	HooksYAMLFile = ".xcodex/hooks.yaml"
	// DefaultStateDir holds logs and payload files, relative to cwd.
	DefaultStateDir = ".xcodex/state"
)

// Config is the merged configuration.
type Config struct {
	// Enabled gates the whole subsystem. Defaults to true.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level"`
	// StateDir holds logs and payload files.
	StateDir string `json:"state_dir,omitempty" yaml:"state_dir"`

	Exclusions ExclusionConfig `json:"exclusions" yaml:"exclusions"`
	Hooks      HooksConfig     `json:"hooks" yaml:"hooks"`

	// Notify is the superseded single notify command list. Configuring it
	// only triggers a one-time deprecation notice.
	Notify []string `json:"notify,omitempty" yaml:"notify"`
}

// ExclusionConfig configures the sensitive-content gateway. Pointer fields
// distinguish "unset" from "explicitly false" so later sources only
// override what they mention.
type ExclusionConfig struct {
	Enabled           *bool    `json:"enabled,omitempty" yaml:"enabled"`
	SecretPatterns    *bool    `json:"secret_patterns,omitempty" yaml:"secret_patterns"`
	SubstringMatching *bool    `json:"substring_matching,omitempty" yaml:"substring_matching"`
	BuiltinPatterns   *bool    `json:"builtin_patterns,omitempty" yaml:"builtin_patterns"`
	Patterns          []string `json:"patterns,omitempty" yaml:"patterns"`
	Allowlist         []string `json:"allowlist,omitempty" yaml:"allowlist"`
	OnMatch           string   `json:"on_match,omitempty" yaml:"on_match"`
}

// Policy converts the config into the gateway's policy, filling unset
// fields from the gateway defaults.
func (c ExclusionConfig) Policy() gateway.Policy {
	p := gateway.DefaultPolicy()
	if c.Enabled != nil {
		p.Enabled = *c.Enabled
	}
	if c.SecretPatterns != nil {
		p.SecretPatterns = *c.SecretPatterns
	}
	if c.SubstringMatching != nil {
		p.SubstringMatching = *c.SubstringMatching
	}
	if c.BuiltinPatterns != nil {
		p.BuiltinPatterns = *c.BuiltinPatterns
	}
	if len(c.Patterns) > 0 {
		p.Patterns = append([]string(nil), c.Patterns...)
	}
	if len(c.Allowlist) > 0 {
		p.Allowlist = append([]string(nil), c.Allowlist...)
	}
	if c.OnMatch != "" {
		p.OnMatch = gateway.OnMatch(c.OnMatch)
	}
	return p
}

// HookConfig is one hook command entry in the table.
type HookConfig struct {
	Command        []string `json:"command" yaml:"command"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds"`
	// Matcher restricts tool-call hooks to matching tool names.
	Matcher string `json:"matcher,omitempty" yaml:"matcher"`
}

// HooksConfig is the ordered-by-event-kind hook table plus dispatch knobs.
type HooksConfig struct {
	// Events maps event type to its ordered hook list. Keys accept both
	// dashed and underscored spellings.
	Events map[string][]HookConfig `json:"events,omitempty" yaml:"events"`
	// MaxStdinPayloadBytes caps direct-stdin payload size before the
	// payload-file indirection kicks in. Zero uses the dispatcher default.
	MaxStdinPayloadBytes int `json:"max_stdin_payload_bytes,omitempty" yaml:"max_stdin_payload_bytes"`
	// KeepLastNPayloads bounds retained payload files.
	KeepLastNPayloads int `json:"keep_last_n_payloads,omitempty" yaml:"keep_last_n_payloads"`
}

// Registry builds the hook registry from the table, preserving per-event
// order. Unknown event-type keys register under their normalized spelling;
// the dispatcher simply never fires them.
func (c HooksConfig) Registry() *hooks.Registry {
	reg := hooks.NewRegistry()
	for key, entries := range c.Events {
		eventType := NormalizeEventType(key)
		for _, entry := range entries {
			if len(entry.Command) == 0 {
				continue
			}
			reg.Register(eventType, hooks.Spec{
				Argv:    append([]string(nil), entry.Command...),
				Timeout: time.Duration(entry.TimeoutSeconds) * time.Second,
				Matcher: entry.Matcher,
			})
		}
	}
	return reg
}

// NormalizeEventType folds underscores and case so config keys like
// "Tool_Call_Finished" land on the native dashed event type.
func NormalizeEventType(key string) string {
	b := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		case c == '_' || c == ' ':
			b = append(b, '-')
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

// KnownEventTypes lists the event types hooks can register for, in
// lifecycle order, for listings and validation messages.
func KnownEventTypes() []string {
	return []string{
		envelope.EventSessionStart,
		envelope.EventUserPromptSubmit,
		envelope.EventModelRequestStarted,
		envelope.EventModelResponseCompleted,
		envelope.EventToolCallStarted,
		envelope.EventToolCallFinished,
		envelope.EventApprovalRequested,
		envelope.EventNotification,
		envelope.EventSubagentStop,
		envelope.EventAgentTurnComplete,
		envelope.EventPreCompact,
		envelope.EventSessionEnd,
	}
}
