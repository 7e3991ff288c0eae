// Package gateway scans text for secret patterns and mentions of
// policy-excluded file paths, redacting what it finds before the content
// leaves the process. Results are cached per content fingerprint and
// invalidated by the sensitive-path policy's ignore epoch.
package gateway

// OnMatch selects what the gateway does with text that matched.
type OnMatch string

const (
	// OnMatchWarn records matches without altering the text.
	OnMatchWarn OnMatch = "warn"
	// OnMatchRedact replaces matched spans with placeholders.
	OnMatchRedact OnMatch = "redact"
	// OnMatchBlock replaces the entire text with a block marker.
	OnMatchBlock OnMatch = "block"
)

// Placeholders written into redacted output.
const (
	RedactedPlaceholder    = "[REDACTED]"
	IgnoredPathPlaceholder = "[IGNORED-PATH: redacted]"
	BlockedPlaceholder     = "[BLOCKED]"
)

// Policy is the exclusion/redaction configuration. What counts as a secret
// is supplied here, not decided by the gateway.
type Policy struct {
	// Enabled gates the whole mechanism. When false, no scanning happens
	// and no sanitizer is constructed.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// SecretPatterns enables pattern-based secret matching.
	SecretPatterns bool `json:"secret_patterns" yaml:"secret_patterns"`
	// SubstringMatching enables redaction of excluded-path mentions.
	SubstringMatching bool `json:"substring_matching" yaml:"substring_matching"`

	// BuiltinPatterns adds the gitleaks default ruleset to the configured
	// patterns.
	BuiltinPatterns bool `json:"builtin_patterns" yaml:"builtin_patterns"`
	// Patterns are additional regex rules treated as secrets.
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	// Allowlist regexes suppress matches from either mechanism.
	Allowlist []string `json:"allowlist,omitempty" yaml:"allowlist,omitempty"`

	// OnMatch defaults to redact.
	OnMatch OnMatch `json:"on_match,omitempty" yaml:"on_match,omitempty"`
}

// DefaultPolicy returns the policy used when no exclusion configuration is
// supplied: fully enabled, redacting, with builtin patterns.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:           true,
		SecretPatterns:    true,
		SubstringMatching: true,
		BuiltinPatterns:   true,
		OnMatch:           OnMatchRedact,
	}
}

// Active reports whether the policy results in any scanning at all.
func (p Policy) Active() bool {
	return p.Enabled && (p.SecretPatterns || p.SubstringMatching)
}

func (p Policy) onMatch() OnMatch {
	if p.OnMatch == "" {
		return OnMatchRedact
	}
	return p.OnMatch
}
