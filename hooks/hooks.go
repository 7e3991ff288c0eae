// Package hooks holds the registry of external hook commands and the
// dispatcher that feeds them lifecycle payloads. Hooks are plain
// executables: they receive one sanitized JSON payload on stdin and report
// back only through their exit status.
package hooks

import (
	"regexp"
	"sort"
	"time"

	"xcodex.io/hookcore/envelope"
)

// DefaultTimeout bounds a hook invocation when its spec carries no timeout
// of its own.
const DefaultTimeout = 60 * time.Second

// Spec describes one registered hook command.
type Spec struct {
	// Argv is the command line, argv[0] being the executable.
	Argv []string
	// Timeout bounds the invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// Matcher optionally restricts a tool-call hook to tool names matching
	// this regular expression. Empty matches every tool.
	Matcher string
}

// Matches reports whether the spec applies to the given tool name. Specs
// without a matcher apply to everything; an invalid matcher expression
// applies to nothing.
func (s Spec) Matches(toolName string) bool {
	if s.Matcher == "" {
		return true
	}
	re, err := regexp.Compile(s.Matcher)
	if err != nil {
		return false
	}
	return re.MatchString(toolName)
}

// Registry holds the ordered hook lists, keyed by event type.
type Registry struct {
	specs map[string][]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string][]Spec)}
}

// Register appends a spec to the list for the given event type. Order of
// registration is the order of dispatch.
func (r *Registry) Register(eventType string, spec Spec) {
	r.specs[eventType] = append(r.specs[eventType], spec)
}

// Specs returns the ordered hook list for an event type. The returned slice
// is shared; callers must not mutate it.
func (r *Registry) Specs(eventType string) []Spec {
	return r.specs[eventType]
}

// EventTypes returns the event types with at least one registered hook,
// sorted for stable listings.
func (r *Registry) EventTypes() []string {
	types := make([]string, 0, len(r.specs))
	for t := range r.specs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Len returns the total number of registered hooks across all event types.
func (r *Registry) Len() int {
	n := 0
	for _, specs := range r.specs {
		n += len(specs)
	}
	return n
}

// hookEventNames maps event types to the hook_event_name value carried on
// the wire, for tools that key off the agent-style event name instead of
// the native type.
var hookEventNames = map[string]string{
	envelope.EventSessionStart:           "SessionStart",
	envelope.EventSessionEnd:             "SessionEnd",
	envelope.EventUserPromptSubmit:       "UserPromptSubmit",
	envelope.EventAgentTurnComplete:      "Stop",
	envelope.EventSubagentStop:           "SubagentStop",
	envelope.EventPreCompact:             "PreCompact",
	envelope.EventNotification:           "Notification",
	envelope.EventApprovalRequested:      "PermissionRequest",
	envelope.EventToolCallStarted:        "PreToolUse",
	envelope.EventToolCallFinished:       "PostToolUse",
	envelope.EventModelRequestStarted:    "ModelRequestStarted",
	envelope.EventModelResponseCompleted: "ModelResponseCompleted",
}

// HookEventName returns the wire hook_event_name for an event type, or the
// type itself when no agent-style name exists.
func HookEventName(eventType string) string {
	if name, ok := hookEventNames[eventType]; ok {
		return name
	}
	return eventType
}
