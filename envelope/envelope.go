// Package envelope defines the versioned JSON payload exchanged with external
// hook processes, and the ingestion path that hook-side tooling uses to read
// it back.
//
// The wire shape is a single newline-free JSON object. A small set of fields
// is fixed for every event; the rest depend on the event's
// xcodex_event_type discriminator. Fields this schema version does not know
// about are preserved verbatim: the raw document is kept as the source of
// truth and re-serialization merges known-field updates back into it, so
// unknown keys survive a parse/re-serialize cycle byte-for-byte.
package envelope

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

// SchemaVersion is the current payload schema version. It only ever
// increases across released versions.
const SchemaVersion = 1

// Event type discriminators carried in xcodex_event_type.
const (
	EventAgentTurnComplete      = "agent-turn-complete"
	EventApprovalRequested      = "approval-requested"
	EventSessionStart           = "session-start"
	EventSessionEnd             = "session-end"
	EventUserPromptSubmit       = "user-prompt-submit"
	EventPreCompact             = "pre-compact"
	EventNotification           = "notification"
	EventSubagentStop           = "subagent-stop"
	EventModelRequestStarted    = "model-request-started"
	EventModelResponseCompleted = "model-response-completed"
	EventToolCallStarted        = "tool-call-started"
	EventToolCallFinished       = "tool-call-finished"
)

// Payload is the typed view of a hook payload. Zero-valued optional fields
// are omitted on the wire.
type Payload struct {
	SchemaVersion  int       `json:"schema_version"`
	EventID        string    `json:"event_id"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"`
	TranscriptPath string    `json:"transcript_path"`
	PermissionMode string    `json:"permission_mode"`
	HookEventName  string    `json:"hook_event_name"`
	XcodexEvent    string    `json:"xcodex_event_type"`
	Cwd            string    `json:"cwd"`
	TurnID         string    `json:"turn_id,omitempty"`

	// Tool call events.
	ToolName      string          `json:"tool_name,omitempty"`
	ToolUseID     string          `json:"tool_use_id,omitempty"`
	ToolInput     json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse  json.RawMessage `json:"tool_response,omitempty"`
	Status        string          `json:"status,omitempty"`
	DurationMs    *int64          `json:"duration_ms,omitempty"`
	Success       *bool           `json:"success,omitempty"`
	OutputBytes   *int            `json:"output_bytes,omitempty"`
	OutputPreview string          `json:"output_preview,omitempty"`

	// Turn / prompt events.
	InputMessages        []string `json:"input_messages,omitempty"`
	LastAssistantMessage string   `json:"last_assistant_message,omitempty"`
	Prompt               string   `json:"prompt,omitempty"`
	Trigger              string   `json:"trigger,omitempty"`
	SessionSource        string   `json:"session_source,omitempty"`
	Subagent             string   `json:"subagent,omitempty"`

	// Notification events.
	NotificationType string `json:"notification_type,omitempty"`
	Message          string `json:"message,omitempty"`
	Title            string `json:"title,omitempty"`

	// Approval events.
	Kind       string   `json:"kind,omitempty"`
	CallID     string   `json:"call_id,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Command    []string `json:"command,omitempty"`
	Paths      []string `json:"paths,omitempty"`
	GrantRoot  string   `json:"grant_root,omitempty"`
	ServerName string   `json:"server_name,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`

	// Model request events.
	ModelRequestID string `json:"model_request_id,omitempty"`
	Attempt        *int   `json:"attempt,omitempty"`
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ResponseID     string `json:"response_id,omitempty"`

	// raw holds the original document when the payload was parsed from the
	// wire. nil for payloads constructed in-process.
	raw []byte
	// pristine is the typed serialization taken at parse time. Re-serializing
	// merges only fields that changed since, so absent-and-zero fields never
	// leak into the round-tripped document.
	pristine []byte
}

// knownKeys are the top-level keys owned by the typed schema. Everything
// else on a parsed payload is an extension field.
var knownKeys = map[string]bool{
	"schema_version": true, "event_id": true, "timestamp": true,
	"session_id": true, "transcript_path": true, "permission_mode": true,
	"hook_event_name": true, "xcodex_event_type": true, "cwd": true,
	"turn_id": true, "tool_name": true, "tool_use_id": true,
	"tool_input": true, "tool_response": true, "status": true,
	"duration_ms": true, "success": true, "output_bytes": true,
	"output_preview": true, "input_messages": true,
	"last_assistant_message": true, "prompt": true, "trigger": true,
	"session_source": true, "subagent": true, "notification_type": true,
	"message": true, "title": true, "kind": true, "call_id": true,
	"reason": true, "command": true, "paths": true, "grant_root": true,
	"server_name": true, "request_id": true, "model_request_id": true,
	"attempt": true, "model": true, "provider": true, "response_id": true,
}

// New returns a payload skeleton for the given event type with a fresh
// event ID and timestamp.
func New(eventType, hookEventName string) *Payload {
	return &Payload{
		SchemaVersion:  SchemaVersion,
		EventID:        uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		PermissionMode: "default",
		HookEventName:  hookEventName,
		XcodexEvent:    eventType,
	}
}

// Parse decodes a raw JSON document into a Payload, retaining the document
// for round-trip fidelity.
func Parse(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ParseError{Err: err}
	}
	p.raw = append([]byte(nil), raw...)

	type plain Payload
	pristine, err := json.Marshal((*plain)(&p))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	p.pristine = pristine
	return &p, nil
}

// Raw returns the original document the payload was parsed from, or nil for
// payloads constructed in-process.
func (p *Payload) Raw() []byte {
	return p.raw
}

// Extra returns the extension fields: every top-level key of the parsed
// document that the current schema does not own. Values are raw JSON.
func (p *Payload) Extra() map[string]json.RawMessage {
	if p.raw == nil {
		return nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(p.raw, &all); err != nil {
		return nil
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range all {
		if !knownKeys[k] {
			extra[k] = v
		}
	}
	return extra
}

// MarshalJSON serializes the payload. Parsed payloads re-emit their original
// document with any known-field updates merged in, preserving unknown keys
// and key order. In-process payloads marshal the typed struct directly.
func (p *Payload) MarshalJSON() ([]byte, error) {
	type plain Payload // avoid recursing into this method
	typed, err := json.Marshal((*plain)(p))
	if err != nil {
		return nil, err
	}
	if p.raw == nil {
		return typed, nil
	}

	var fields, pristine map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(p.pristine, &pristine); err != nil {
		return nil, err
	}

	out := append([]byte(nil), p.raw...)
	for key, value := range fields {
		if prev, ok := pristine[key]; ok && bytes.Equal(prev, value) {
			continue
		}
		out, err = sjson.SetRawBytes(out, escapePathKey(key), value)
		if err != nil {
			return nil, err
		}
	}
	// A field cleared to its zero value since parse drops out of the typed
	// serialization entirely; remove its stale copy from the document.
	for key := range pristine {
		if _, ok := fields[key]; ok {
			continue
		}
		out, err = sjson.DeleteBytes(out, escapePathKey(key))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Encode renders the payload as a single newline-free JSON line.
func (p *Payload) Encode() ([]byte, error) {
	out, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(out, "\n"), nil
}

// escapePathKey escapes a literal object key for use as a gjson/sjson path.
func escapePathKey(key string) string {
	var b bytes.Buffer
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
