package envelope

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTripPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{"schema_version":1,"event_id":"e-1","xcodex_event_type":"tool-call-finished","tool_name":"Write","future_field":{"nested":[1,2,3]},"another_unknown":"keep me"}`)

	p, err := Parse(raw)
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)

	assert.Equal(t, string(raw), string(out))
}

func TestParseRoundTripPreservesKeyOrder(t *testing.T) {
	// Keys deliberately out of struct order.
	raw := []byte(`{"zzz_custom":"v","tool_name":"Bash","event_id":"e-2","aaa_custom":1}`)

	p, err := Parse(raw)
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(out))
}

func TestMarshalMergesFieldMutations(t *testing.T) {
	raw := []byte(`{"event_id":"e-3","tool_name":"Bash","custom":"x"}`)
	p, err := Parse(raw)
	require.NoError(t, err)

	p.ToolName = "Write"
	out, err := json.Marshal(p)
	require.NoError(t, err)

	assert.Equal(t, "Write", mustString(t, out, "tool_name"))
	assert.Equal(t, "x", mustString(t, out, "custom"))
}

func TestMarshalDropsClearedFields(t *testing.T) {
	raw := []byte(`{"event_id":"e-6","tool_name":"Bash","status":"completed","custom":"x"}`)
	p, err := Parse(raw)
	require.NoError(t, err)

	p.Status = ""
	out, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))
	assert.NotContains(t, m, "status", "cleared field must not survive re-serialization")
	assert.Equal(t, "Bash", mustString(t, out, "tool_name"))
	assert.Equal(t, "x", mustString(t, out, "custom"))
}

func TestExtraReturnsOnlyUnknownKeys(t *testing.T) {
	raw := []byte(`{"event_id":"e-4","tool_name":"Bash","plugin_data":{"a":1},"flag":true}`)
	p, err := Parse(raw)
	require.NoError(t, err)

	extra := p.Extra()
	assert.Len(t, extra, 2)
	assert.Contains(t, extra, "plugin_data")
	assert.Contains(t, extra, "flag")
	assert.NotContains(t, extra, "tool_name")
}

func TestExtraNilForInProcessPayloads(t *testing.T) {
	p := New(EventNotification, "Notification")
	assert.Nil(t, p.Extra())
}

func TestNewFillsEnvelopeFields(t *testing.T) {
	p := New(EventToolCallFinished, "PostToolUse")
	assert.Equal(t, SchemaVersion, p.SchemaVersion)
	assert.NotEmpty(t, p.EventID)
	assert.False(t, p.Timestamp.IsZero())
	assert.Equal(t, EventToolCallFinished, p.XcodexEvent)
	assert.Equal(t, "PostToolUse", p.HookEventName)
}

func TestEncodeIsNewlineFree(t *testing.T) {
	p := New(EventAgentTurnComplete, "Stop")
	p.LastAssistantMessage = "line one\nline two"

	out, err := p.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\n")
	require.True(t, json.Valid(out))
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"event_id":`))
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func mustString(t *testing.T, doc []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc, &m))
	var s string
	require.NoError(t, json.Unmarshal(m[key], &s))
	return s
}

func TestEscapePathKey(t *testing.T) {
	raw := []byte(`{"dotted.key":"v","event_id":"e-5"}`)
	p, err := Parse(raw)
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte(`"dotted.key":"v"`)))
}
