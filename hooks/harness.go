package hooks

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"xcodex.io/hookcore/envelope"
)

// Exercise fabricates a synthetic payload of the given event type and runs
// it through the dispatcher's normal path, returning the same per-hook
// reports a live event would. Used by `hookcore hooks test`.
func Exercise(ctx context.Context, d *Dispatcher, eventType string) []Report {
	return d.Dispatch(ctx, syntheticPayload(eventType))
}

// syntheticPayload builds a plausible payload for an event type so hooks
// under test see a realistically shaped document.
func syntheticPayload(eventType string) *envelope.Payload {
	p := envelope.New(eventType, HookEventName(eventType))
	p.SessionID = "hook-test-" + uuid.NewString()[:8]
	p.TranscriptPath = os.DevNull
	if cwd, err := os.Getwd(); err == nil {
		p.Cwd = cwd
	}

	switch eventType {
	case envelope.EventToolCallStarted, envelope.EventToolCallFinished:
		p.ToolName = "Bash"
		p.ToolUseID = uuid.NewString()
		p.ToolInput = json.RawMessage(`{"command":"echo hook-test"}`)
		if eventType == envelope.EventToolCallFinished {
			p.ToolResponse = json.RawMessage(`{"output":"hook-test\n"}`)
			p.Status = "completed"
			ms := int64(12)
			ok := true
			p.DurationMs = &ms
			p.Success = &ok
		}
	case envelope.EventAgentTurnComplete:
		p.TurnID = uuid.NewString()
		p.InputMessages = []string{"hook-test prompt"}
		p.LastAssistantMessage = "hook-test response"
	case envelope.EventUserPromptSubmit:
		p.Prompt = "hook-test prompt"
	case envelope.EventNotification:
		p.NotificationType = "agent-turn-complete"
		p.Message = "hook-test notification"
	}
	return p
}
