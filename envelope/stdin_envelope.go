package envelope

import "time"

// StdinEnvelope is the small document written to a hook's stdin when the
// full payload exceeds the configured stdin byte bound. It identifies the
// event and points at the file holding the full payload.
type StdinEnvelope struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	XcodexEvent   string    `json:"xcodex_event_type"`
	PayloadPath   string    `json:"payload_path"`
}

// NewStdinEnvelope builds the indirection envelope for a payload whose full
// document was written to payloadPath.
func NewStdinEnvelope(p *Payload, payloadPath string) StdinEnvelope {
	return StdinEnvelope{
		SchemaVersion: p.SchemaVersion,
		EventID:       p.EventID,
		Timestamp:     p.Timestamp,
		XcodexEvent:   p.XcodexEvent,
		PayloadPath:   payloadPath,
	}
}
