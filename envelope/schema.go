//go:build !noschema

package envelope

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaSupported reports whether JSON Schema generation was compiled in.
// Builds tagged `noschema` drop the generator and its dependency.
const SchemaSupported = true

// SchemaBundle holds generated schemas for the two documents a hook can
// receive on stdin: the full payload and the payload-path indirection
// envelope. Third parties validate hook inputs against these without
// coupling to this runtime's source.
type SchemaBundle struct {
	HookPayload   *jsonschema.Schema `json:"hook_payload"`
	StdinEnvelope *jsonschema.Schema `json:"stdin_envelope"`
}

// GenerateSchema produces the schema bundle as indented JSON.
func GenerateSchema() ([]byte, error) {
	opts := &jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeOf(time.Time{}):       {Type: "string", Format: "date-time"},
			reflect.TypeOf(json.RawMessage{}): {},
		},
	}
	payloadSchema, err := jsonschema.For[Payload](opts)
	if err != nil {
		return nil, err
	}
	envSchema, err := jsonschema.For[StdinEnvelope](opts)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(SchemaBundle{
		HookPayload:   payloadSchema,
		StdinEnvelope: envSchema,
	}, "", "  ")
}
