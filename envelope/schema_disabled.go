//go:build noschema

package envelope

import "errors"

// SchemaSupported reports whether JSON Schema generation was compiled in.
const SchemaSupported = false

// GenerateSchema always fails in noschema builds.
func GenerateSchema() ([]byte, error) {
	return nil, errors.New("schema generation not compiled in")
}
