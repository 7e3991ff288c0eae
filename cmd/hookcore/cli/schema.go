package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xcodex.io/hookcore/envelope"
)

// Exit codes for the schema entry point. Tooling keys off these, so they
// are part of the interface.
const (
	schemaExitOK            = 0
	schemaExitFailed        = 1
	schemaExitNotCompiledIn = 2
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for hook payloads",
		Long: "Print the machine-generated JSON Schema bundle for the hook " +
			"payload and the stdin indirection envelope, so hook authors can " +
			"validate inputs without reading source.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if !envelope.SchemaSupported {
				fmt.Fprintln(os.Stderr, "schema generation support was not compiled in")
				os.Exit(schemaExitNotCompiledIn)
			}
			out, err := envelope.GenerateSchema()
			if err != nil {
				fmt.Fprintf(os.Stderr, "generating schema: %v\n", err)
				os.Exit(schemaExitFailed)
			}
			fmt.Println(string(out))
			os.Exit(schemaExitOK)
		},
	}
}
