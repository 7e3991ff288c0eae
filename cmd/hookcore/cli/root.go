// Package cli implements the hookcore command tree.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// configDir overrides where configuration is looked up; empty means the
// working directory.
var configDir string

func addConfigDirFlag(fs *pflag.FlagSet) {
	fs.StringVar(&configDir, "config-dir", "",
		"directory containing .xcodex configuration (default: working directory)")
}

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookcore",
		Short: "xcodex hook boundary tooling",
		Long: "Inspect and exercise the xcodex hook boundary: the payload " +
			"schema, the configured hook table, and the dispatch path.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	addConfigDirFlag(cmd.PersistentFlags())

	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("hookcore %s (%s) %s/%s\n", Version, Commit, runtime.GOOS, runtime.GOARCH)
		},
	}
}
