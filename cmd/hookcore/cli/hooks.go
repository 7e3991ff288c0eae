package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xcodex.io/hookcore/config"
	"xcodex.io/hookcore/envelope"
	"xcodex.io/hookcore/hooks"
	"xcodex.io/hookcore/logging"
	"xcodex.io/hookcore/sanitize"
)

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Inspect and exercise configured hooks",
	}
	cmd.AddCommand(newHooksListCmd())
	cmd.AddCommand(newHooksTestCmd())
	return cmd
}

func newHooksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured hooks by event type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg := cfg.Hooks.Registry()
			if reg.Len() == 0 {
				fmt.Println("no hooks configured")
				return nil
			}
			for _, eventType := range reg.EventTypes() {
				fmt.Printf("%s:\n", eventType)
				for i, spec := range reg.Specs(eventType) {
					line := fmt.Sprintf("  %d. %s", i+1, strings.Join(spec.Argv, " "))
					if spec.Matcher != "" {
						line += fmt.Sprintf("  (matcher: %s)", spec.Matcher)
					}
					if spec.Timeout > 0 {
						line += fmt.Sprintf("  (timeout: %s)", spec.Timeout)
					}
					fmt.Println(line)
				}
			}
			if len(cfg.Notify) > 0 {
				fmt.Printf("\nwarning: legacy `notify` is configured and deprecated: %s\n",
					strings.Join(cfg.Notify, " "))
			}
			return nil
		},
	}
}

func newHooksTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [event-type]",
		Short: "Dispatch a fabricated event through configured hooks",
		Long: "Build a synthetic payload of the given event type (default " +
			envelope.EventToolCallFinished + "), run it through the normal " +
			"dispatch path against the configured hooks, and print each " +
			"hook's report.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := envelope.EventToolCallFinished
			if len(args) == 1 {
				eventType = config.NormalizeEventType(args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg := cfg.Hooks.Registry()
			if len(reg.Specs(eventType)) == 0 {
				fmt.Printf("no hooks configured for %s (known types: %s)\n",
					eventType, strings.Join(config.KnownEventTypes(), ", "))
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := logging.Init(cfg.StateDir, "hook-test"); err == nil {
				defer logging.Close()
			}
			sanitizer := sanitize.New(cfg.Exclusions.Policy(), cwd)
			store := hooks.NewPayloadStore(
				filepath.Join(cfg.StateDir, "payloads"), cfg.Hooks.KeepLastNPayloads)
			dispatcher := hooks.NewDispatcher(reg, hooks.NewExecRunner(0), sanitizer, store)
			dispatcher.MaxStdinBytes = cfg.Hooks.MaxStdinPayloadBytes

			reports := hooks.Exercise(cmd.Context(), dispatcher, eventType)
			for i, r := range reports {
				status := "ok"
				switch {
				case r.Err != nil:
					status = fmt.Sprintf("error: %v", r.Err)
				case r.TimedOut:
					status = "timed out"
				case r.ExitCode != 0:
					status = fmt.Sprintf("exit %d", r.ExitCode)
				}
				fmt.Printf("%d. %s: %s (%s)\n", i+1,
					strings.Join(r.Spec.Argv, " "), status, r.Duration.Round(time.Millisecond))
				if out := strings.TrimSpace(r.Stdout); out != "" {
					fmt.Printf("   stdout: %s\n", out)
				}
				if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
					fmt.Printf("   stderr: %s\n", errOut)
				}
			}
			return nil
		},
	}
}

// loadConfig loads configuration rooted at --config-dir, defaulting to the
// working directory.
func loadConfig() (*config.Config, error) {
	dir := configDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = cwd
	}
	return config.Load(dir)
}
