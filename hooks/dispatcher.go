package hooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"xcodex.io/hookcore/envelope"
	"xcodex.io/hookcore/logging"
	"xcodex.io/hookcore/sanitize"
)

// Report is the per-hook outcome of one dispatch. Reports are returned in
// registration order and always attributable to their spec.
type Report struct {
	Spec     Spec
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	// Err is set on spawn or harness failures. Non-zero exits are not
	// errors here.
	Err error
}

// OK reports whether the hook ran to completion and exited zero.
func (r Report) OK() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// Dispatcher feeds lifecycle payloads to registered hooks. A single
// dispatcher is shared across a session; Dispatch may be called from
// concurrent tasks.
type Dispatcher struct {
	registry  *Registry
	runner    Runner
	sanitizer *sanitize.Sanitizer // nil means sanitization is off
	store     *PayloadStore

	// MaxStdinBytes caps the payload handed to a hook on stdin before the
	// store indirection kicks in. Zero uses DefaultMaxStdinBytes.
	MaxStdinBytes int
}

// NewDispatcher wires a dispatcher. sanitizer may be nil (sanitization
// disabled); store may be nil, which disables the oversize indirection and
// always streams the full payload.
func NewDispatcher(registry *Registry, runner Runner, sanitizer *sanitize.Sanitizer, store *PayloadStore) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		runner:    runner,
		sanitizer: sanitizer,
		store:     store,
	}
}

// Dispatch runs every hook registered for the payload's event type, in
// registration order, and returns their reports. A hook's failure is
// recorded in its report and never aborts the remaining hooks. An event
// type with no hooks returns nil without serializing anything.
func (d *Dispatcher) Dispatch(ctx context.Context, p *envelope.Payload) []Report {
	specs := d.registry.Specs(p.XcodexEvent)
	if len(specs) == 0 {
		return nil
	}

	stdin, err := d.prepareStdin(ctx, p)
	if err != nil {
		logging.Error(ctx, "preparing hook payload",
			"event_type", p.XcodexEvent, "error", err)
		reports := make([]Report, 0, len(specs))
		for _, spec := range specs {
			if !spec.Matches(p.ToolName) {
				continue
			}
			reports = append(reports, Report{Spec: spec, ExitCode: -1, Err: err})
		}
		return reports
	}

	reports := make([]Report, 0, len(specs))
	for _, spec := range specs {
		if !spec.Matches(p.ToolName) {
			continue
		}
		hctx := logging.WithHook(ctx, uuid.NewString())
		start := time.Now()
		res, runErr := d.runner.Run(hctx, spec, stdin)
		report := Report{
			Spec:     spec,
			ExitCode: res.ExitCode,
			Stdout:   string(res.Stdout),
			Stderr:   string(res.Stderr),
			Duration: time.Since(start),
			TimedOut: res.TimedOut,
			Err:      runErr,
		}
		reports = append(reports, report)

		switch {
		case runErr != nil:
			logging.Warn(hctx, "hook failed to run",
				"argv", spec.Argv, "error", runErr)
		case report.TimedOut:
			logging.Warn(hctx, "hook timed out",
				"argv", spec.Argv, "duration", report.Duration)
		case res.ExitCode != 0:
			logging.Warn(hctx, "hook exited non-zero",
				"argv", spec.Argv, "exit_code", res.ExitCode)
		default:
			logging.Debug(hctx, "hook completed",
				"argv", spec.Argv, "duration", report.Duration)
		}
	}
	return reports
}

// prepareStdin serializes and sanitizes the payload, then decides between
// direct stdin delivery and the payload-file indirection.
func (d *Dispatcher) prepareStdin(ctx context.Context, p *envelope.Payload) ([]byte, error) {
	body, err := p.Encode()
	if err != nil {
		return nil, err
	}
	if d.sanitizer != nil {
		body = d.sanitizer.JSON(body)
	}

	limit := d.MaxStdinBytes
	if limit <= 0 {
		limit = DefaultMaxStdinBytes
	}
	if d.store == nil || len(body) <= limit {
		return body, nil
	}

	path, err := d.store.Write(p.EventID, body)
	if err != nil {
		return nil, err
	}
	logging.Debug(ctx, "payload exceeds stdin bound, using payload file",
		"bytes", len(body), "path", path)
	return json.Marshal(envelope.NewStdinEnvelope(p, path))
}
