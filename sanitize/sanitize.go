// Package sanitize applies the sensitive-content gateway to whole hook
// payloads before they cross the process boundary.
package sanitize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"xcodex.io/hookcore/gateway"
)

// Sanitizer redacts every string leaf of an outbound payload. The gateway
// cache carries the only shared state, so one instance may serve concurrent
// sanitization calls.
type Sanitizer struct {
	gw    *gateway.Gateway
	paths *gateway.SensitivePaths
	cache *gateway.Cache
}

// New builds a sanitizer from the exclusion policy and working directory.
// Returns nil when sanitization is disabled or both redaction mechanisms
// are off: the absence of a sanitizer is deliberate and distinguishable
// from a configured one that matched nothing.
func New(policy gateway.Policy, cwd string) *Sanitizer {
	if !policy.Active() {
		return nil
	}
	return &Sanitizer{
		gw:    gateway.New(policy),
		paths: gateway.NewSensitivePaths(cwd, policy),
		cache: gateway.NewCache(),
	}
}

// Paths exposes the sensitive-path policy, e.g. to run its watcher.
func (s *Sanitizer) Paths() *gateway.SensitivePaths {
	return s.paths
}

// Text redacts a single string at the current ignore epoch.
func (s *Sanitizer) Text(text string) string {
	out, _ := s.gw.Scan(text, s.paths, s.cache, s.paths.Epoch())
	return out
}

// JSON sanitizes a raw JSON document. Only string leaves change; array
// lengths, object key sets, and key order are preserved verbatim. The
// input slice is not mutated.
func (s *Sanitizer) JSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}

	root := gjson.ParseBytes(raw)
	if root.Type == gjson.String {
		redacted := s.Text(root.String())
		if redacted == root.String() {
			return raw
		}
		if out, err := json.Marshal(redacted); err == nil {
			return out
		}
		return raw
	}

	type repl struct {
		path  string
		value string
	}
	var repls []repl

	var walk func(prefix string, v gjson.Result)
	walk = func(prefix string, v gjson.Result) {
		switch {
		case v.IsObject() || v.IsArray():
			v.ForEach(func(key, child gjson.Result) bool {
				var childPath string
				if v.IsArray() {
					childPath = joinPath(prefix, key.String())
				} else {
					childPath = joinPath(prefix, escapeKey(key.String()))
				}
				walk(childPath, child)
				return true
			})
		case v.Type == gjson.String:
			if redacted := s.Text(v.String()); redacted != v.String() {
				repls = append(repls, repl{path: prefix, value: redacted})
			}
		}
	}
	walk("", gjson.ParseBytes(raw))

	if len(repls) == 0 {
		return raw
	}

	out := append([]byte(nil), raw...)
	for _, r := range repls {
		next, err := sjson.SetBytes(out, r.path, r.value)
		if err != nil {
			continue
		}
		out = next
	}
	return out
}

// Value sanitizes a decoded structured value, producing a new value with
// the same shape. Strings pass through Text; maps and slices are walked
// member-by-member; all other scalars are returned unchanged.
func (s *Sanitizer) Value(v any) any {
	switch val := v.(type) {
	case string:
		return s.Text(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.Value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = s.Value(item)
		}
		return out
	default:
		return v
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// escapeKey escapes a literal object key for use in a gjson/sjson path.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
