package gateway

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"xcodex.io/hookcore/logging"
)

// IgnoreFileNames are the control files that declare excluded paths,
// checked in order at the policy root.
var IgnoreFileNames = []string{".aiexclude", ".xcodexignore"}

// SensitivePaths decides which paths are excluded from outbound content.
// It owns the ignore epoch: a monotonically increasing counter bumped
// whenever the underlying rules change. Cached scan results are valid only
// for the epoch they were computed under.
type SensitivePaths struct {
	root    string
	enabled bool

	epoch atomic.Uint64

	mu    sync.RWMutex
	rules []string
}

// NewSensitivePaths builds the policy rooted at cwd and loads the current
// ignore rules. Rule matching is prefix-based on /-separated relative
// paths, one rule per line; blank lines and #-comments are skipped.
func NewSensitivePaths(cwd string, policy Policy) *SensitivePaths {
	sp := &SensitivePaths{
		root:    cwd,
		enabled: policy.Enabled && policy.SubstringMatching,
	}
	sp.epoch.Store(1)
	sp.rules = sp.loadRules()
	return sp
}

// Epoch returns the current ignore epoch.
func (sp *SensitivePaths) Epoch() uint64 {
	return sp.epoch.Load()
}

// Reload re-reads the ignore files and bumps the epoch when the rules
// changed.
func (sp *SensitivePaths) Reload() {
	fresh := sp.loadRules()

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if slicesEqual(sp.rules, fresh) {
		return
	}
	sp.rules = fresh
	sp.epoch.Add(1)
}

// Watch bumps the epoch when an ignore file is created, edited, or removed.
// Blocks until ctx is done or the watcher fails.
func (sp *SensitivePaths) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(sp.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if sp.isIgnoreFile(filepath.Base(ev.Name)) {
				logging.Debug(ctx, "ignore rules changed, reloading",
					"file", ev.Name, "op", ev.Op.String())
				sp.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(ctx, "ignore file watcher error", "error", err)
		}
	}
}

// Excluded reports whether the relative path falls under an ignore rule.
// The control files themselves never match: mentioning ".aiexclude" is not
// a leak.
func (sp *SensitivePaths) Excluded(relative string) bool {
	if !sp.enabled || relative == "" {
		return false
	}
	if sp.isIgnoreFile(relative) {
		return false
	}

	sp.mu.RLock()
	defer sp.mu.RUnlock()
	for _, rule := range sp.rules {
		if rule == "" {
			continue
		}
		if strings.HasSuffix(rule, "/") {
			if strings.HasPrefix(relative, rule) {
				return true
			}
			continue
		}
		if relative == rule || strings.HasPrefix(relative, rule+"/") {
			return true
		}
	}
	return false
}

func (sp *SensitivePaths) isIgnoreFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range IgnoreFileNames {
		if base == name {
			return true
		}
	}
	return false
}

func (sp *SensitivePaths) loadRules() []string {
	if !sp.enabled {
		return nil
	}
	var rules []string
	for _, name := range IgnoreFileNames {
		f, err := os.Open(filepath.Join(sp.root, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rules = append(rules, line)
		}
		f.Close()
	}
	return rules
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
