package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxStdinBytes is the largest payload handed to a hook directly on
// stdin. Larger payloads go through a payload file and the indirection
// envelope.
const DefaultMaxStdinBytes = 1 << 20

// DefaultKeepPayloadFiles is how many payload files survive a prune.
const DefaultKeepPayloadFiles = 32

const payloadFilePrefix = "hook-payload-"

// PayloadStore writes oversize payloads to files under a state directory
// and prunes old ones so the directory does not grow without bound.
type PayloadStore struct {
	dir  string
	keep int
}

// NewPayloadStore returns a store rooted at dir, keeping at most keep
// payload files after each write. Non-positive keep uses
// DefaultKeepPayloadFiles.
func NewPayloadStore(dir string, keep int) *PayloadStore {
	if keep <= 0 {
		keep = DefaultKeepPayloadFiles
	}
	return &PayloadStore{dir: dir, keep: keep}
}

// Write persists a payload document under a name derived from the event ID
// and returns the file's path. Files are owner-only: payloads may contain
// transcript content.
func (s *PayloadStore) Write(eventID string, body []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("creating payload dir: %w", err)
	}
	path := filepath.Join(s.dir, payloadFilePrefix+eventID+".json")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", fmt.Errorf("writing payload file: %w", err)
	}
	s.prune()
	return path, nil
}

// prune removes the oldest payload files beyond the keep bound. Best-effort:
// a racing removal or stat failure is not worth failing the dispatch over.
func (s *PayloadStore) prune() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	type candidate struct {
		name string
		mod  int64
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), payloadFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{e.Name(), info.ModTime().UnixNano()})
	}
	if len(files) <= s.keep {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })
	for _, f := range files[:len(files)-s.keep] {
		_ = os.Remove(filepath.Join(s.dir, f.name))
	}
}
