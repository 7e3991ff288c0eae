package gateway

import (
	"os"
	"path/filepath"
	"testing"
)

func writeIgnoreFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestSensitivePathsLoadsRules(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, ".aiexclude", "# comment\n\nsecrets/\nconfig/prod.yaml\n")

	sp := NewSensitivePaths(dir, Policy{Enabled: true, SubstringMatching: true})

	cases := []struct {
		path string
		want bool
	}{
		{"secrets/prod.env", true},
		{"secrets/nested/deep.txt", true},
		{"config/prod.yaml", true},
		{"config/prod.yaml.bak", false},
		{"config/dev.yaml", false},
		{"secretsfile.txt", false},
	}
	for _, tc := range cases {
		if got := sp.Excluded(tc.path); got != tc.want {
			t.Errorf("Excluded(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSensitivePathsBothIgnoreFiles(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, ".aiexclude", "alpha/\n")
	writeIgnoreFile(t, dir, ".xcodexignore", "beta/\n")

	sp := NewSensitivePaths(dir, Policy{Enabled: true, SubstringMatching: true})
	if !sp.Excluded("alpha/x") || !sp.Excluded("beta/y") {
		t.Error("rules from both control files should apply")
	}
}

func TestSensitivePathsEpochStartsAtOne(t *testing.T) {
	sp := NewSensitivePaths(t.TempDir(), Policy{Enabled: true, SubstringMatching: true})
	if sp.Epoch() != 1 {
		t.Errorf("fresh epoch = %d, want 1", sp.Epoch())
	}
}

func TestSensitivePathsReloadBumpsEpochOnChange(t *testing.T) {
	dir := t.TempDir()
	sp := NewSensitivePaths(dir, Policy{Enabled: true, SubstringMatching: true})

	sp.Reload() // no change, no bump
	if sp.Epoch() != 1 {
		t.Errorf("epoch after no-op reload = %d, want 1", sp.Epoch())
	}

	writeIgnoreFile(t, dir, ".aiexclude", "secrets/\n")
	sp.Reload()
	if sp.Epoch() != 2 {
		t.Errorf("epoch after rule change = %d, want 2", sp.Epoch())
	}
	if !sp.Excluded("secrets/key") {
		t.Error("new rule not applied after reload")
	}
}

func TestSensitivePathsDisabledMatchesNothing(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, ".aiexclude", "secrets/\n")

	sp := NewSensitivePaths(dir, Policy{Enabled: true, SubstringMatching: false})
	if sp.Excluded("secrets/prod.env") {
		t.Error("disabled substring matching should exclude nothing")
	}
}

func TestSensitivePathsControlFilesNeverMatch(t *testing.T) {
	dir := t.TempDir()
	writeIgnoreFile(t, dir, ".aiexclude", ".aiexclude\n.xcodexignore\n")

	sp := NewSensitivePaths(dir, Policy{Enabled: true, SubstringMatching: true})
	for _, name := range IgnoreFileNames {
		if sp.Excluded(name) {
			t.Errorf("control file %s must never match", name)
		}
	}
}
