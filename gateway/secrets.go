package gateway

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"

	"xcodex.io/hookcore/logging"
)

// builtinPatterns catch common credential shapes the gitleaks ruleset can
// miss: labeled assignments match even when the value itself carries no
// recognizable structure. Gated behind Policy.BuiltinPatterns with the rest
// of the builtin layer.
var builtinPatterns = []*regexp.Regexp{
	// AWS access key id.
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	// GitHub classic token.
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),
	// Private keys (PEM blocks).
	regexp.MustCompile(`-----BEGIN[ A-Z0-9_-]*PRIVATE KEY-----`),
	// Generic key-value labels.
	regexp.MustCompile(`(?i)\b(password|secret|api[_-]?key)\b\s*[:=]\s*\S+`),
	// Token label, even for short values.
	regexp.MustCompile(`(?i)\btoken\b\s*[:=]\s*["']?[A-Za-z0-9._-]+["']?`),
	// High-confidence token labels.
	regexp.MustCompile(`(?i)\b(access[_-]?token|refresh[_-]?token|id[_-]?token|bearer(?:[_-]?token)?|authorization)\b\s*[:=]\s*["']?[A-Za-z0-9._-]+["']?`),
}

// entropyCandidateRe matches token-shaped sequences long enough to carry
// measurable entropy.
var entropyCandidateRe = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a candidate to be
// treated as a secret. High enough to pass over common words and
// identifiers; typical API keys and tokens sit well above 5.0.
const entropyThreshold = 4.5

// shannonEntropy returns the bits-per-byte entropy of s.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	entropy := 0.0
	length := float64(len(s))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

// getDetector lazily builds the gitleaks default-config detector. Returns
// nil if the ruleset fails to load; secret matching then falls back to the
// regex patterns alone.
func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			logging.Warn(context.Background(), "gitleaks detector unavailable", "error", err)
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// secretRegions collects spans matched by the configured patterns and,
// when the builtin layer is enabled, the builtin patterns, entropy
// analysis, and the gitleaks default ruleset. All offsets are into the
// original text.
func (g *Gateway) secretRegions(text string) []region {
	var regions []region

	for _, re := range g.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			regions = append(regions, region{loc[0], loc[1], reasonSecret})
		}
	}
	if g.policy.BuiltinPatterns {
		for _, re := range builtinPatterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				regions = append(regions, region{loc[0], loc[1], reasonSecret})
			}
		}
		for _, loc := range entropyCandidateRe.FindAllStringIndex(text, -1) {
			if shannonEntropy(text[loc[0]:loc[1]]) > entropyThreshold {
				regions = append(regions, region{loc[0], loc[1], reasonSecret})
			}
		}
		if d := getDetector(); d != nil {
			for _, finding := range d.DetectString(text) {
				if finding.Secret == "" {
					continue
				}
				from := 0
				for {
					idx := strings.Index(text[from:], finding.Secret)
					if idx < 0 {
						break
					}
					start := from + idx
					regions = append(regions, region{start, start + len(finding.Secret), reasonSecret})
					from = start + len(finding.Secret)
				}
			}
		}
	}

	return regions
}

func compilePatterns(patterns []string, label string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logging.Warn(context.Background(), "secret pattern ignored (invalid regex)",
				"list", label, "pattern", pattern, "error", err)
			continue
		}
		out = append(out, re)
	}
	return out
}
