package gateway

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

// Reason classifies why a span was flagged.
type Reason string

const (
	reasonSecret Reason = "secret-pattern"
	reasonPath   Reason = "ignored-path"

	// ReasonSecretPattern marks a span matched by a secret rule.
	ReasonSecretPattern = reasonSecret
	// ReasonIgnoredPath marks a mention of a policy-excluded path.
	ReasonIgnoredPath = reasonPath
)

// Match records one flagged span of the original text.
type Match struct {
	Reason Reason
	Value  string
}

// Report summarizes a scan: whether redaction or blocking was applied, and
// the match facts behind it.
type Report struct {
	Redacted bool
	Blocked  bool
	Matches  []Match
}

// region is a half-open byte range of the original text.
type region struct {
	start, end int
	reason     Reason
}

// Gateway applies a redaction policy to text. It is immutable after
// construction and safe to share across goroutines; the Cache carries the
// only mutable state.
type Gateway struct {
	policy    Policy
	patterns  []*regexp.Regexp
	allowlist []*regexp.Regexp

	// computes counts fresh (uncached) scans, observable in tests.
	computes atomic.Int64
}

// New compiles the policy's patterns into a gateway. Invalid regexes are
// logged and skipped rather than failing construction.
func New(policy Policy) *Gateway {
	return &Gateway{
		policy:    policy,
		patterns:  compilePatterns(policy.Patterns, "patterns"),
		allowlist: compilePatterns(policy.Allowlist, "allowlist"),
	}
}

// Computes returns how many scans were computed fresh rather than served
// from cache.
func (g *Gateway) Computes() int64 {
	return g.computes.Load()
}

// Scan redacts secrets and excluded-path mentions from text. Results are
// deterministic for a given (text, epoch) pair and cached under the
// content's fingerprint; a cached result is valid only for the epoch it was
// computed under. The scan itself performs no I/O.
func (g *Gateway) Scan(text string, paths *SensitivePaths, cache *Cache, epoch uint64) (string, Report) {
	if text == "" || !g.policy.Active() {
		return text, Report{}
	}

	fp := contentFingerprint(text)
	if cache != nil {
		if entry, ok := cache.get(fp, epoch); ok {
			return entry.text, entry.report
		}
	}

	out, report := g.compute(text, paths)
	if cache != nil {
		cache.put(fp, epoch, cacheEntry{text: out, report: report})
	}
	return out, report
}

// compute runs both mechanisms over a snapshot of the original text,
// merges overlapping spans, and rewrites once left-to-right. A placeholder
// is never re-scanned, so matches cannot compound.
func (g *Gateway) compute(text string, paths *SensitivePaths) (string, Report) {
	g.computes.Add(1)

	var regions []region
	if g.policy.SubstringMatching && paths != nil {
		regions = append(regions, g.pathRegions(text, paths)...)
	}
	if g.policy.SecretPatterns {
		regions = append(regions, g.secretRegions(text)...)
	}

	regions = g.dropAllowlisted(text, regions)
	if len(regions) == 0 {
		return text, Report{}
	}

	report := Report{}
	for _, r := range regions {
		report.Matches = append(report.Matches, Match{
			Reason: r.reason,
			Value:  text[r.start:r.end],
		})
	}

	switch g.policy.onMatch() {
	case OnMatchWarn:
		return text, report
	case OnMatchBlock:
		report.Blocked = true
		return BlockedPlaceholder, report
	}

	report.Redacted = true
	return rewrite(text, regions), report
}

// dropAllowlisted removes regions whose matched value hits an allowlist
// regex.
func (g *Gateway) dropAllowlisted(text string, regions []region) []region {
	if len(g.allowlist) == 0 {
		return regions
	}
	kept := regions[:0]
	for _, r := range regions {
		value := text[r.start:r.end]
		allowed := false
		for _, re := range g.allowlist {
			if re.MatchString(value) {
				allowed = true
				break
			}
		}
		if !allowed {
			kept = append(kept, r)
		}
	}
	return kept
}

// rewrite merges overlapping regions and rebuilds the text with one
// placeholder per merged span. A span that includes a secret match takes
// the secret placeholder.
func rewrite(text string, regions []region) string {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].start != regions[j].start {
			return regions[i].start < regions[j].start
		}
		return regions[i].end > regions[j].end
	})

	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			if r.reason == reasonSecret {
				last.reason = reasonSecret
			}
		} else {
			merged = append(merged, r)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(text[prev:r.start])
		if r.reason == reasonPath {
			b.WriteString(IgnoredPathPlaceholder)
		} else {
			b.WriteString(RedactedPlaceholder)
		}
		prev = r.end
	}
	b.WriteString(text[prev:])
	return b.String()
}
