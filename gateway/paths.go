package gateway

import (
	"regexp"
	"strings"
)

// pathlikeRe finds substrings that look like file paths: Windows
// drive-letter paths, UNC paths, and relative/repo-like paths (optionally
// ./ or ../ prefixed, dotfiles included).
var pathlikeRe = regexp.MustCompile(
	`(?:[A-Za-z]:[\\/][A-Za-z0-9._-]+(?:[\\/][A-Za-z0-9._-]+)*)` +
		`|(?:\\\\[A-Za-z0-9._-]+[\\/][A-Za-z0-9._-]+(?:[\\/][A-Za-z0-9._-]+)*)` +
		`|(?:(?:\.{1,2}[\\/])*(?:\.[A-Za-z0-9._-]+|[A-Za-z0-9._-]+(?:[\\/][A-Za-z0-9._-]+)+))`)

// pathRegions flags spans whose text mentions a currently-excluded path.
func (g *Gateway) pathRegions(text string, paths *SensitivePaths) []region {
	var regions []region
	for _, loc := range pathlikeRe.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		if candidateExcluded(candidate, paths) {
			regions = append(regions, region{loc[0], loc[1], reasonPath})
		}
	}
	return regions
}

// candidateExcluded normalizes a path-like candidate and checks every
// variant against the policy. Protocol-like strings are never paths.
func candidateExcluded(candidate string, paths *SensitivePaths) bool {
	if strings.Contains(candidate, "://") {
		return false
	}
	for _, variant := range candidateVariants(candidate) {
		relative := strings.TrimPrefix(variant, "/")
		if relative == "" {
			continue
		}
		if paths.Excluded(relative) {
			return true
		}
	}
	return false
}

// candidateVariants yields the normalized forms a candidate could take
// relative to the policy root: slash-normalized, ./ and ../ stripped,
// drive letter stripped, UNC server/share stripped.
func candidateVariants(candidate string) []string {
	normalized := strings.ReplaceAll(candidate, `\`, "/")
	var out []string

	push := func(s string) {
		if s == "" {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}
	pushStripped := func(s string) {
		for {
			if rest, ok := strings.CutPrefix(s, "./"); ok {
				s = rest
				continue
			}
			if rest, ok := strings.CutPrefix(s, "../"); ok {
				s = rest
				continue
			}
			break
		}
		push(s)
	}

	push(normalized)
	pushStripped(normalized)

	// Drive letter: C:/...
	if len(normalized) >= 3 && isASCIIAlpha(normalized[0]) && normalized[1] == ':' && normalized[2] == '/' {
		pushStripped(normalized[3:])
	}

	// UNC: //server/share/...
	if rest, ok := strings.CutPrefix(normalized, "//"); ok {
		pushStripped(rest)
		if parts := strings.SplitN(rest, "/", 3); len(parts) == 3 {
			pushStripped(parts[2])
		}
	}

	return out
}

func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
