package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// excludePattern is a parsed exclusion pattern with its matching strategy.
type excludePattern struct {
	pattern string
	target  matchTarget
}

type matchTarget int

const (
	matchBase matchTarget = iota // basename only
	matchRel                     // slash path relative to the walk root
	matchAbs                     // absolute slash path
)

// ExcludeMatcher checks walked paths against a set of exclusion patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the relative path from the walk root.
// Patterns starting with '/' match against the absolute path.
// All patterns accept doublestar syntax, including "**".
type ExcludeMatcher struct {
	patterns []excludePattern
}

// NewExcludeMatcher creates an ExcludeMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped. Malformed patterns are
// rejected so a typo never silently widens a scan.
func NewExcludeMatcher(rawPatterns []string) (*ExcludeMatcher, error) {
	var patterns []excludePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !doublestar.ValidatePattern(raw) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, doublestar.ErrBadPattern)
		}

		p := excludePattern{pattern: raw, target: matchBase}
		switch {
		case strings.HasPrefix(raw, "/"):
			p.target = matchAbs
		case strings.Contains(raw, "/"):
			p.target = matchRel
		}
		patterns = append(patterns, p)
	}
	return &ExcludeMatcher{patterns: patterns}, nil
}

// Match reports whether a walked path should be excluded.
// relativePath is relative to the walk root; absPath is the same path made absolute.
func (m *ExcludeMatcher) Match(relativePath, absPath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	rel := filepath.ToSlash(relativePath)
	abs := filepath.ToSlash(absPath)
	base := filepath.Base(relativePath)

	for _, p := range m.patterns {
		var name string
		switch p.target {
		case matchAbs:
			name = abs
		case matchRel:
			name = rel
		default:
			name = base
		}
		if doublestar.MatchUnvalidated(p.pattern, name) {
			return true
		}
	}
	return false
}

// LiteralPattern returns an absolute pattern that matches path and nothing
// else, escaping any glob metacharacters in it.
func LiteralPattern(path string) string {
	var b strings.Builder
	for _, r := range filepath.ToSlash(filepath.Clean(path)) {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseExcludeFile reads exclusion patterns, one per line.
// Returns nil and no error if the file does not exist.
func ParseExcludeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclude file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude file: %w", err)
	}
	return patterns, nil
}
