// Package matcher classifies filesystem paths against the allowed and excluded
// pattern sets of a cleanup policy.
//
// A pattern is either a delimited regular expression such as "#\.log$#" or
// "/cache/" (first and last character identical and one of # / ~), or a
// literal path prefix such as "/var/log". Literal prefixes match the path
// itself and anything below it, never a sibling that merely shares the prefix.
package matcher

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const separator = string(os.PathSeparator)

var (
	ErrEmptyPattern = errors.New("pattern must be a non-empty string")
	ErrInvalidRegex = errors.New("pattern contains invalid regex")
)

// regexDelimiters are the characters accepted as regex delimiters.
const regexDelimiters = "#/~"

type pattern struct {
	raw     string
	literal string
	re      *regexp.Regexp
	isRegex bool
}

// Matcher holds compiled allowed and excluded pattern sets.
type Matcher struct {
	allowed  []pattern
	excluded []pattern
}

// New compiles the two pattern sets. Regex patterns that fail to compile are
// kept and never match.
func New(allowed, excluded []string) *Matcher {
	return &Matcher{
		allowed:  compileAll(allowed),
		excluded: compileAll(excluded),
	}
}

// IsAllowed reports whether path matches any allowed pattern.
func (m *Matcher) IsAllowed(path string) bool {
	return matchesAny(path, m.allowed)
}

// IsExcluded reports whether path matches any excluded pattern.
func (m *Matcher) IsExcluded(path string) bool {
	return matchesAny(path, m.excluded)
}

// IsCandidate applies exclusion before inclusion.
func (m *Matcher) IsCandidate(path string) bool {
	if m.IsExcluded(path) {
		return false
	}
	return m.IsAllowed(path)
}

// IsRegex reports whether p uses the delimited regex form.
func IsRegex(p string) bool {
	if len(p) < 3 {
		return false
	}
	first, last := p[0], p[len(p)-1]
	return first == last && strings.IndexByte(regexDelimiters, first) >= 0
}

// Validate checks a single pattern the way the configuration loader needs it.
func Validate(p string) error {
	if p == "" {
		return ErrEmptyPattern
	}
	if !IsRegex(p) {
		return nil
	}
	if _, err := regexp.Compile(regexBody(p)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRegex, p, err)
	}
	return nil
}

func regexBody(p string) string {
	return p[1 : len(p)-1]
}

func compileAll(raw []string) []pattern {
	out := make([]pattern, 0, len(raw))
	for _, r := range raw {
		p := pattern{raw: r}
		if IsRegex(r) {
			p.isRegex = true
			// nil re: fail closed
			p.re, _ = regexp.Compile(regexBody(r))
		} else {
			p.literal = strings.TrimRight(r, separator)
		}
		out = append(out, p)
	}
	return out
}

func matchesAny(path string, patterns []pattern) bool {
	for _, p := range patterns {
		if p.isRegex {
			if p.re != nil && p.re.MatchString(path) {
				return true
			}
			continue
		}
		if p.literal == "" {
			continue
		}
		if path == p.literal || strings.HasPrefix(path, p.literal+separator) {
			return true
		}
	}
	return false
}
