package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralPrefixMatching(t *testing.T) {
	m := New([]string{"/var/log", "/tmp/cache/"}, nil)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact", "/var/log", true},
		{"child", "/var/log/x", true},
		{"grandchild", "/var/log/app/x.log", true},
		{"sibling sharing prefix", "/var/log2", false},
		{"sibling file sharing prefix", "/var/logrotate.conf", false},
		{"parent", "/var", false},
		{"slash-delimited reads as regex", "/tmp/cache", true},
		{"slash-delimited regex is unanchored", "/srv/tmp/cache/a", true},
		{"unrelated", "/home/user", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsAllowed(tt.path))
		})
	}
}

func TestRelativeLiteralTrailingSeparator(t *testing.T) {
	m := New([]string{"data/"}, nil)

	assert.True(t, m.IsAllowed("data"))
	assert.True(t, m.IsAllowed("data/x"))
	assert.False(t, m.IsAllowed("database"))
}

func TestEmptyLiteralNeverMatches(t *testing.T) {
	m := New([]string{"/", "//", ""}, nil)

	assert.False(t, m.IsAllowed("/"))
	assert.False(t, m.IsAllowed("/etc/passwd"))
}

func TestRegexMatching(t *testing.T) {
	m := New(nil, []string{`#\.keep$#`, `~/node_modules/~`, `/\/secret\//`})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"hash delimited", "/tmp/x/.keep", true},
		{"hash delimited miss", "/tmp/x/.keeper", false},
		{"tilde delimited anywhere", "/srv/app/node_modules/pkg/index.js", true},
		{"slash delimited with escapes", "/data/secret/key", true},
		{"slash delimited miss", "/data/secrets/key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsExcluded(tt.path))
		})
	}
}

func TestIsRegex(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"#a#", true},
		{"/a/", true},
		{"~a~", true},
		{"##", false},
		{"/var/log", false},
		{"/var/log/", true},
		{"#a/", false},
		{"%a%", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRegex(tt.pattern))
		})
	}
}

func TestInvalidRegexFailsClosed(t *testing.T) {
	m := New([]string{"#([a-z#"}, []string{"#([a-z#"})

	assert.False(t, m.IsAllowed("/tmp/([a-z"))
	assert.False(t, m.IsExcluded("/tmp/([a-z"))
}

func TestExclusionWinsOverInclusion(t *testing.T) {
	m := New([]string{"/tmp/x"}, []string{"/tmp/x/keep", `#\.pid$#`})

	assert.True(t, m.IsCandidate("/tmp/x/old.log"))
	assert.False(t, m.IsCandidate("/tmp/x/keep"))
	assert.False(t, m.IsCandidate("/tmp/x/keep/inner.log"))
	assert.False(t, m.IsCandidate("/tmp/x/app.pid"))
	assert.False(t, m.IsCandidate("/tmp/y/old.log"))
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, Validate(""), ErrEmptyPattern)
	require.ErrorIs(t, Validate("#([a-z#"), ErrInvalidRegex)
	require.NoError(t, Validate("/var/log"))
	require.NoError(t, Validate(`#\.log$#`))
}
