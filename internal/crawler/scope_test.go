package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alvmarrod/link-graph/internal/config"
)

func TestScopeSubstring(t *testing.T) {
	s := NewScope("caltech.edu", config.MatchSubstring)

	tests := []struct {
		link string
		want bool
	}{
		{"http://www.caltech.edu/", true},
		{"https://caltech.edu/about", true},
		{"http://notcaltech.education.org/", true},
		{"http://example.com/caltech.edu/page", true},
		{"http://mit.edu/", false},
		{"http://www.CALTECH.edu/", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, s.Allows(tc.link), tc.link)
	}
}

func TestScopeHost(t *testing.T) {
	s := NewScope("Caltech.edu", config.MatchHost)

	tests := []struct {
		link string
		want bool
	}{
		{"http://caltech.edu/", true},
		{"https://www.caltech.edu/a", true},
		{"http://WWW.CALTECH.EDU/", true},
		{"http://notcaltech.edu/", false},
		{"http://example.com/caltech.edu/page", false},
		{"http://caltech.edu.evil.com/", false},
		{"not a url", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, s.Allows(tc.link), tc.link)
	}
}

func TestScopeDefaultsAndEmptyToken(t *testing.T) {
	assert.True(t, NewScope("example.com", "").Allows("http://example.com/"))
	assert.False(t, NewScope("  ", config.MatchSubstring).Allows("http://example.com/"))
	assert.False(t, NewScope("", config.MatchHost).Allows("http://example.com/"))
}
