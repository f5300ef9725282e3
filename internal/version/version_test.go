package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringPrefersLdflags(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "1.2.3"
	assert.Equal(t, "1.2.3", String())
}

func TestStringFallback(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = ""
	assert.NotEmpty(t, String())
}
