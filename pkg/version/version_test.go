package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rubyhl/pkg/version"
)

func TestString(t *testing.T) {
	version.InitBinaryVersion()

	got := version.String()

	assert.True(t, strings.HasPrefix(got, "rubyhl "))
	assert.Contains(t, got, "commit: ")
	assert.NotEmpty(t, version.Version)
}
