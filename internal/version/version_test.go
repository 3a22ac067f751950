package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	assert.True(t, IsVersionGreaterOrEqualThan("0.2.0", "0.2.0"))
	assert.True(t, IsVersionGreaterOrEqualThan("v0.10.0", "0.9.3"))
	assert.False(t, IsVersionGreaterThan("0.2.0", "0.2.0"))
	assert.True(t, IsVersionGreaterThan("1.0.0", "0.99.0"))
}

func TestGetMinorVersion(t *testing.T) {
	assert.Equal(t, "0.25", GetMinorVersion("0.25.1"))
	assert.Equal(t, "", GetMinorVersion("1"))
}

func TestGetCurrentVersion(t *testing.T) {
	assert.Equal(t, DevVersion, GetCurrentVersion("dev"))
	assert.Equal(t, Version, GetCurrentVersion("prod"))
}

func TestString(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })

	GitCommit = "unknown"
	assert.Equal(t, Version, String())
	GitCommit = "0123456789abcdef"
	assert.Equal(t, Version+"-01234567", String())
	assert.Contains(t, StringFull(), "Version="+Version+"-01234567")
}
