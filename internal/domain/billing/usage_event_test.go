package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Install ")
	require.NoError(t, err)
	assert.Equal(t, ActionInstall, a)
	assert.True(t, a.Metered())
	assert.False(t, ActionSet.Metered())

	_, err = ParseAction("explode")
	assert.Error(t, err)
}

func TestNewBandwidthUsage(t *testing.T) {
	u, err := NewBandwidthUsage("com.demo.app", "dev-1", 2048)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), u.FileSize)
	assert.False(t, u.Timestamp.IsZero())

	_, err = NewBandwidthUsage("com.demo.app", "dev-1", -1)
	assert.Error(t, err)
	_, err = NewBandwidthUsage("", "dev-1", 1)
	assert.Error(t, err)
	_, err = NewBandwidthUsage("com.demo.app", "", 1)
	assert.Error(t, err)
}

func TestNewVersionUsage(t *testing.T) {
	u, err := NewVersionUsage("com.demo.app", 12, ActionGet)
	require.NoError(t, err)
	assert.Equal(t, int64(12), u.VersionID)

	_, err = NewVersionUsage("com.demo.app", 12, ActionReset)
	assert.Error(t, err)
}

func TestNewDeviceRecord(t *testing.T) {
	d, err := NewDeviceRecord("com.demo.app", "dev-1", 3, "1.0.3")
	require.NoError(t, err)
	d.WithClient("ios", "6.2.0")
	assert.Equal(t, "ios", d.Platform)
	assert.Equal(t, "6.2.0", d.PluginVersion)
}
