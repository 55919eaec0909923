package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
default:
  protocol: hidl
  servicemanager: hidl
devices:
  /dev/binder:
    protocol: aidl
    servicemanager: aidl3
  /dev/legacybinder:
    servicemanager: legacy
`

func TestParseDefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	binder := cfg.For("/dev/binder")
	assert.Equal(t, "aidl", binder.Protocol)
	assert.Equal(t, "aidl3", binder.ServiceManager)

	legacy := cfg.For("/dev/legacybinder")
	assert.Equal(t, "hidl", legacy.Protocol) // inherited from default
	assert.Equal(t, "legacy", legacy.ServiceManager)

	unknown := cfg.For("/dev/hwbinder")
	assert.Equal(t, "hidl", unknown.Protocol)
	assert.Equal(t, "hidl", unknown.ServiceManager)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.NotNil(t, cfg.Devices)
	assert.Equal(t, DeviceConfig{}, cfg.For("/dev/binder"))
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("default: [unterminated"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/binder.yaml")
	assert.Error(t, err)
}
