// Package config loads the device-to-dialect mapping callers use to
// pick a wire protocol and context-manager variant without hardcoding
// them, mirroring the teacher's pattern of a small typed config
// struct decoded straight off disk rather than threading flags through
// every constructor.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeviceConfig describes how to talk to one Binder device node.
type DeviceConfig struct {
	// Protocol is "aidl" or "hidl"; empty defers to
	// internal/protocol.ForDevice's path-based guess.
	Protocol string `yaml:"protocol"`

	// ServiceManager is "legacy", "aidl2", "aidl3", "aidl4" or "hidl".
	ServiceManager string `yaml:"servicemanager"`
}

// Config is a parsed device configuration document: a default entry
// plus per-device overrides, the same two-tier shape libgbinder's
// gbinder.conf uses.
type Config struct {
	Default DeviceConfig            `yaml:"default"`
	Devices map[string]DeviceConfig `yaml:"devices"`
}

// Load reads and decodes a YAML config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML config document already read into memory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Devices == nil {
		cfg.Devices = map[string]DeviceConfig{}
	}
	return &cfg, nil
}

// For returns the configuration that applies to device, falling back
// to the document's default entry for any field the device-specific
// entry leaves blank.
func (c *Config) For(device string) DeviceConfig {
	resolved := c.Default
	if override, ok := c.Devices[device]; ok {
		if override.Protocol != "" {
			resolved.Protocol = override.Protocol
		}
		if override.ServiceManager != "" {
			resolved.ServiceManager = override.ServiceManager
		}
	}
	return resolved
}
