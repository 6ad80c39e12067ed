// config.go: Host configuration loading, defaults and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// HostConfig configures a file-backed host: where units, the load order,
// settings and the changelog database live, and whether to watch them.
type HostConfig struct {
	SelfCodeUnit       string `json:"self_code_unit" yaml:"self_code_unit"`
	CanonicalPackageID string `json:"canonical_package_id" yaml:"canonical_package_id"`
	SettingsPageID     string `json:"settings_page_id,omitempty" yaml:"settings_page_id,omitempty"`

	UnitsDir      string `json:"units_dir" yaml:"units_dir"`
	LoadOrderFile string `json:"load_order_file" yaml:"load_order_file"`
	SettingsFile  string `json:"settings_file" yaml:"settings_file"`
	ChangelogDB   string `json:"changelog_db" yaml:"changelog_db"`

	// Watch reloads units and settings when their files change.
	Watch        bool   `json:"watch" yaml:"watch"`
	PollInterval string `json:"poll_interval" yaml:"poll_interval"`

	Audit AuditSettings `json:"audit" yaml:"audit"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// AuditSettings controls the argus audit trail of reload and settings events.
type AuditSettings struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	OutputFile string `json:"output_file" yaml:"output_file"`
}

// DefaultHostConfig returns the defaults used for unset fields.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		SelfCodeUnit:       DefaultSelfCodeUnit,
		CanonicalPackageID: DefaultCanonicalPackageID,
		UnitsDir:           "units",
		LoadOrderFile:      "load_order.yaml",
		SettingsFile:       "settings.yaml",
		ChangelogDB:        "data/changelog.db",
		Watch:              false,
		PollInterval:       "2s",
		Audit: AuditSettings{
			Enabled:    false,
			OutputFile: "pluginhost-audit.jsonl",
		},
		LogLevel: "info",
	}
}

// LoadHostConfig reads path (JSON or YAML, detected by extension) over the
// defaults, applies environment overrides and validates the result.
func LoadHostConfig(path string) (HostConfig, error) {
	config := DefaultHostConfig()

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return config, NewConfigNotFoundError(path)
		}
		return config, NewConfigParseError(path, err)
	}

	switch format := argus.DetectFormat(path); format {
	case argus.FormatJSON:
		err = json.Unmarshal(data, &config)
	case argus.FormatYAML:
		err = yaml.Unmarshal(data, &config)
	default:
		err = fmt.Errorf("unsupported config format %v", format)
	}
	if err != nil {
		return config, NewConfigParseError(path, err)
	}

	ApplyEnvOverrides(&config, DefaultEnvPrefix)
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate checks required fields and the poll interval.
func (c HostConfig) Validate() error {
	required := map[string]string{
		"self_code_unit":       c.SelfCodeUnit,
		"canonical_package_id": c.CanonicalPackageID,
		"units_dir":            c.UnitsDir,
		"load_order_file":      c.LoadOrderFile,
	}
	for _, field := range []string{"self_code_unit", "canonical_package_id", "units_dir", "load_order_file"} {
		if strings.TrimSpace(required[field]) == "" {
			return NewConfigValidationError(field + " is required")
		}
	}
	if c.Watch {
		if _, err := c.PollDuration(); err != nil {
			return NewConfigValidationError("poll_interval: " + err.Error())
		}
	}
	if c.Audit.Enabled && c.Audit.OutputFile == "" {
		return NewConfigValidationError("audit.output_file is required when audit is enabled")
	}
	return nil
}

// PollDuration parses PollInterval. It must be positive.
func (c HostConfig) PollDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", c.PollInterval)
	}
	return d, nil
}

// AuditConfig returns the argus audit configuration for the host.
func (c HostConfig) AuditConfig() argus.AuditConfig {
	return argus.AuditConfig{
		Enabled:       c.Audit.Enabled,
		OutputFile:    c.Audit.OutputFile,
		MinLevel:      argus.AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}
