// env_config.go: Environment variable overrides for host configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"strconv"
	"strings"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "GO_PLUGINHOST_"

// ApplyEnvOverrides replaces config fields with non-empty environment
// variables named prefix + upper-cased field key, e.g.
// GO_PLUGINHOST_UNITS_DIR or GO_PLUGINHOST_WATCH.
func ApplyEnvOverrides(config *HostConfig, prefix string) {
	strs := map[string]*string{
		"SELF_CODE_UNIT":       &config.SelfCodeUnit,
		"CANONICAL_PACKAGE_ID": &config.CanonicalPackageID,
		"SETTINGS_PAGE_ID":     &config.SettingsPageID,
		"UNITS_DIR":            &config.UnitsDir,
		"LOAD_ORDER_FILE":      &config.LoadOrderFile,
		"SETTINGS_FILE":        &config.SettingsFile,
		"CHANGELOG_DB":         &config.ChangelogDB,
		"POLL_INTERVAL":        &config.PollInterval,
		"AUDIT_OUTPUT_FILE":    &config.Audit.OutputFile,
		"LOG_LEVEL":            &config.LogLevel,
	}
	for key, field := range strs {
		if value := strings.TrimSpace(os.Getenv(prefix + key)); value != "" {
			*field = value
		}
	}

	bools := map[string]*bool{
		"WATCH":         &config.Watch,
		"AUDIT_ENABLED": &config.Audit.Enabled,
	}
	for key, field := range bools {
		if value := strings.TrimSpace(os.Getenv(prefix + key)); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				*field = parsed
			}
		}
	}
}
