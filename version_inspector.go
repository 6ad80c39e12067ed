// version_inspector.go: Reports initialized extension versions to the update manager
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

// VersionInspector hands each extension's identifier and version to the
// UpdateManager. One extension's failure does not stop the pass.
type VersionInspector struct {
	updates UpdateManager
	logger  Logger
}

// NewVersionInspector creates an inspector reporting to updates.
func NewVersionInspector(updates UpdateManager, logger Logger) *VersionInspector {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &VersionInspector{updates: updates, logger: logger}
}

// Inspect reports every descriptor in order.
func (v *VersionInspector) Inspect(descriptors []*PluginDescriptor) InspectionReport {
	report := InspectionReport{Inspected: make(map[string]string, len(descriptors))}

	for _, d := range descriptors {
		version, err := d.Version()
		if err == nil {
			err = safeCall(func() error {
				return v.updates.InspectActiveExtension(d.Identifier(), version)
			})
			if err != nil {
				err = NewCollaboratorError("update_manager", err)
			}
		}
		if err != nil {
			report.Failures = append(report.Failures, HookFailure{
				Identifier: d.Identifier(),
				Err:        err,
			})
			v.logger.Error("Version inspection failed",
				"identifier", d.Identifier(),
				"code_unit", d.CodeUnit(),
				"error", err)
			continue
		}
		report.Inspected[d.Identifier()] = version
	}
	return report
}
