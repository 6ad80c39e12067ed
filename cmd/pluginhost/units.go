// units.go: The init and units commands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	pluginhost "github.com/agilira/go-pluginhost"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCommand(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write demo unit manifests and a load-order file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return writeDemoLayout(config, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing load-order file")
	return cmd
}

func writeDemoLayout(config pluginhost.HostConfig, force bool) error {
	if _, err := os.Stat(config.LoadOrderFile); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", config.LoadOrderFile)
	}

	var active []string
	for _, unit := range demoUnits() {
		dir := filepath.Join(config.UnitsDir, strings.TrimPrefix(unit.PackageID, "demo."))
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
		data, err := yaml.Marshal(unit)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "unit.yaml"), data, 0600); err != nil {
			return err
		}
		active = append(active, unit.PackageID)
	}
	if dir := filepath.Dir(config.LoadOrderFile); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	return pluginhost.WriteLoadOrderFile(config.LoadOrderFile, active)
}

func newUnitsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Inspect and change the loaded units",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed units and their load position",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return listUnits(cmd, config)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "extensions",
		Short: "Boot the host and print every live extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return listExtensions(cmd, config)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "enable <package-id>",
		Short: "Append a unit to the load order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return setUnitEnabled(config, args[0], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable <package-id>",
		Short: "Remove a unit from the load order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return setUnitEnabled(config, args[0], false)
		},
	})
	return cmd
}

func listUnits(cmd *cobra.Command, config pluginhost.HostConfig) error {
	source := pluginhost.NewDirectoryUnitSource(config.UnitsDir, config.LoadOrderFile, pluginhost.NewNoOpLogger())
	installed, err := source.InstalledUnits()
	if err != nil {
		return err
	}
	active, err := pluginhost.ReadLoadOrderFile(config.LoadOrderFile)
	if err != nil && !pluginhost.HasErrorCode(err, pluginhost.ErrCodeConfigNotFound) {
		return err
	}
	position := make(map[string]int, len(active))
	for i, id := range active {
		position[id] = i + 1
	}

	ids := make([]string, 0, len(installed))
	for id := range installed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE ID\tNAME\tVERSION\tCODE UNITS\tLOAD ORDER")
	for _, id := range ids {
		unit := installed[id]
		order := "-"
		if p, ok := position[id]; ok {
			order = fmt.Sprint(p)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", unit.PackageID, unit.Name, unit.Version, strings.Join(unit.CodeUnits, ","), order)
	}
	return w.Flush()
}

func listExtensions(cmd *cobra.Command, config pluginhost.HostConfig) (err error) {
	config.Watch = false
	rt, err := newHostRuntime(config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := rt.boot(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTIFIER\tTYPE\tPACKAGE ID\tVERSION\tACTIVE\tEARLY\tINITIALIZED")
	for _, info := range rt.controller.Snapshot() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%t\n",
			info.Identifier, info.TypeKey, info.PackageID, info.Version,
			info.Active, info.EarlyInitRun, info.Initialized)
	}
	return w.Flush()
}

func setUnitEnabled(config pluginhost.HostConfig, packageID string, enabled bool) error {
	active, err := pluginhost.ReadLoadOrderFile(config.LoadOrderFile)
	if err != nil && !pluginhost.HasErrorCode(err, pluginhost.ErrCodeConfigNotFound) {
		return err
	}

	next := make([]string, 0, len(active)+1)
	present := false
	for _, id := range active {
		if id == packageID {
			present = true
			if !enabled {
				continue
			}
		}
		next = append(next, id)
	}
	if enabled && !present {
		next = append(next, packageID)
	}
	return pluginhost.WriteLoadOrderFile(config.LoadOrderFile, next)
}
