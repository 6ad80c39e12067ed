// main.go: Demo plugin host command line
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	pluginhost "github.com/agilira/go-pluginhost"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pluginhost",
		Short: "Demo host for pluginhost extensions",
		Long: `pluginhost runs a simulated game loop with the demo extensions compiled
into this binary. Deployable units are discovered from unit manifests under
the units directory and loaded in the order given by the load-order file.`,
		Version:       pluginhost.ModuleVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "host config file (YAML or JSON)")

	rootCmd.AddCommand(newInitCommand(&configPath))
	rootCmd.AddCommand(newRunCommand(&configPath))
	rootCmd.AddCommand(newUnitsCommand(&configPath))
	return rootCmd
}
