// Package cmd assembles the command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/magpi/listener/cmd/benchmark"
	"github.com/magpi/listener/cmd/devices"
	"github.com/magpi/listener/cmd/realtime"
	"github.com/magpi/listener/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "listener",
		Short: "Continuous bird audio detection service",
		Long:  "Captures audio from a microphone, classifies bird vocalizations and serves detection statistics over HTTP.",
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		benchmark.Command(settings),
		devices.Command(),
	)

	return rootCmd
}
