// Package realtime contains the realtime analysis command.
package realtime

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magpi/listener/internal/analysis"
	"github.com/magpi/listener/internal/conf"
)

// Command creates the command that runs the full listening pipeline.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Listen and detect in realtime",
		Long:  "Start capturing audio and analyzing it for bird calls, persisting detections and serving the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return analysis.RealtimeAnalysis(ctx, settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// setupFlags exposes the most commonly overridden settings as flags. The
// environment remains the primary configuration surface.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVar(&settings.Audio.Device, "source", settings.Audio.Device,
		"audio capture device name, or \"synthetic\" for generated audio")
	cmd.Flags().BoolVar(&settings.Realtime.Export.Enabled, "export", settings.Realtime.Export.Enabled,
		"export a WAV clip for each accepted detection")
	cmd.Flags().StringVar(&settings.Realtime.Export.Path, "clippath", settings.Realtime.Export.Path,
		"directory for exported audio clips")
	cmd.Flags().IntVar(&settings.API.Port, "port", settings.API.Port,
		"HTTP API listen port")
}
