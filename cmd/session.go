package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/retake/internal/capture"
	"github.com/audiolibrelab/retake/internal/control"
	"github.com/audiolibrelab/retake/internal/export"
	"github.com/audiolibrelab/retake/internal/metrics"
	"github.com/audiolibrelab/retake/internal/playback"
	"github.com/audiolibrelab/retake/internal/server"
	"github.com/audiolibrelab/retake/internal/session"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start an interactive recording session",
	Long: `Start an interactive recording session.

The microphone stream runs for the whole session; audio is only kept
while a take is being recorded. Takes are reviewed one at a time and the
approved timeline is exported as a single WAV file at the end.

With --serve, session status is also exposed over HTTP for watching the
session from another device.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("output")
		serve, _ := cmd.Flags().GetBool("serve")

		if outputFile != "" {
			cfg.Output.File = outputFile
		}

		rec := session.NewRecorder(cfg.Audio.SampleRate)
		met := metrics.New()

		// No capture device is fatal: the session cannot run without it.
		engine, err := capture.NewEngine(cfg, rec, met)
		if err != nil {
			return fmt.Errorf("failed to initialize capture: %w", err)
		}
		if err := engine.Start(); err != nil {
			return fmt.Errorf("failed to start capture: %w", err)
		}
		defer engine.Stop()

		if serve {
			srv := server.New(rec, met, cfg.Server.Port)
			go func() {
				if err := srv.Start(); err != nil {
					slog.Error("Status server stopped", "error", err)
				}
			}()
		}

		slog.Info("Session started", "rate", cfg.Audio.SampleRate, "channels", cfg.Audio.Channels, "output", cfg.OutputPath())

		proc := control.New(rec, playback.New(), export.WAV, met, os.Stdout, cfg.OutputPath())
		if err := proc.Run(os.Stdin); err != nil {
			return fmt.Errorf("session failed: %w", err)
		}

		return nil
	},
}

func init() {
	sessionCmd.Flags().StringP("output", "o", "", "output WAV file name (overrides config)")
	sessionCmd.Flags().Bool("serve", false, "expose session status over HTTP")
}
