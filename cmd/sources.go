package cmd

import (
	"fmt"

	"github.com/audiolibrelab/retake/internal/capture"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available capture sources",
	Long:  `List the audio sources the configured capture backend can record from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := capture.NewBackend(cfg.Audio.Backend)
		if err != nil {
			return fmt.Errorf("failed to create capture backend: %w", err)
		}

		sources, err := backend.ListSources()
		if err != nil {
			return fmt.Errorf("failed to list sources: %w", err)
		}

		fmt.Printf("Capture sources (%s backend, %d found):\n", backend.Type(), len(sources))
		for i, source := range sources {
			fmt.Printf("  %d. %s\n", i+1, source)
		}
		fmt.Println("\nSet audio.source in the config file to pick one.")

		return nil
	},
}
