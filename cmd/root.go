// Package cmd implements the cyclone command line.
package cmd

import (
	"github.com/spf13/cobra"

	"cyclone-engine/internal/engine"
)

var (
	configPath string
	logLevel   string
	cuePath    string
)

var rootCmd = &cobra.Command{
	Use:   "cyclone",
	Short: "Cyclone audio sound test",
	Long: `Cyclone opens the sound test window for the audio libraries described in
the settings file. Clips can be auditioned, pitched, spawned as tracked
instances and mixed with the volume sliders. Edits to the settings file are
picked up while the window is open.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runGame,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/settings.yaml", "settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the settings file (trace, debug, info, warn, error, off)")
	rootCmd.Flags().StringVar(&cuePath, "cue", "", "Lua cue script to play once the window is open")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runGame(cmd *cobra.Command, args []string) error {
	game := engine.NewGame(engine.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		CuePath:    cuePath,
		LogWriter:  cmd.ErrOrStderr(),
	})
	return game.Run()
}
