package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cyclone-engine/internal/logging"
	"cyclone-engine/internal/script"
)

var cueDecode bool

var cueCmd = &cobra.Command{
	Use:   "cue <script.lua>",
	Short: "Run a Lua cue script without an audio device",
	Long: `Compile a Lua cue script against the clips and snapshots in the settings
file and play it to the end on a recording backend.

Every dispatched cue is printed with its time offset, followed by the
channels still playing when the script ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runCue,
}

func init() {
	cueCmd.Flags().BoolVar(&cueDecode, "decode", false, "decode clip files from the assets path instead of using placeholders")
	rootCmd.AddCommand(cueCmd)
}

func runCue(cmd *cobra.Command, args []string) error {
	logs := logging.New(cmd.ErrOrStderr(), levelOr("warn"))

	cfg, err := readConfig(configPath, logs.Logger(logging.Settings))
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg, cueDecode, logs.Logger(logging.Mixer))
	if err != nil {
		return err
	}
	r, err := newRig(cfg, loader, logs)
	if err != nil {
		return err
	}

	events, err := script.CompileFile(cmd.Context(), args[0], r.catalog)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r.driver.Start()

	engine := script.NewEngine(r.driver, logs.Logger(logging.Script))
	engine.OnEvent = func(e *script.Event) {
		fmt.Fprintf(out, "%8v  %s\n", e.At, e)
	}
	engine.Load(args[0], events)
	engine.RunToEnd()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Finished after %v, %d tracked instance(s) alive\n", engine.Duration(), r.driver.TrackedCount())
	for _, name := range r.backend.Playing() {
		fmt.Fprintf(out, "  playing  %s\n", name)
	}
	return nil
}
