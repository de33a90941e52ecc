package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/logging"
)

var checkDecode bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the audio settings and print the routing table",
	Long: `Load and validate the settings file, decode every clip from the assets
path and initialize the audio driver without opening an audio device.

Every volume parameter and clip route is listed. Missing sounds, unexposed
parameters and channels that could not be created are reported as
problems, and the command fails when there are any.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDecode, "decode", true, "decode clip files from the assets path instead of using placeholders")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logs := logging.New(cmd.ErrOrStderr(), levelOr("warn"))
	log := logs.Logger(logging.Settings)

	cfg, err := readConfig(configPath, log)
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg, checkDecode, logs.Logger(logging.Mixer))
	if err != nil {
		return err
	}
	r, err := newRig(cfg, loader, logs)
	if err != nil {
		return err
	}

	problems := r.print(cmd.OutOrStdout(), configPath)
	if n := len(problems); n > 0 {
		return fmt.Errorf("%d problem(s) found", n)
	}
	return nil
}

// levelOr returns the --log-level flag, or def when it is unset.
func levelOr(def string) string {
	if logLevel != "" {
		return logLevel
	}
	return def
}

// print writes the volume and routing tables and returns every failure.
func (r *rig) print(w io.Writer, source string) []audio.Outcome {
	fmt.Fprintf(w, "Settings: %s\n\n", source)

	params := r.driver.Volumes()
	width := 0
	for _, p := range params {
		width = max(width, len(p.Name))
	}
	fmt.Fprintln(w, "Volumes:")
	for _, p := range params {
		fmt.Fprintf(w, "  %-*s  %-6s  %-14s  %.2f (%.1f dB)\n", width, p.Name, p.Category, p.Param, p.Volume, p.Gain())
	}
	fmt.Fprintln(w)

	clips := r.driver.Clips()
	width = 0
	for _, c := range clips {
		width = max(width, len(c.Name))
	}
	fmt.Fprintln(w, "Routes:")
	for _, c := range clips {
		route, _ := r.driver.Route(c)
		kind := "shared"
		if route.Dedicated {
			kind = "dedicated"
		}
		sound := "-"
		if c.Sound != nil {
			sound = c.Sound.Name()
		}
		loop := ""
		if c.Loop {
			loop = "loop"
		}
		fmt.Fprintf(w, "  %-*s  %-6s  %-9s  %-4s  %s\n", width, c.Name, route.Category, kind, loop, sound)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Channels: %d shared, %d dedicated, %d clips routed\n",
		r.report.SharedChannels, r.report.DedicatedChannels, r.report.RoutedClips)

	problems := append(audio.Failed(r.catalog.Loads), r.report.Failed()...)
	if len(problems) == 0 {
		fmt.Fprintln(w, "No problems found")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Problems:")
	for _, o := range problems {
		fmt.Fprintf(w, "  %s: %v\n", o.Item, o.Err)
	}
	return problems
}
