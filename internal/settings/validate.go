package settings

import (
	"errors"
	"fmt"
	"math"

	"cyclone-engine/internal/audio"
)

// Validate checks the configuration for authoring mistakes. All problems
// are reported at once, each wrapping audio.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{audio.ErrConfiguration}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fail("window size %dx%d", c.Window.Width, c.Window.Height)
	}

	a := &c.Audio
	if a.SampleRate <= 0 {
		fail("sample rate %d", a.SampleRate)
	}

	buses := make(map[string]bool, len(a.Buses))
	params := make(map[string]bool)
	for _, b := range a.Buses {
		if b.Name == "" {
			fail("bus without a name")
			continue
		}
		if buses[b.Name] {
			fail("duplicate bus %q", b.Name)
		}
		buses[b.Name] = true
		if b.Param != "" {
			params[b.Param] = true
		}
	}
	for _, b := range a.Buses {
		if b.Parent != "" && !buses[b.Parent] {
			fail("bus %q has unknown parent %q", b.Name, b.Parent)
		}
	}
	if name, ok := busCycle(a.Buses); ok {
		fail("bus %q is its own ancestor", name)
	}

	if len(a.Volumes) == 0 {
		fail("no volume parameters")
	}
	for _, v := range a.Volumes {
		if _, err := audio.ParseCategory(v.Category); err != nil {
			fail("volume %q: unknown category %q", v.Name, v.Category)
		}
		if v.Param == "" {
			fail("volume %q has no parameter", v.Name)
		} else if len(params) > 0 && !params[v.Param] {
			fail("volume %q: parameter %q is not exposed by any bus", v.Name, v.Param)
		}
		if v.Bus != "" && len(buses) > 0 && !buses[v.Bus] {
			fail("volume %q: unknown bus %q", v.Name, v.Bus)
		}
	}

	clips := make(map[string]bool)
	for _, lib := range a.Libraries {
		if _, err := audio.ParseCategory(lib.Category); err != nil {
			fail("library %q: unknown category %q", lib.Name, lib.Category)
		}
		for _, clip := range lib.Clips {
			if clip.Name == "" || clip.Path == "" {
				fail("library %q: clip needs a name and a path", lib.Name)
				continue
			}
			if clips[clip.Name] {
				fail("duplicate clip %q", clip.Name)
			}
			clips[clip.Name] = true
		}
	}

	mixerSnapshots := make(map[string]bool, len(a.MixerSnapshots))
	for _, s := range a.MixerSnapshots {
		if s.Name == "" {
			fail("mixer snapshot without a name")
			continue
		}
		mixerSnapshots[s.Name] = true
		for _, l := range s.Levels {
			if !buses[l.Bus] {
				fail("mixer snapshot %q: unknown bus %q", s.Name, l.Bus)
			}
		}
	}

	snapshots := make(map[string]bool, len(a.Snapshots))
	for _, s := range a.Snapshots {
		snapshots[s.Name] = true
		if len(s.Targets) == 0 {
			fail("snapshot %q has no targets", s.Name)
		}
		if len(s.Weights) != 0 && len(s.Weights) != len(s.Targets) {
			fail("snapshot %q: %d weights for %d targets", s.Name, len(s.Weights), len(s.Targets))
		}
		for _, target := range s.Targets {
			if !mixerSnapshots[target] {
				fail("snapshot %q: unknown mixer snapshot %q", s.Name, target)
			}
		}
		for _, w := range s.Weights {
			if math.IsNaN(w) || w < 0 || w > 1 {
				fail("snapshot %q: weight %v outside [0, 1]", s.Name, w)
			}
		}
		if s.TransitionTime < 0 {
			fail("snapshot %q: negative transition time", s.Name)
		}
	}

	if a.DefaultSnapshot != "" && !snapshots[a.DefaultSnapshot] {
		fail("unknown default snapshot %q", a.DefaultSnapshot)
	}
	if a.AwakeMusic != "" && !clips[a.AwakeMusic] {
		fail("unknown awake music %q", a.AwakeMusic)
	}

	for _, name := range []string{c.Menu.HoverClip, c.Menu.ClickClip, c.Menu.TrackedClip} {
		if name != "" && !clips[name] {
			fail("menu: unknown clip %q", name)
		}
	}
	for _, name := range []string{c.Menu.PauseSnapshot, c.Menu.ResumeSnapshot} {
		if name != "" && !snapshots[name] {
			fail("menu: unknown snapshot %q", name)
		}
	}

	return errors.Join(errs...)
}

func busCycle(buses []BusConfig) (string, bool) {
	parent := make(map[string]string, len(buses))
	for _, b := range buses {
		parent[b.Name] = b.Parent
	}
	for _, b := range buses {
		seen := map[string]bool{}
		for name := b.Name; name != ""; name = parent[name] {
			if seen[name] {
				return b.Name, true
			}
			seen[name] = true
		}
	}
	return "", false
}

// Snapshot returns the transition request with the given name.
func (a *AudioConfig) Snapshot(name string) (SnapshotConfig, bool) {
	for _, s := range a.Snapshots {
		if s.Name == name {
			return s, true
		}
	}
	return SnapshotConfig{}, false
}
