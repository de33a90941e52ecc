// Package catalog turns authored audio settings into the objects the driver
// and the mixer are built from, and resolves clips and snapshots by name.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/decred/slog"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/mixer"
	"cyclone-engine/internal/settings"
)

// SoundLoader produces playable sounds from asset paths.
type SoundLoader interface {
	Load(path string) (audio.Sound, error)
}

// Catalog holds the driver and mixer inputs built from an AudioConfig.
type Catalog struct {
	Volumes   []audio.VolumeParam
	Libraries []*audio.Library

	Buses          []mixer.Bus
	MixerSnapshots map[string]mixer.Levels

	DefaultSnapshot     *audio.Snapshot
	AwakeMusic          *audio.Clip
	PlayMusicOnStart    bool
	ApplyVolumesOnStart bool

	// Loads reports every clip whose sound could not be loaded. Such clips
	// are still registered, with no sound.
	Loads []audio.Outcome

	clips     map[string]*audio.Clip
	snapshots map[string]*audio.Snapshot
}

// Build converts cfg. Categories must parse; sound load failures are only
// reported through Loads.
func Build(cfg settings.AudioConfig, loader SoundLoader, log slog.Logger) (*Catalog, error) {
	if log == nil {
		log = slog.Disabled
	}

	c := &Catalog{
		MixerSnapshots:      make(map[string]mixer.Levels, len(cfg.MixerSnapshots)),
		PlayMusicOnStart:    cfg.PlayMusicOnStart,
		ApplyVolumesOnStart: cfg.ApplyVolumesOnStart,
		clips:               make(map[string]*audio.Clip),
		snapshots:           make(map[string]*audio.Snapshot, len(cfg.Snapshots)),
	}

	for _, b := range cfg.Buses {
		c.Buses = append(c.Buses, mixer.Bus{Name: b.Name, Param: b.Param, Parent: b.Parent})
	}
	for _, s := range cfg.MixerSnapshots {
		levels := make(mixer.Levels, len(s.Levels))
		for _, l := range s.Levels {
			levels[l.Bus] = l.DB
		}
		c.MixerSnapshots[s.Name] = levels
	}

	for _, v := range cfg.Volumes {
		category, err := audio.ParseCategory(v.Category)
		if err != nil {
			return nil, fmt.Errorf("volume %q: %w", v.Name, err)
		}
		c.Volumes = append(c.Volumes, audio.VolumeParam{
			Name:     v.Name,
			Category: category,
			Bus:      v.Bus,
			Param:    v.Param,
			Volume:   v.Volume,
		})
	}

	for _, l := range cfg.Libraries {
		category, err := audio.ParseCategory(l.Category)
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", l.Name, err)
		}
		lib := &audio.Library{Name: l.Name, Category: category, Dedicated: l.Dedicated}
		for _, cc := range l.Clips {
			clip, ok := c.clips[cc.Name]
			if !ok {
				clip = audio.NewClip(cc.Name, nil, cc.Loop)
				if loader != nil {
					sound, err := loader.Load(cc.Path)
					if err != nil {
						log.Warnf("Clip %s: %v", cc.Name, err)
					} else {
						clip.Sound = sound
					}
					c.Loads = append(c.Loads, audio.Outcome{Item: cc.Name, Err: err})
				}
				c.clips[cc.Name] = clip
			}
			lib.Clips = append(lib.Clips, clip)
		}
		c.Libraries = append(c.Libraries, lib)
	}

	for _, s := range cfg.Snapshots {
		weights := s.Weights
		if len(weights) == 0 {
			weights = make([]float64, len(s.Targets))
			for i := range weights {
				weights[i] = 1
			}
		}
		c.snapshots[s.Name] = &audio.Snapshot{
			Name:           s.Name,
			Targets:        append([]string(nil), s.Targets...),
			Weights:        append([]float64(nil), weights...),
			TransitionTime: time.Duration(math.Round(s.TransitionTime * float64(time.Second))),
		}
	}

	if cfg.DefaultSnapshot != "" {
		s, ok := c.snapshots[cfg.DefaultSnapshot]
		if !ok {
			return nil, fmt.Errorf("%w: unknown default snapshot %q", audio.ErrConfiguration, cfg.DefaultSnapshot)
		}
		c.DefaultSnapshot = s
	}
	if cfg.AwakeMusic != "" {
		clip, ok := c.clips[cfg.AwakeMusic]
		if !ok {
			return nil, fmt.Errorf("%w: unknown awake music %q", audio.ErrConfiguration, cfg.AwakeMusic)
		}
		c.AwakeMusic = clip
	}

	return c, nil
}

// Clip returns the clip with the given name.
func (c *Catalog) Clip(name string) (*audio.Clip, bool) {
	clip, ok := c.clips[name]
	return clip, ok
}

// Snapshot returns the snapshot request with the given name.
func (c *Catalog) Snapshot(name string) (*audio.Snapshot, bool) {
	s, ok := c.snapshots[name]
	return s, ok
}

// ClipNames returns every clip name, sorted.
func (c *Catalog) ClipNames() []string {
	names := make([]string, 0, len(c.clips))
	for name := range c.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SnapshotNames returns every snapshot request name, sorted.
func (c *Catalog) SnapshotNames() []string {
	names := make([]string, 0, len(c.snapshots))
	for name := range c.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MixerConfig returns the mixing graph for the ebiten backend.
func (c *Catalog) MixerConfig(log slog.Logger) mixer.Config {
	return mixer.Config{Buses: c.Buses, Snapshots: c.MixerSnapshots, Logger: log}
}

// DriverConfig returns the driver configuration for backend.
func (c *Catalog) DriverConfig(backend audio.Backend, log slog.Logger) audio.Config {
	return audio.Config{
		Backend:             backend,
		Volumes:             c.Volumes,
		Libraries:           c.Libraries,
		DefaultSnapshot:     c.DefaultSnapshot,
		AwakeMusic:          c.AwakeMusic,
		PlayMusicOnStart:    c.PlayMusicOnStart,
		ApplyVolumesOnStart: c.ApplyVolumesOnStart,
		Logger:              log,
	}
}

// ApplyPrefs overrides authored volumes with stored player preferences.
func (c *Catalog) ApplyPrefs(prefs map[audio.Category]float64) {
	for i := range c.Volumes {
		if v, ok := prefs[c.Volumes[i].Category]; ok {
			c.Volumes[i].Volume = v
		}
	}
}
