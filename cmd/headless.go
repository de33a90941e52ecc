package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/decred/slog"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/audio/audiotest"
	"cyclone-engine/internal/catalog"
	"cyclone-engine/internal/filesystem"
	"cyclone-engine/internal/logging"
	"cyclone-engine/internal/mixer"
	"cyclone-engine/internal/settings"
)

// rig is a driver running against the recording backend.
type rig struct {
	config  *settings.Config
	catalog *catalog.Catalog
	backend *audiotest.Backend
	driver  *audio.Driver
	report  audio.Report
}

// readConfig loads and validates the settings file without creating it.
func readConfig(path string, log slog.Logger) (*settings.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	m := settings.NewManager(path, log)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m.GetConfig(), nil
}

// placeholders stands in for decoding: every path loads as a named
// placeholder sound.
type placeholders struct{}

func (placeholders) Load(p string) (audio.Sound, error) {
	return audiotest.NewSound(path.Base(p)), nil
}

// newLoader decodes from the configured assets path, or loads placeholders
// when decoding is off.
func newLoader(cfg *settings.Config, decode bool, log slog.Logger) (catalog.SoundLoader, error) {
	if !decode {
		return placeholders{}, nil
	}
	fs := filesystem.NewManager(cfg.AssetsPath, log)
	if err := fs.Init(); err != nil {
		return nil, fmt.Errorf("failed to open assets: %w", err)
	}
	return mixer.NewLoader(fs, cfg.Audio.SampleRate, log), nil
}

// newRig builds the catalog from cfg and initializes a driver against an
// audiotest backend exposing every bus parameter.
func newRig(cfg *settings.Config, loader catalog.SoundLoader, logs *logging.Loggers) (*rig, error) {
	c, err := catalog.Build(cfg.Audio, loader, logs.Logger(logging.Audio))
	if err != nil {
		return nil, err
	}

	var exposed []string
	for _, b := range cfg.Audio.Buses {
		if b.Param != "" {
			exposed = append(exposed, b.Param)
		}
	}
	backend := audiotest.NewBackend(exposed...)

	d := audio.New(c.DriverConfig(backend, logs.Logger(logging.Audio)))
	report, err := d.Init()
	if err != nil {
		return nil, err
	}
	return &rig{config: cfg, catalog: c, backend: backend, driver: d, report: report}, nil
}
