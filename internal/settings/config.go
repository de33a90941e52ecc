package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration
type Config struct {
	Window     WindowConfig `mapstructure:"window" yaml:"window"`
	AssetsPath string       `mapstructure:"assets_path" yaml:"assets_path"`
	// Overlays are directories searched before AssetsPath, last one first.
	Overlays   []string     `mapstructure:"overlays" yaml:"overlays,omitempty"`
	PrefsFile  string       `mapstructure:"prefs_file" yaml:"prefs_file"`
	LogLevel   string       `mapstructure:"log_level" yaml:"log_level"`
	DebugMode  bool         `mapstructure:"debug_mode" yaml:"debug_mode"`
	Audio      AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Menu       MenuConfig   `mapstructure:"menu" yaml:"menu"`
}

// MenuConfig names the clips and snapshots the sound test screen uses.
// Empty names turn the matching feature off.
type MenuConfig struct {
	HoverClip      string `mapstructure:"hover_clip" yaml:"hover_clip"`
	ClickClip      string `mapstructure:"click_clip" yaml:"click_clip"`
	TrackedClip    string `mapstructure:"tracked_clip" yaml:"tracked_clip"`
	PauseSnapshot  string `mapstructure:"pause_snapshot" yaml:"pause_snapshot"`
	ResumeSnapshot string `mapstructure:"resume_snapshot" yaml:"resume_snapshot"`
}

// WindowConfig holds window settings.
type WindowConfig struct {
	Width      int    `mapstructure:"width" yaml:"width"`
	Height     int    `mapstructure:"height" yaml:"height"`
	Fullscreen bool   `mapstructure:"fullscreen" yaml:"fullscreen"`
	VSync      bool   `mapstructure:"vsync" yaml:"vsync"`
	Title      string `mapstructure:"title" yaml:"title"`
}

// AudioConfig is the authoring data for the audio driver and its mixer.
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`

	Buses          []BusConfig           `mapstructure:"buses" yaml:"buses"`
	Volumes        []VolumeConfig        `mapstructure:"volumes" yaml:"volumes"`
	Libraries      []LibraryConfig       `mapstructure:"libraries" yaml:"libraries"`
	MixerSnapshots []MixerSnapshotConfig `mapstructure:"mixer_snapshots" yaml:"mixer_snapshots"`
	Snapshots      []SnapshotConfig      `mapstructure:"snapshots" yaml:"snapshots"`

	DefaultSnapshot     string `mapstructure:"default_snapshot" yaml:"default_snapshot"`
	AwakeMusic          string `mapstructure:"awake_music" yaml:"awake_music"`
	PlayMusicOnStart    bool   `mapstructure:"play_music_on_start" yaml:"play_music_on_start"`
	ApplyVolumesOnStart bool   `mapstructure:"apply_volumes_on_start" yaml:"apply_volumes_on_start"`
}

// BusConfig declares a mixer bus. Param is the exposed gain parameter, if any.
type BusConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Param  string `mapstructure:"param" yaml:"param,omitempty"`
	Parent string `mapstructure:"parent" yaml:"parent,omitempty"`
}

// VolumeConfig binds a category to a bus parameter.
type VolumeConfig struct {
	Name     string  `mapstructure:"name" yaml:"name"`
	Category string  `mapstructure:"category" yaml:"category"`
	Bus      string  `mapstructure:"bus" yaml:"bus"`
	Param    string  `mapstructure:"param" yaml:"param"`
	Volume   float64 `mapstructure:"volume" yaml:"volume"`
}

// LibraryConfig groups clips under a category.
type LibraryConfig struct {
	Name      string       `mapstructure:"name" yaml:"name"`
	Category  string       `mapstructure:"category" yaml:"category"`
	Dedicated bool         `mapstructure:"dedicated" yaml:"dedicated"`
	Clips     []ClipConfig `mapstructure:"clips" yaml:"clips"`
}

// ClipConfig points at an audio file under the assets path.
type ClipConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
	Loop bool   `mapstructure:"loop" yaml:"loop"`
}

// MixerSnapshotConfig is a target mixer state. Buses it does not list stay
// at 0 dB.
type MixerSnapshotConfig struct {
	Name   string     `mapstructure:"name" yaml:"name"`
	Levels []BusLevel `mapstructure:"levels" yaml:"levels"`
}

// BusLevel is the attenuation of one bus in dB. Bus names are kept in a
// list because viper folds map keys to lower case.
type BusLevel struct {
	Bus string  `mapstructure:"bus" yaml:"bus"`
	DB  float64 `mapstructure:"db" yaml:"db"`
}

// SnapshotConfig is a transition request toward one or more mixer snapshots.
type SnapshotConfig struct {
	Name           string    `mapstructure:"name" yaml:"name"`
	Targets        []string  `mapstructure:"targets" yaml:"targets"`
	Weights        []float64 `mapstructure:"weights" yaml:"weights,omitempty"`
	TransitionTime float64   `mapstructure:"transition_time" yaml:"transition_time"` // seconds
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			VSync:  true,
			Title:  "Cyclone Sound Test",
		},
		AssetsPath: "./assets",
		PrefsFile:  "config/volume.ini",
		LogLevel:   "info",
		DebugMode:  true,
		Audio: AudioConfig{
			SampleRate: 44100,
			Buses: []BusConfig{
				{Name: "Master", Param: "MasterVolume"},
				{Name: "Music", Param: "MusicVolume", Parent: "Master"},
				{Name: "SFX", Param: "SFXVolume", Parent: "Master"},
				{Name: "Voice", Param: "VoiceVolume", Parent: "Master"},
				{Name: "UI", Param: "UIVolume", Parent: "Master"},
			},
			Volumes: []VolumeConfig{
				{Name: "Master", Category: "Master", Bus: "Master", Param: "MasterVolume", Volume: 1},
				{Name: "Music", Category: "Music", Bus: "Music", Param: "MusicVolume", Volume: 0.5},
				{Name: "SFX", Category: "SFX", Bus: "SFX", Param: "SFXVolume", Volume: 0.5},
				{Name: "Voice", Category: "Voice", Bus: "Voice", Param: "VoiceVolume", Volume: 0.5},
				{Name: "UI", Category: "UI", Bus: "UI", Param: "UIVolume", Volume: 0.5},
			},
			Libraries: []LibraryConfig{
				{
					Name:     "music",
					Category: "Music",
					Clips: []ClipConfig{
						{Name: "Title", Path: "audio/title.ogg", Loop: true},
						{Name: "Minigame", Path: "audio/minigame.ogg", Loop: true},
					},
				},
				{
					Name:     "sfx",
					Category: "SFX",
					Clips: []ClipConfig{
						{Name: "Cut", Path: "audio/cut.wav"},
						{Name: "Paint", Path: "audio/paint.wav", Loop: true},
					},
				},
				{
					Name:      "ambience",
					Category:  "SFX",
					Dedicated: true,
					Clips: []ClipConfig{
						{Name: "Crowd", Path: "audio/crowd.ogg", Loop: true},
					},
				},
				{
					Name:     "ui",
					Category: "UI",
					Clips: []ClipConfig{
						{Name: "Hover", Path: "audio/hover.wav"},
						{Name: "Click", Path: "audio/click.wav"},
					},
				},
			},
			MixerSnapshots: []MixerSnapshotConfig{
				{Name: "Unpaused", Levels: []BusLevel{{Bus: "Music"}, {Bus: "SFX"}}},
				{Name: "Paused", Levels: []BusLevel{{Bus: "Music", DB: -12}, {Bus: "SFX", DB: -80}}},
			},
			Snapshots: []SnapshotConfig{
				{Name: "Gameplay", Targets: []string{"Unpaused"}, Weights: []float64{1}, TransitionTime: 1},
				{Name: "Pause", Targets: []string{"Paused"}, Weights: []float64{1}, TransitionTime: 0.3},
			},
			DefaultSnapshot:     "Gameplay",
			AwakeMusic:          "Title",
			PlayMusicOnStart:    true,
			ApplyVolumesOnStart: true,
		},
		Menu: MenuConfig{
			HoverClip:      "Hover",
			ClickClip:      "Click",
			TrackedClip:    "Paint",
			PauseSnapshot:  "Pause",
			ResumeSnapshot: "Gameplay",
		},
	}
}

// Manager handles configuration loading, saving and watching
type Manager struct {
	configPath string
	v          *viper.Viper
	log        slog.Logger

	mu      sync.RWMutex
	config  *Config
	changes chan *Config
}

// NewManager creates a new configuration manager
func NewManager(configPath string, log slog.Logger) *Manager {
	if log == nil {
		log = slog.Disabled
	}
	v := viper.New()
	v.SetConfigFile(configPath)
	return &Manager{
		configPath: configPath,
		v:          v,
		log:        log,
		config:     DefaultConfig(),
	}
}

// Load loads configuration from file. A missing file is created with defaults.
func (m *Manager) Load() error {
	if _, err := os.Stat(m.configPath); errors.Is(err, os.ErrNotExist) {
		m.log.Infof("Config file %s not found, using defaults", m.configPath)
		return m.Save()
	}

	cfg, err := m.read()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	m.log.Infof("Loaded configuration from %s", m.configPath)
	return nil
}

func (m *Manager) read() (*Config, error) {
	if err := m.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if m.v.IsSet("audio") {
		// authored audio sections replace the example data wholesale
		cfg.Audio = AudioConfig{SampleRate: cfg.Audio.SampleRate}
		if !m.v.IsSet("menu") {
			cfg.Menu = MenuConfig{}
		}
	}
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	return cfg, nil
}

// Save saves configuration to file
func (m *Manager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.log.Infof("Saved configuration to %s", m.configPath)
	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Watch starts watching the config file. Every valid edit is published on
// the returned channel; the game loop drains it so reloads are applied on
// the loop goroutine. Invalid edits are logged and dropped.
func (m *Manager) Watch() <-chan *Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.changes != nil {
		return m.changes
	}
	m.changes = make(chan *Config, 1)

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := m.read()
		if err != nil {
			m.log.Warnf("Ignoring config change: %v", err)
			return
		}

		m.mu.Lock()
		m.config = cfg
		m.mu.Unlock()

		// keep only the newest pending config
		select {
		case <-m.changes:
		default:
		}
		m.changes <- cfg
		m.log.Infof("Reloaded configuration from %s", e.Name)
	})
	m.v.WatchConfig()

	return m.changes
}
