// Package engine is the composition root: it wires settings, assets, the
// audio stack, cue scripts and the sound test menu into an ebiten game.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/decred/slog"
	"github.com/hajimehoshi/ebiten/v2"
	eaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/catalog"
	"cyclone-engine/internal/filesystem"
	"cyclone-engine/internal/graphics"
	"cyclone-engine/internal/input"
	"cyclone-engine/internal/logging"
	"cyclone-engine/internal/menu"
	"cyclone-engine/internal/mixer"
	"cyclone-engine/internal/script"
	"cyclone-engine/internal/settings"
)

// pauseFade is the overlay opacity while the pause snapshot is applied.
const pauseFade = 0.45

// cueCompileTimeout bounds how long a start-up cue script may run.
const cueCompileTimeout = 5 * time.Second

// Options configure a game run.
type Options struct {
	ConfigPath string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// CuePath, when set, names a Lua cue script played after start up.
	CuePath   string
	LogWriter io.Writer
}

// Game represents the main game engine
type Game struct {
	opts Options
	logs *logging.Loggers
	log  slog.Logger

	settings *settings.Manager
	config   *settings.Config
	changes  <-chan *settings.Config

	assets   *filesystem.Manager
	userData *filesystem.Manager
	prefs    *settings.INIManager

	loader  *mixer.Loader
	catalog *catalog.Catalog
	mixer   *mixer.Mixer
	driver  *audio.Driver
	script  *script.Engine

	graphics *graphics.Renderer
	input    *input.Manager
	menu     *menu.Manager

	screenWidth  int
	screenHeight int
	wasPaused    bool

	initialized bool
}

// NewGame creates a new game instance
func NewGame(opts Options) *Game {
	logs := logging.New(opts.LogWriter, opts.LogLevel)
	return &Game{
		opts:         opts,
		logs:         logs,
		log:          logs.Logger(logging.Engine),
		screenWidth:  800,
		screenHeight: 600,
	}
}

// Init initializes all game subsystems
func (g *Game) Init() error {
	g.settings = settings.NewManager(g.opts.ConfigPath, g.logs.Logger(logging.Settings))
	if err := g.settings.Load(); err != nil {
		g.log.Warnf("Failed to load settings, using defaults: %v", err)
	}
	g.config = g.settings.GetConfig()
	if g.opts.LogLevel == "" {
		g.logs.SetLevel(g.config.LogLevel)
	}
	g.screenWidth = g.config.Window.Width
	g.screenHeight = g.config.Window.Height
	g.changes = g.settings.Watch()

	g.assets = filesystem.NewManager(g.config.AssetsPath, g.log)
	if err := g.assets.Init(); err != nil {
		return fmt.Errorf("failed to initialize filesystem: %w", err)
	}
	for _, dir := range g.config.Overlays {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			g.log.Warnf("Skipping asset overlay %s: not a directory", dir)
			continue
		}
		g.assets.Mount(dir, os.DirFS(dir))
	}
	g.userData = filesystem.NewManager(".", g.log)
	g.prefs = settings.NewINIManager(g.userData, g.logs.Logger(logging.Settings))
	if err := g.prefs.Load(g.config.PrefsFile); err != nil {
		g.log.Debugf("No volume preferences loaded: %v", err)
	}

	if err := g.initAudio(); err != nil {
		return err
	}

	g.script = script.NewEngine(g.driver, g.logs.Logger(logging.Script))
	if g.opts.CuePath != "" {
		events, err := compileCue(g.opts.CuePath, g.catalog, cueCompileTimeout)
		if err != nil {
			return fmt.Errorf("failed to compile cue: %w", err)
		}
		g.script.Load(g.opts.CuePath, events)
		g.script.Start()
	}

	g.graphics = graphics.NewRenderer(g.screenWidth, g.screenHeight, graphics.NewTextureCache(g.assets), g.log)
	if err := g.graphics.Init(); err != nil {
		return fmt.Errorf("failed to initialize graphics: %w", err)
	}
	g.graphics.LoadTexture("ui/background", graphics.LayerBG)

	g.input = input.NewManager()

	mc := g.config.Menu
	g.menu = menu.NewManager(menu.Config{
		Driver:         g.driver,
		Catalog:        g.catalog,
		Input:          g.input,
		Prefs:          g.prefs,
		PrefsFile:      g.config.PrefsFile,
		ScreenWidth:    g.screenWidth,
		ScreenHeight:   g.screenHeight,
		HoverClip:      mc.HoverClip,
		ClickClip:      mc.ClickClip,
		TrackedClip:    mc.TrackedClip,
		PauseSnapshot:  mc.PauseSnapshot,
		ResumeSnapshot: mc.ResumeSnapshot,
		DebugMode:      g.config.DebugMode,
		Logger:         g.logs.Logger(logging.Menu),
	})
	if err := g.menu.Init(); err != nil {
		return fmt.Errorf("failed to initialize menu: %w", err)
	}

	g.initialized = true
	g.log.Info("Game engine initialized successfully")
	return nil
}

// compileCue compiles a cue file, giving up after timeout.
func compileCue(path string, c script.Catalog, timeout time.Duration) ([]*script.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return script.CompileFile(ctx, path, c)
}

// initAudio builds the catalog, mixer and driver and starts playback.
func (g *Game) initAudio() error {
	audioLog := g.logs.Logger(logging.Audio)
	mixerLog := g.logs.Logger(logging.Mixer)

	ctx := eaudio.NewContext(g.config.Audio.SampleRate)
	g.loader = mixer.NewLoader(g.assets, ctx.SampleRate(), mixerLog)

	c, err := catalog.Build(g.config.Audio, g.loader, audioLog)
	if err != nil {
		return fmt.Errorf("failed to build audio catalog: %w", err)
	}
	c.ApplyPrefs(g.prefs.Volumes())
	g.catalog = c

	g.mixer, err = mixer.New(ctx, c.MixerConfig(mixerLog))
	if err != nil {
		return fmt.Errorf("failed to create mixer: %w", err)
	}

	g.driver = audio.New(c.DriverConfig(g.mixer, audioLog))
	report, err := g.driver.Init()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	for _, o := range append(audio.Failed(c.Loads), report.Failed()...) {
		audioLog.Warnf("%s: %v", o.Item, o.Err)
	}
	g.driver.Start()

	audioLog.Infof("Audio ready: %d clips, %d dedicated channels, %.1f MiB decoded",
		len(c.ClipNames()), report.DedicatedChannels, float64(g.loader.MemoryUsage())/(1<<20))
	return nil
}

// Update updates the game logic
func (g *Game) Update() error {
	if !g.initialized {
		return nil
	}
	dt := time.Second / time.Duration(ebiten.TPS())

	g.drainConfigChanges()
	g.input.Update()

	if err := g.menu.Update(dt); err != nil {
		return err
	}
	if g.menu.Exiting() {
		return ebiten.Termination
	}

	g.script.Update(dt)
	g.mixer.Update(dt)

	if paused := g.menu.Paused(); paused != g.wasPaused {
		g.wasPaused = paused
		target := 0.0
		if paused {
			target = pauseFade
		}
		g.graphics.FadeTo(target, g.pauseTransition(), false)
	}
	g.graphics.Update(dt)
	return nil
}

func (g *Game) pauseTransition() time.Duration {
	if s, ok := g.catalog.Snapshot(g.config.Menu.PauseSnapshot); ok {
		return s.TransitionTime
	}
	return audio.DefaultTransitionTime
}

// drainConfigChanges applies config edits published by the watcher.
func (g *Game) drainConfigChanges() {
	for {
		select {
		case cfg := <-g.changes:
			g.applyConfig(cfg)
		default:
			return
		}
	}
}

func (g *Game) applyConfig(cfg *settings.Config) {
	if g.opts.LogLevel == "" {
		g.logs.SetLevel(cfg.LogLevel)
	}
	for _, o := range ReloadVolumes(g.driver, cfg.Audio, g.prefs.Volumes()) {
		if !o.OK() {
			g.log.Warnf("Reload %s: %v", o.Item, o.Err)
		}
	}
	g.config = cfg
	g.log.Info("Applied configuration change; library and bus edits take effect on restart")
}

// Draw renders the game
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0, 0, 0, 255})
	if !g.initialized {
		ebitenutil.DebugPrint(screen, "Initializing...")
		return
	}

	g.graphics.Draw(screen)
	g.menu.Draw(screen)

	if g.config.DebugMode {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.2f  Channels: %d", ebiten.ActualFPS(), len(g.mixer.ChannelNames())))
	}
}

// Layout returns the game's screen size
func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return g.screenWidth, g.screenHeight
}

// Run starts the game
func (g *Game) Run() error {
	if err := g.Init(); err != nil {
		return err
	}
	defer g.Shutdown()

	ebiten.SetWindowSize(g.screenWidth, g.screenHeight)
	ebiten.SetWindowTitle(g.config.Window.Title)
	ebiten.SetWindowResizable(false)
	ebiten.SetFullscreen(g.config.Window.Fullscreen)
	ebiten.SetVsyncEnabled(g.config.Window.VSync)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// Shutdown stops playback and releases audio resources.
func (g *Game) Shutdown() {
	if g.driver != nil {
		g.driver.Shutdown()
	}
	if g.mixer != nil {
		g.mixer.Close()
	}
	if g.loader != nil {
		g.loader.Flush()
	}
	g.log.Info("Game engine shut down")
}
