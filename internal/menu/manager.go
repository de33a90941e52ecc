// Package menu implements the sound test screen: a clip browser with
// playback controls, a volume page and pause and exit dialogs, all driving
// the audio driver.
package menu

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/decred/slog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/widgets"
)

// Pitch controls
const (
	PitchStep = 0.25
	MinPitch  = 0.5
	MaxPitch  = 2.0
)

// Input is the per-frame input state the menu reads.
type Input interface {
	GetNormalizedMousePosition(screenWidth, screenHeight int) (float64, float64)
	IsMouseButtonPressed(button ebiten.MouseButton) bool
	IsMouseButtonJustPressed(button ebiten.MouseButton) bool
	IsKeyJustPressed(key ebiten.Key) bool
	Wheel() float64
}

// Catalog resolves clip and snapshot names.
type Catalog interface {
	Clip(name string) (*audio.Clip, bool)
	Snapshot(name string) (*audio.Snapshot, bool)
	ClipNames() []string
}

// Prefs stores volume preferences between runs.
type Prefs interface {
	SetVolume(category audio.Category, v float64)
	Save(filename string) error
}

// Config wires the menu to the rest of the engine.
type Config struct {
	Driver    *audio.Driver
	Catalog   Catalog
	Input     Input
	Prefs     Prefs
	PrefsFile string

	ScreenWidth  int
	ScreenHeight int

	HoverClip      string
	ClickClip      string
	TrackedClip    string
	PauseSnapshot  string
	ResumeSnapshot string

	DebugMode bool
	Logger    slog.Logger
}

// Manager handles menu system and user interface
type Manager struct {
	driver    *audio.Driver
	input     Input
	prefs     Prefs
	prefsFile string
	log       slog.Logger

	screenWidth  int
	screenHeight int

	state       int
	dlgActive   bool
	dlgTitle    string
	selected    int
	pointerDown bool
	paused      bool

	regions    []*Region
	dlgRegions [2]*Region
	sliders    []*widgets.VolumeSlider
	prefsDirty bool

	clips         []*audio.Clip
	hover, click  *audio.Clip
	trackedClip   *audio.Clip
	pause, resume *audio.Snapshot

	pitch   float64
	tracked []audio.InstanceID

	debugMode bool
}

// NewManager creates a new menu manager
func NewManager(cfg Config) *Manager {
	log := cfg.Logger
	if log == nil {
		log = slog.Disabled
	}
	m := &Manager{
		driver:       cfg.Driver,
		input:        cfg.Input,
		prefs:        cfg.Prefs,
		prefsFile:    cfg.PrefsFile,
		log:          log,
		screenWidth:  cfg.ScreenWidth,
		screenHeight: cfg.ScreenHeight,
		state:        MenuInit,
		selected:     -1,
		pitch:        1,
		debugMode:    cfg.DebugMode,
	}

	if cfg.Catalog != nil {
		for _, name := range cfg.Catalog.ClipNames() {
			if clip, ok := cfg.Catalog.Clip(name); ok {
				m.clips = append(m.clips, clip)
			}
		}
		m.hover = m.lookupClip(cfg.Catalog, cfg.HoverClip)
		m.click = m.lookupClip(cfg.Catalog, cfg.ClickClip)
		m.trackedClip = m.lookupClip(cfg.Catalog, cfg.TrackedClip)
		m.pause = m.lookupSnapshot(cfg.Catalog, cfg.PauseSnapshot)
		m.resume = m.lookupSnapshot(cfg.Catalog, cfg.ResumeSnapshot)
	}
	return m
}

func (m *Manager) lookupClip(c Catalog, name string) *audio.Clip {
	if name == "" {
		return nil
	}
	clip, ok := c.Clip(name)
	if !ok {
		m.log.Warnf("Menu clip %q not found", name)
	}
	return clip
}

func (m *Manager) lookupSnapshot(c Catalog, name string) *audio.Snapshot {
	if name == "" {
		return nil
	}
	s, ok := c.Snapshot(name)
	if !ok {
		m.log.Warnf("Menu snapshot %q not found", name)
	}
	return s
}

// Init initializes the menu system
func (m *Manager) Init() error {
	if m.driver == nil {
		return fmt.Errorf("%w: menu has no audio driver", audio.ErrConfiguration)
	}
	if m.input == nil {
		return fmt.Errorf("%w: menu has no input", audio.ErrConfiguration)
	}
	m.nextMenuState()
	m.log.Infof("Menu initialized with %d clips", len(m.clips))
	return nil
}

// Update processes input and advances widget animations by dt.
func (m *Manager) Update(dt time.Duration) error {
	if m.state == MenuInit || m.state == MenuExit {
		return nil
	}
	m.processInput()
	m.updateRegions(dt)
	return nil
}

// activate runs a region's action.
func (m *Manager) activate(region *Region) {
	switch region.Action {
	case ActionClip:
		m.toggleClip(region.Clip)
	case ActionPitchDown:
		m.setPitch(m.pitch - PitchStep)
	case ActionPitchUp:
		m.setPitch(m.pitch + PitchStep)
	case ActionSpawn:
		m.spawnTracked()
	case ActionRelease:
		m.releaseTracked()
	case ActionStopAll:
		m.driver.StopAll()
		m.tracked = m.tracked[:0]
	case ActionPause:
		m.changeToState(MenuPaused)
	case ActionVolume:
		m.changeToState(MenuVolume)
	case ActionExit:
		m.changeToState(MenuExitDlg)
	case ActionBack, ActionResume, ActionCancel:
		m.prevState()
	case ActionConfirm:
		m.changeToState(MenuExit)
	}
	m.refreshRegions()
}

func (m *Manager) toggleClip(clip *audio.Clip) {
	if clip == nil {
		return
	}
	if m.driver.IsPlaying(clip) {
		m.driver.Stop(clip)
		return
	}
	// channels keep the pitch of their last clip
	m.driver.Play(clip)
	m.driver.SetPitch(clip, m.pitch)
}

// setPitch applies p to every audible clip and tracked instance.
func (m *Manager) setPitch(p float64) {
	p = math.Min(MaxPitch, math.Max(MinPitch, p))
	if p == m.pitch {
		return
	}
	m.pitch = p
	for _, clip := range m.clips {
		if m.driver.IsPlaying(clip) {
			m.driver.SetPitch(clip, p)
		}
	}
	for _, id := range m.tracked {
		m.driver.SetPitchTracked(id, p)
	}
	m.log.Debugf("Pitch set to %.2f", p)
}

func (m *Manager) spawnTracked() {
	id := m.driver.PlayTracked(m.trackedClip)
	if id == audio.InvalidInstance {
		return
	}
	if m.pitch != 1 {
		m.driver.SetPitchTracked(id, m.pitch)
	}
	m.tracked = append(m.tracked, id)
}

func (m *Manager) releaseTracked() {
	if len(m.tracked) == 0 {
		return
	}
	last := len(m.tracked) - 1
	m.driver.StopTracked(m.tracked[last])
	m.tracked = m.tracked[:last]
}

// GetState returns the current menu state
func (m *Manager) GetState() int {
	return m.state
}

// InDialog returns whether a dialog is active
func (m *Manager) InDialog() bool {
	return m.dlgActive
}

// Exiting reports whether the user confirmed quitting.
func (m *Manager) Exiting() bool {
	return m.state == MenuExit
}

// Paused reports whether the pause snapshot is applied.
func (m *Manager) Paused() bool {
	return m.paused
}

// Pitch returns the pitch applied to new and audible sounds.
func (m *Manager) Pitch() float64 {
	return m.pitch
}

// Tracked returns the live tracked instance ids, oldest first.
func (m *Manager) Tracked() []audio.InstanceID {
	return m.tracked
}

// Sliders returns the volume page sliders.
func (m *Manager) Sliders() []*widgets.VolumeSlider {
	if m.state != MenuVolume {
		return nil
	}
	return m.sliders
}

// Region colors
var (
	colorDefault  = color.RGBA{50, 60, 90, 255}
	colorHover    = color.RGBA{80, 100, 150, 255}
	colorSelected = color.RGBA{60, 130, 80, 255}
	colorDisabled = color.RGBA{45, 45, 45, 255}
	colorSlider   = color.RGBA{200, 170, 60, 255}
	colorDim      = color.RGBA{0, 0, 0, 160}
	colorBorder   = color.RGBA{220, 220, 220, 255}
)

// Draw renders the menu system
func (m *Manager) Draw(screen *ebiten.Image) {
	for _, r := range m.regions {
		m.drawRegion(screen, r)
	}

	if m.dlgActive {
		w, h := float32(m.screenWidth), float32(m.screenHeight)
		vector.DrawFilledRect(screen, 0, 0, w, h, colorDim, false)
		ebitenutil.DebugPrintAt(screen, m.dlgTitle, int(0.3*float64(m.screenWidth)), int(0.44*float64(m.screenHeight)))
		for _, r := range m.dlgRegions {
			if r != nil {
				m.drawRegion(screen, r)
			}
		}
	}

	if m.debugMode {
		debugText := fmt.Sprintf("Menu State: %s  Pitch: %.2f  Tracked: %d",
			GetStateInfo(m.state).Name, m.pitch, m.driver.TrackedCount())
		ebitenutil.DebugPrintAt(screen, debugText, 10, 30)
	}
}

func (m *Manager) drawRegion(screen *ebiten.Image, r *Region) {
	sw, sh := float64(m.screenWidth), float64(m.screenHeight)
	w := (r.X2 - r.X1) * sw
	h := (r.Y2 - r.Y1) * sh
	scale := r.Scale()
	x := r.X1*sw + w*(1-scale)/2
	y := r.Y1*sh + h*(1-scale)/2
	w, h = w*scale, h*scale

	fill := colorDefault
	switch r.State {
	case MenuMouseOver:
		fill = colorHover
	case MenuSelected, MenuSelectedMouse:
		fill = colorSelected
	case MenuDisable:
		fill = colorDisabled
	}
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), fill, false)

	label := r.Label
	if r.Slider != nil {
		vector.DrawFilledRect(screen, float32(x), float32(y), float32(w*r.Slider.Value()), float32(h), colorSlider, false)
		label = fmt.Sprintf("%s %3.0f%%", r.Label, r.Slider.Value()*100)
	}
	if r.Hovered() {
		vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 1, colorBorder, false)
	}
	ebitenutil.DebugPrintAt(screen, label, int(x)+6, int(y+h/2)-8)
}
