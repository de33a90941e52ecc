package menu

import (
	"fmt"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/widgets"
)

// Region actions
const (
	ActionClip = iota
	ActionPitchDown
	ActionPitchUp
	ActionSpawn
	ActionRelease
	ActionStopAll
	ActionPause
	ActionVolume
	ActionExit
	ActionBack
	ActionSlider
	ActionResume
	ActionConfirm
	ActionCancel
)

// Layout in normalized screen coordinates
const (
	columnTop      = 0.12
	columnSpan     = 0.8
	rowHeightMax   = 0.08
	rowFill        = 0.85
	leftColumn     = 0.05
	leftColumnEnd  = 0.45
	rightColumn    = 0.55
	rightColumnEnd = 0.95
	sliderLeft     = 0.25
	sliderRight    = 0.85
	sliderStep     = 0.05
)

// Region represents an interactive region on screen with normalized coordinates
type Region struct {
	Index  int
	X1, Y1 float64 // Normalized coordinates (0.0-1.0)
	X2, Y2 float64 // Normalized coordinates (0.0-1.0)
	State  int
	Label  string
	Action int

	Clip   *audio.Clip
	Slider *widgets.VolumeSlider

	audio *widgets.ButtonAudio
	tween *widgets.ButtonTween
}

// IsMouseOver checks if the region contains the given normalized coordinates
func (r *Region) IsMouseOver(normX, normY float64) bool {
	return normX >= r.X1 && normX <= r.X2 && normY >= r.Y1 && normY <= r.Y2
}

// SetState safely updates the region state with validation
func (r *Region) SetState(newState int) {
	if newState >= MenuDefault && newState <= MenuSelectedMouse {
		r.State = newState
	}
}

// Hovered reports whether the pointer or the keyboard focus is on the region.
func (r *Region) Hovered() bool {
	return r.State == MenuMouseOver || r.State == MenuSelectedMouse
}

// Scale returns the region's current tween scale.
func (r *Region) Scale() float64 {
	return r.tween.Scale()
}

// SliderValueAt maps a normalized x coordinate onto the slider range.
func (r *Region) SliderValueAt(normX float64) float64 {
	if r.X2 <= r.X1 {
		return 0
	}
	return math.Min(1, math.Max(0, (normX-r.X1)/(r.X2-r.X1)))
}

// String provides a readable representation of the region
func (r *Region) String() string {
	return fmt.Sprintf("Region %d %q: (%.3f,%.3f)-(%.3f,%.3f) State:%d",
		r.Index, r.Label, r.X1, r.Y1, r.X2, r.Y2, r.State)
}

func (m *Manager) newButton(x1, y1, x2, y2 float64, label string, action int) *Region {
	feedback := widgets.NewButtonAudio(m.driver, m.hover, m.click)
	feedback.PreventHoverOnClick = true
	return &Region{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		State:  MenuDefault,
		Label:  label,
		Action: action,
		audio:  feedback,
		tween:  widgets.NewButtonTween(),
	}
}

func (m *Manager) newRegion(x1, y1, x2, y2 float64, label string, action int) *Region {
	r := m.newButton(x1, y1, x2, y2, label, action)
	r.Index = len(m.regions)
	m.regions = append(m.regions, r)
	return r
}

// clearRegions clears all interactive regions
func (m *Manager) clearRegions() {
	m.regions = m.regions[:0]
	m.dlgRegions = [2]*Region{}
	m.dlgActive = false
}

// activeRegions returns the regions currently receiving input.
func (m *Manager) activeRegions() []*Region {
	if m.dlgActive {
		return m.dlgRegions[:]
	}
	return m.regions
}

// processInput handles pointer and keyboard input for the active regions
func (m *Manager) processInput() {
	normX, normY := m.input.GetNormalizedMousePosition(m.screenWidth, m.screenHeight)

	if m.input.IsMouseButtonJustPressed(ebiten.MouseButtonRight) || m.input.IsKeyJustPressed(ebiten.KeyEscape) {
		m.prevState()
		return
	}
	if m.state == MenuSoundTest && m.input.IsKeyJustPressed(ebiten.KeyP) && m.pause != nil {
		m.changeToState(MenuPaused)
		return
	}
	if m.state == MenuSoundTest && m.input.IsKeyJustPressed(ebiten.KeyS) {
		m.activate(&Region{Action: ActionStopAll})
		return
	}

	if m.processKeyboard() {
		return
	}

	leftDown := m.input.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	leftClick := m.input.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	if m.pointerDown && !leftDown {
		for _, region := range m.activeRegions() {
			if region != nil {
				region.tween.PointerUp()
			}
		}
	}
	m.pointerDown = leftDown

	regions := m.activeRegions()
	for i, region := range regions {
		if region == nil || region.State == MenuDisable {
			continue
		}

		if !region.IsMouseOver(normX, normY) {
			if i != m.selected {
				m.handleRegionMouseLeave(region)
			}
			continue
		}

		if m.selected >= 0 && m.selected != i && m.selected < len(regions) && regions[m.selected] != nil {
			// the pointer takes over from the keyboard focus
			m.handleRegionMouseLeave(regions[m.selected])
			m.selected = -1
		}
		m.handleRegionMouseOver(region)
		if region.Slider != nil {
			if leftDown {
				region.Slider.SetValue(region.SliderValueAt(normX))
			} else if wheel := m.input.Wheel(); wheel != 0 {
				region.Slider.SetValue(region.Slider.Value() + math.Copysign(sliderStep, wheel))
			}
		}
		if leftClick {
			// the click may replace the region list
			m.handleRegionClick(region)
			return
		}
	}
}

// processKeyboard moves the keyboard focus and submits the focused region.
// It reports whether the regions were replaced.
func (m *Manager) processKeyboard() bool {
	regions := m.activeRegions()
	switch {
	case m.input.IsKeyJustPressed(ebiten.KeyArrowDown):
		m.moveFocus(regions, 1)
	case m.input.IsKeyJustPressed(ebiten.KeyArrowUp):
		m.moveFocus(regions, -1)
	}

	if m.selected < 0 || m.selected >= len(regions) || regions[m.selected] == nil {
		return false
	}
	focus := regions[m.selected]

	if focus.Slider != nil {
		switch {
		case m.input.IsKeyJustPressed(ebiten.KeyArrowLeft):
			focus.Slider.SetValue(focus.Slider.Value() - sliderStep)
		case m.input.IsKeyJustPressed(ebiten.KeyArrowRight):
			focus.Slider.SetValue(focus.Slider.Value() + sliderStep)
		}
	}

	if m.input.IsKeyJustPressed(ebiten.KeyEnter) || m.input.IsKeyJustPressed(ebiten.KeySpace) {
		focus.audio.Submit()
		focus.tween.PointerDown()
		focus.tween.PointerUp()
		m.activate(focus)
		return true
	}
	return false
}

// moveFocus selects the next enabled region in direction dir.
func (m *Manager) moveFocus(regions []*Region, dir int) {
	n := len(regions)
	if n == 0 {
		return
	}
	i := m.selected
	for range n {
		i = ((i+dir)%n + n) % n
		r := regions[i]
		if r == nil || r.State == MenuDisable {
			continue
		}
		if m.selected >= 0 && m.selected < n && regions[m.selected] != nil {
			m.handleRegionMouseLeave(regions[m.selected])
		}
		m.selected = i
		m.enterRegion(r)
		r.audio.Select()
		return
	}
}

// handleRegionMouseOver handles the pointer entering a region
func (m *Manager) handleRegionMouseOver(region *Region) {
	if m.enterRegion(region) {
		region.audio.PointerEnter()
	}
}

// enterRegion moves region into its hover state and reports whether it
// was not hovered before.
func (m *Manager) enterRegion(region *Region) bool {
	switch region.State {
	case MenuDefault:
		region.SetState(MenuMouseOver)
	case MenuSelected:
		region.SetState(MenuSelectedMouse)
	default:
		return false
	}
	region.tween.PointerEnter()
	return true
}

// handleRegionMouseLeave handles mouse leaving a region
func (m *Manager) handleRegionMouseLeave(region *Region) {
	switch region.State {
	case MenuMouseOver:
		region.SetState(MenuDefault)
	case MenuSelectedMouse:
		region.SetState(MenuSelected)
	default:
		return
	}
	region.tween.PointerExit()
}

// handleRegionClick handles region click events
func (m *Manager) handleRegionClick(region *Region) {
	region.audio.PointerDown()
	region.audio.Select()
	region.tween.PointerDown()
	m.activate(region)
}

// updateRegions advances widget timers and mirrors playback state.
func (m *Manager) updateRegions(dt time.Duration) {
	for _, r := range m.regions {
		r.audio.Update(dt)
		r.tween.Update(dt)
	}
	for _, r := range m.dlgRegions {
		if r != nil {
			r.audio.Update(dt)
			r.tween.Update(dt)
		}
	}
	m.refreshRegions()
}

// refreshRegions marks clip regions whose clip is audible as selected.
func (m *Manager) refreshRegions() {
	for _, r := range m.regions {
		if r.Clip == nil || r.State == MenuDisable {
			continue
		}
		playing := m.driver.IsPlaying(r.Clip)
		hovered := r.Hovered()
		switch {
		case playing && hovered:
			r.State = MenuSelectedMouse
		case playing:
			r.State = MenuSelected
		case hovered:
			r.State = MenuMouseOver
		default:
			r.State = MenuDefault
		}
	}
}

// GetRegions returns the current interactive regions
func (m *Manager) GetRegions() []*Region {
	return m.regions
}

// DialogRegions returns the dialog buttons while a dialog is shown.
func (m *Manager) DialogRegions() []*Region {
	if !m.dlgActive {
		return nil
	}
	return m.dlgRegions[:]
}
