// Package input samples keyboard and pointer state once per tick so the
// menu sees a consistent frame.
package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Pointer buttons the menu reacts to.
var buttons = [...]ebiten.MouseButton{ebiten.MouseButtonLeft, ebiten.MouseButtonRight}

// Keys the sound test binds: navigation, activation, pause and stop all.
var watchedKeys = []ebiten.Key{
	ebiten.KeyEscape,
	ebiten.KeyEnter,
	ebiten.KeySpace,
	ebiten.KeyArrowUp,
	ebiten.KeyArrowDown,
	ebiten.KeyArrowLeft,
	ebiten.KeyArrowRight,
	ebiten.KeyP,
	ebiten.KeyS,
}

// Frame is the pointer as sampled by one Update. Index 0 of the button
// arrays is the left button, 1 the right.
type Frame struct {
	X, Y    int
	Down    [len(buttons)]bool
	Pressed [len(buttons)]bool
	Wheel   float64
}

// Manager keeps the current and previous input frames.
type Manager struct {
	cur, prev   Frame
	down, wasUp map[ebiten.Key]bool
}

// NewManager creates an input sampler with nothing pressed.
func NewManager() *Manager {
	return &Manager{
		down:  make(map[ebiten.Key]bool, len(watchedKeys)),
		wasUp: make(map[ebiten.Key]bool, len(watchedKeys)),
	}
}

// Update samples ebiten; call it once per tick before reading.
func (m *Manager) Update() {
	m.prev = m.cur

	f := Frame{}
	f.X, f.Y = ebiten.CursorPosition()
	for i, b := range buttons {
		f.Down[i] = ebiten.IsMouseButtonPressed(b)
		f.Pressed[i] = inpututil.IsMouseButtonJustPressed(b)
	}
	_, f.Wheel = ebiten.Wheel()
	m.cur = f

	for _, k := range watchedKeys {
		m.wasUp[k] = !m.down[k]
		m.down[k] = ebiten.IsKeyPressed(k)
	}
}

func buttonIndex(b ebiten.MouseButton) int {
	for i, known := range buttons {
		if known == b {
			return i
		}
	}
	return -1
}

// IsMouseButtonPressed reports whether b is held.
func (m *Manager) IsMouseButtonPressed(b ebiten.MouseButton) bool {
	i := buttonIndex(b)
	return i >= 0 && m.cur.Down[i]
}

// IsMouseButtonJustPressed reports whether b went down this tick.
func (m *Manager) IsMouseButtonJustPressed(b ebiten.MouseButton) bool {
	i := buttonIndex(b)
	return i >= 0 && m.cur.Pressed[i]
}

// IsMouseButtonJustReleased reports whether b went up this tick.
func (m *Manager) IsMouseButtonJustReleased(b ebiten.MouseButton) bool {
	i := buttonIndex(b)
	return i >= 0 && m.prev.Down[i] && !m.cur.Down[i]
}

// Wheel is the vertical scroll of this tick.
func (m *Manager) Wheel() float64 {
	return m.cur.Wheel
}

func (m *Manager) IsKeyPressed(key ebiten.Key) bool {
	return m.down[key]
}

// IsKeyJustPressed reports a key that is down now and was up last tick.
// Keys outside the bound set always report false.
func (m *Manager) IsKeyJustPressed(key ebiten.Key) bool {
	return m.down[key] && m.wasUp[key]
}

// Pointer returns the current frame.
func (m *Manager) Pointer() Frame {
	return m.cur
}

// GetNormalizedMousePosition maps the cursor into [0,1] screen space.
func (m *Manager) GetNormalizedMousePosition(screenWidth, screenHeight int) (float64, float64) {
	if screenWidth <= 0 || screenHeight <= 0 {
		return 0, 0
	}
	return unit(m.cur.X, screenWidth), unit(m.cur.Y, screenHeight)
}

func unit(v, size int) float64 {
	return min(1, max(0, float64(v)/float64(size)))
}
