// Package widgets holds the audio-aware pieces of menu controls: button
// feedback sounds, volume sliders bound to a category and scale tweens.
package widgets

import (
	"time"

	"cyclone-engine/internal/audio"
)

// ClickHoverWindow is how long after a click a selection counts as part of
// that click.
const ClickHoverWindow = 100 * time.Millisecond

// OneShotPlayer plays fire-and-forget feedback sounds.
type OneShotPlayer interface {
	PlayOneShot(clip *audio.Clip)
}

// ButtonAudio plays hover and click feedback for one button.
type ButtonAudio struct {
	player OneShotPlayer

	Hover *audio.Clip
	Click *audio.Clip

	// PreventHoverOnClick skips the hover sound when the selection was
	// caused by a click. Off by default.
	PreventHoverOnClick bool

	sinceClick time.Duration
	clicked    bool
}

// NewButtonAudio creates button feedback playing through player.
func NewButtonAudio(player OneShotPlayer, hover, click *audio.Clip) *ButtonAudio {
	return &ButtonAudio{player: player, Hover: hover, Click: click}
}

// Update advances the click window.
func (b *ButtonAudio) Update(dt time.Duration) {
	if !b.clicked {
		return
	}
	b.sinceClick += dt
	if b.sinceClick >= ClickHoverWindow {
		b.clicked = false
	}
}

// PointerEnter plays the hover sound.
func (b *ButtonAudio) PointerEnter() {
	b.play(b.Hover)
}

// PointerDown plays the click sound and opens the click window.
func (b *ButtonAudio) PointerDown() {
	b.clicked = true
	b.sinceClick = 0
	b.play(b.Click)
}

// Select plays the hover sound unless the selection came from a click.
func (b *ButtonAudio) Select() {
	if b.PreventHoverOnClick && b.clicked {
		return
	}
	b.play(b.Hover)
}

// Submit plays the click sound.
func (b *ButtonAudio) Submit() {
	b.play(b.Click)
}

// JustClicked reports whether the click window is open.
func (b *ButtonAudio) JustClicked() bool {
	return b.clicked
}

func (b *ButtonAudio) play(clip *audio.Clip) {
	if clip == nil || b.player == nil {
		return
	}
	b.player.PlayOneShot(clip)
}
