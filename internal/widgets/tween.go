package widgets

import "time"

// Default tween parameters
const (
	HoverScale        = 1.1
	ClickScale        = 0.95
	TweenDuration     = 200 * time.Millisecond
	backOvershoot     = 1.70158
	backOvershootPlus = backOvershoot + 1
)

// Ease maps normalized time to normalized progress.
type Ease func(t float64) float64

// EaseOutQuad decelerates to the target.
func EaseOutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// EaseOutBack overshoots slightly before settling.
func EaseOutBack(t float64) float64 {
	u := t - 1
	return 1 + backOvershootPlus*u*u*u + backOvershoot*u*u
}

// ButtonTween animates a button's scale in response to pointer and
// selection events.
type ButtonTween struct {
	Duration time.Duration

	hovering bool
	from     float64
	to       float64
	elapsed  time.Duration
	ease     Ease
	scale    float64
}

// NewButtonTween creates a tween at rest scale.
func NewButtonTween() *ButtonTween {
	return &ButtonTween{Duration: TweenDuration, from: 1, to: 1, scale: 1, ease: EaseOutQuad}
}

func (t *ButtonTween) animate(target float64, ease Ease) {
	t.from = t.scale
	t.to = target
	t.elapsed = 0
	t.ease = ease
}

// PointerEnter grows the button.
func (t *ButtonTween) PointerEnter() {
	t.hovering = true
	t.animate(HoverScale, EaseOutBack)
}

// PointerExit returns the button to rest.
func (t *ButtonTween) PointerExit() {
	t.hovering = false
	t.animate(1, EaseOutQuad)
}

// PointerDown squashes the button.
func (t *ButtonTween) PointerDown() {
	t.animate(ClickScale, EaseOutQuad)
}

// PointerUp returns to hover or rest scale.
func (t *ButtonTween) PointerUp() {
	if t.hovering {
		t.animate(HoverScale, EaseOutBack)
		return
	}
	t.animate(1, EaseOutBack)
}

// Reset snaps back to rest scale.
func (t *ButtonTween) Reset() {
	t.hovering = false
	t.from, t.to, t.scale = 1, 1, 1
	t.elapsed = t.Duration
}

// Update advances the animation.
func (t *ButtonTween) Update(dt time.Duration) {
	if t.elapsed >= t.Duration {
		t.scale = t.to
		return
	}
	t.elapsed += dt
	k := 1.0
	if t.Duration > 0 && t.elapsed < t.Duration {
		k = float64(t.elapsed) / float64(t.Duration)
	}
	t.scale = t.from + (t.to-t.from)*t.ease(k)
}

// Scale returns the current scale factor.
func (t *ButtonTween) Scale() float64 {
	return t.scale
}
