package graphics

import (
	"image/color"
	"time"

	"github.com/decred/slog"
	"github.com/hajimehoshi/ebiten/v2"
)

// Layer constants, drawn back to front
const (
	LayerBG = iota
	LayerBGOverlay
	LayerMenu
	LayerOverlay
	LayersCount
)

// LayerState represents the state of a layer
type LayerState struct {
	Visible bool
	Alpha   float64
	X, Y    int
	ScaleX  float64
	ScaleY  float64
}

// Fade animates the full screen fade overlay toward a target alpha.
type Fade struct {
	from, to float64
	elapsed  time.Duration
	duration time.Duration
	alpha    float64
}

// Start begins fading to target over d. A non-positive d jumps there.
func (f *Fade) Start(target float64, d time.Duration) {
	target = min(1, max(0, target))
	f.from = f.alpha
	f.to = target
	f.elapsed = 0
	f.duration = d
	if d <= 0 {
		f.alpha = target
	}
}

// Update advances the fade by dt.
func (f *Fade) Update(dt time.Duration) {
	if f.duration <= 0 || f.elapsed >= f.duration {
		f.alpha = f.to
		return
	}
	f.elapsed += dt
	k := min(1, float64(f.elapsed)/float64(f.duration))
	f.alpha = f.from + (f.to-f.from)*k
}

// Alpha returns the current overlay opacity.
func (f *Fade) Alpha() float64 {
	return f.alpha
}

// Active reports whether the fade is still moving.
func (f *Fade) Active() bool {
	return f.alpha != f.to
}

// Renderer handles all 2D graphics rendering using Ebiten
type Renderer struct {
	screenWidth  int
	screenHeight int
	textures     *TextureCache
	log          slog.Logger

	layers      [LayersCount]*ebiten.Image
	layerStates [LayersCount]LayerState

	fade        Fade
	fadeToWhite bool

	blackTexture *ebiten.Image
	whiteTexture *ebiten.Image
}

// NewRenderer creates a new graphics renderer
func NewRenderer(width, height int, textures *TextureCache, log slog.Logger) *Renderer {
	if log == nil {
		log = slog.Disabled
	}
	return &Renderer{
		screenWidth:  width,
		screenHeight: height,
		textures:     textures,
		log:          log,
	}
}

// Init initializes the graphics renderer
func (r *Renderer) Init() error {
	for i := range r.layerStates {
		r.layerStates[i] = LayerState{Alpha: 1, ScaleX: 1, ScaleY: 1}
	}

	r.blackTexture = ebiten.NewImage(r.screenWidth, r.screenHeight)
	r.blackTexture.Fill(color.RGBA{0, 0, 0, 255})
	r.whiteTexture = ebiten.NewImage(r.screenWidth, r.screenHeight)
	r.whiteTexture.Fill(color.RGBA{255, 255, 255, 255})

	r.log.Debug("Graphics renderer initialized")
	return nil
}

// LoadTexture loads a texture into the specified layer. Missing files get a
// colored placeholder so the screen stays usable without assets.
func (r *Renderer) LoadTexture(filename string, layer int) {
	if layer < 0 || layer >= LayersCount {
		return
	}

	img, err := r.textures.LoadTexture(filename)
	if err != nil {
		r.log.Debugf("Using placeholder for %s: %v", filename, err)
		img = r.placeholder(layer)
	}
	r.layers[layer] = img
	r.layerStates[layer].Visible = true
}

func (r *Renderer) placeholder(layer int) *ebiten.Image {
	img := ebiten.NewImage(r.screenWidth, r.screenHeight)
	switch layer {
	case LayerBG:
		img.Fill(color.RGBA{20, 24, 40, 255})
	case LayerMenu:
		img.Fill(color.RGBA{30, 50, 30, 255})
	default:
		img.Fill(color.RGBA{80, 80, 80, 255})
	}
	return img
}

// UnloadTexture removes a texture from the specified layer
func (r *Renderer) UnloadTexture(layer int) {
	if layer < 0 || layer >= LayersCount {
		return
	}
	r.layers[layer] = nil
	r.layerStates[layer].Visible = false
}

// SetLayerVisible sets the visibility of a layer
func (r *Renderer) SetLayerVisible(layer int, visible bool) {
	if layer < 0 || layer >= LayersCount {
		return
	}
	r.layerStates[layer].Visible = visible
}

// SetLayerAlpha sets the alpha transparency of a layer
func (r *Renderer) SetLayerAlpha(layer int, alpha float64) {
	if layer < 0 || layer >= LayersCount {
		return
	}
	r.layerStates[layer].Alpha = min(1, max(0, alpha))
}

// FadeTo starts fading the screen overlay to alpha over d.
func (r *Renderer) FadeTo(alpha float64, d time.Duration, toWhite bool) {
	r.fadeToWhite = toWhite
	r.fade.Start(alpha, d)
}

// Update advances animations.
func (r *Renderer) Update(dt time.Duration) {
	r.fade.Update(dt)
}

// Draw renders all layers to the screen
func (r *Renderer) Draw(screen *ebiten.Image) {
	for i := range LayersCount {
		if r.layers[i] != nil && r.layerStates[i].Visible {
			r.drawLayer(screen, i)
		}
	}

	if alpha := r.fade.Alpha(); alpha > 0 {
		tex := r.blackTexture
		if r.fadeToWhite {
			tex = r.whiteTexture
		}
		opts := &ebiten.DrawImageOptions{}
		opts.ColorScale.ScaleAlpha(float32(alpha))
		screen.DrawImage(tex, opts)
	}
}

// drawLayer draws a single layer
func (r *Renderer) drawLayer(screen *ebiten.Image, layer int) {
	state := &r.layerStates[layer]
	opts := &ebiten.DrawImageOptions{}
	opts.ColorScale.ScaleAlpha(float32(state.Alpha))
	if state.ScaleX != 1.0 || state.ScaleY != 1.0 {
		opts.GeoM.Scale(state.ScaleX, state.ScaleY)
	}
	opts.GeoM.Translate(float64(state.X), float64(state.Y))
	screen.DrawImage(r.layers[layer], opts)
}

// GetScreenSize returns the screen dimensions
func (r *Renderer) GetScreenSize() (int, int) {
	return r.screenWidth, r.screenHeight
}
