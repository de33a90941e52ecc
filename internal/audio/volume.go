package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/decred/slog"
)

// VolumeMemory holds the per-category volume configuration and pushes it to
// the mixer.
type VolumeMemory struct {
	mixer  Mixer
	params []VolumeParam
	lookup map[Category]int
	log    slog.Logger
}

// NewVolumeMemory builds the category lookup from params. The first param for
// a category wins; later duplicates are dropped with a warning. Stored
// volumes are clamped so the bounds hold from the start.
func NewVolumeMemory(mixer Mixer, params []VolumeParam, log slog.Logger) *VolumeMemory {
	if log == nil {
		log = slog.Disabled
	}

	m := &VolumeMemory{
		mixer:  mixer,
		params: make([]VolumeParam, 0, len(params)),
		lookup: make(map[Category]int, len(params)),
		log:    log,
	}

	for _, p := range params {
		if !p.Category.Valid() {
			log.Warnf("Skipping volume param %q: invalid category %v", p.Name, p.Category)
			continue
		}
		if _, exists := m.lookup[p.Category]; exists {
			log.Warnf("Duplicate volume param %q for category %s ignored", p.Name, p.Category)
			continue
		}
		p.Volume = ClampVolume(p.Volume)
		m.lookup[p.Category] = len(m.params)
		m.params = append(m.params, p)
	}

	return m
}

// SetVolume clamps value, stores it and writes the matching gain to the mixer.
func (m *VolumeMemory) SetVolume(category Category, value float64) error {
	idx, ok := m.lookup[category]
	if !ok {
		return fmt.Errorf("%w: category %s is not configured", ErrConfiguration, category)
	}
	if m.mixer == nil {
		return fmt.Errorf("%w: no mixer attached", ErrConfiguration)
	}

	p := &m.params[idx]
	p.Volume = ClampVolume(value)

	if err := m.mixer.SetParam(p.Param, p.Gain()); err != nil {
		return fmt.Errorf("%w: parameter %q for %s: %w", ErrBackend, p.Param, category, err)
	}

	m.log.Debugf("%s volume set to: %.4f (%.2f dB)", category, p.Volume, p.Gain())
	return nil
}

// GetVolume returns the stored linear volume for category.
func (m *VolumeMemory) GetVolume(category Category) (float64, error) {
	idx, ok := m.lookup[category]
	if !ok {
		return 0, fmt.Errorf("%w: category %s is not configured", ErrConfiguration, category)
	}
	return m.params[idx].Volume, nil
}

// Gain returns the decibel value currently stored for category.
func (m *VolumeMemory) Gain(category Category) (float64, error) {
	idx, ok := m.lookup[category]
	if !ok {
		return 0, fmt.Errorf("%w: category %s is not configured", ErrConfiguration, category)
	}
	return m.params[idx].Gain(), nil
}

// Param returns the configuration for category.
func (m *VolumeMemory) Param(category Category) (VolumeParam, bool) {
	idx, ok := m.lookup[category]
	if !ok {
		return VolumeParam{}, false
	}
	return m.params[idx], true
}

// Params returns a copy of the configured params in authoring order.
func (m *VolumeMemory) Params() []VolumeParam {
	out := make([]VolumeParam, len(m.params))
	copy(out, m.params)
	return out
}

// ApplyAllToMixer pushes every stored gain. A failing parameter is logged and
// reported but does not stop the others.
func (m *VolumeMemory) ApplyAllToMixer() []Outcome {
	outcomes := make([]Outcome, 0, len(m.params))
	for _, p := range m.params {
		o := Outcome{Item: p.Param}
		switch {
		case m.mixer == nil:
			o.Err = fmt.Errorf("%w: no mixer attached", ErrConfiguration)
		default:
			if err := m.mixer.SetParam(p.Param, p.Gain()); err != nil {
				o.Err = fmt.Errorf("%w: parameter %q: %w", ErrBackend, p.Param, err)
			}
		}
		if o.Err != nil {
			m.log.Warnf("Could not apply volume to %q. Is it exposed? %v", p.Param, o.Err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// TransitionToSnapshots validates the request and forwards it to the mixer.
func (m *VolumeMemory) TransitionToSnapshots(targets []string, weights []float64, d time.Duration) error {
	if m.mixer == nil {
		return fmt.Errorf("%w: no mixer attached", ErrConfiguration)
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: no snapshot targets", ErrValidation)
	}
	if len(targets) != len(weights) {
		return fmt.Errorf("%w: %d targets but %d weights", ErrValidation, len(targets), len(weights))
	}
	for i, t := range targets {
		if t == "" {
			return fmt.Errorf("%w: target %d has no name", ErrValidation, i)
		}
		if w := weights[i]; math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("%w: weight %v for %q outside [0,1]", ErrValidation, w, t)
		}
	}
	if d < 0 {
		return fmt.Errorf("%w: negative transition time %s", ErrValidation, d)
	}

	if err := m.mixer.TransitionToSnapshots(targets, weights, d); err != nil {
		return fmt.Errorf("%w: transition to %v: %w", ErrBackend, targets, err)
	}
	return nil
}
