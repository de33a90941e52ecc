package widgets

import (
	"errors"
	"math"

	"github.com/decred/slog"

	"cyclone-engine/internal/audio"
)

// VolumeControl reads and writes category volumes.
type VolumeControl interface {
	GetVolume(category audio.Category) (float64, error)
	SetVolume(category audio.Category, value float64) error
}

// VolumeSlider binds a 0..1 slider to one category volume.
type VolumeSlider struct {
	control  VolumeControl
	log      slog.Logger
	Category audio.Category

	value   float64
	enabled bool

	// OnChange is called after a user change has been forwarded.
	OnChange func(category audio.Category, value float64)
}

// NewVolumeSlider creates a disabled slider; call Init to bind it.
func NewVolumeSlider(control VolumeControl, category audio.Category, log slog.Logger) *VolumeSlider {
	if log == nil {
		log = slog.Disabled
	}
	return &VolumeSlider{control: control, Category: category, log: log}
}

// Init reads the current volume into the slider without notifying. The
// slider stays disabled when the category cannot be read.
func (s *VolumeSlider) Init() error {
	if s.control == nil {
		s.enabled = false
		err := errors.New("no volume control")
		s.log.Warnf("Volume slider %s: %v", s.Category, err)
		return err
	}
	v, err := s.control.GetVolume(s.Category)
	if err != nil {
		s.enabled = false
		s.log.Warnf("Volume slider %s disabled: %v", s.Category, err)
		return err
	}
	s.value = v
	s.enabled = true
	return nil
}

// SetValue applies a user change. Values outside [0, 1] are clamped and
// disabled sliders ignore input.
func (s *VolumeSlider) SetValue(v float64) {
	if !s.enabled || math.IsNaN(v) {
		return
	}
	v = math.Min(1, math.Max(0, v))
	if v == s.value {
		return
	}
	s.value = v
	if err := s.control.SetVolume(s.Category, v); err != nil {
		s.log.Warnf("Volume slider %s: %v", s.Category, err)
		return
	}
	if s.OnChange != nil {
		s.OnChange(s.Category, v)
	}
}

// SetValueWithoutNotify moves the slider without touching the volume.
func (s *VolumeSlider) SetValueWithoutNotify(v float64) {
	s.value = math.Min(1, math.Max(0, v))
}

// Value returns the slider position.
func (s *VolumeSlider) Value() float64 {
	return s.value
}

// Enabled reports whether the slider accepts input.
func (s *VolumeSlider) Enabled() bool {
	return s.enabled
}
