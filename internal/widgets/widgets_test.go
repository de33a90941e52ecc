package widgets

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/audio/audiotest"
	"cyclone-engine/internal/catalog"
	"cyclone-engine/internal/settings"
)

type soundLoader struct{}

func (soundLoader) Load(path string) (audio.Sound, error) {
	return audiotest.NewSound(path), nil
}

func newDriver(t *testing.T) (*catalog.Catalog, *audiotest.Backend, *audio.Driver) {
	t.Helper()
	c, err := catalog.Build(settings.DefaultConfig().Audio, soundLoader{}, nil)
	require.NoError(t, err)
	backend := audiotest.NewBackend("MasterVolume", "MusicVolume", "SFXVolume", "VoiceVolume", "UIVolume")
	d := audio.New(c.DriverConfig(backend, nil))
	_, err = d.Init()
	require.NoError(t, err)
	return c, backend, d
}

type recorder struct {
	played []string
}

func (r *recorder) PlayOneShot(clip *audio.Clip) {
	r.played = append(r.played, clip.Name)
}

func TestButtonAudioFeedback(t *testing.T) {
	hover := audio.NewClip("Hover", nil, false)
	click := audio.NewClip("Click", nil, false)
	r := &recorder{}
	b := NewButtonAudio(r, hover, click)
	b.PreventHoverOnClick = true

	b.PointerEnter()
	b.PointerDown()
	b.Select() // caused by the click
	assert.True(t, b.JustClicked())

	b.Update(60 * time.Millisecond)
	b.Select()
	b.Update(40 * time.Millisecond)
	assert.False(t, b.JustClicked())
	b.Select()
	b.Submit()

	assert.Equal(t, []string{"Hover", "Click", "Hover", "Click"}, r.played)
}

func TestButtonAudioHoverOnClickAllowed(t *testing.T) {
	r := &recorder{}
	b := NewButtonAudio(r, audio.NewClip("Hover", nil, false), nil)
	assert.False(t, b.PreventHoverOnClick)

	b.PointerDown() // no click clip
	b.Select()
	assert.Equal(t, []string{"Hover"}, r.played)

	var quiet ButtonAudio
	quiet.PointerEnter()
	quiet.Submit()
}

func TestButtonAudioThroughDriver(t *testing.T) {
	c, backend, d := newDriver(t)
	hover, _ := c.Clip("Hover")
	click, _ := c.Clip("Click")
	b := NewButtonAudio(d, hover, click)
	b.PreventHoverOnClick = true

	b.PointerEnter()
	b.PointerDown()
	b.Select()

	ui := backend.Channel("shared/UI")
	require.NotNil(t, ui)
	assert.Len(t, ui.OneShots, 2)
	assert.Nil(t, d.Current(audio.UI))
}

type brokenControl struct{}

func (brokenControl) GetVolume(audio.Category) (float64, error) {
	return 0, audio.ErrValidation
}

func (brokenControl) SetVolume(audio.Category, float64) error {
	return errors.New("should not be called")
}

func TestVolumeSliderInitReadsWithoutNotify(t *testing.T) {
	_, backend, d := newDriver(t)
	s := NewVolumeSlider(d, audio.Music, nil)
	notified := 0
	s.OnChange = func(audio.Category, float64) { notified++ }

	require.NoError(t, s.Init())
	assert.True(t, s.Enabled())
	assert.Equal(t, 0.5, s.Value())
	assert.Zero(t, notified)

	s.SetValue(0.25)
	assert.Equal(t, 1, notified)
	v, _ := d.GetVolume(audio.Music)
	assert.Equal(t, 0.25, v)
	assert.InDelta(t, audio.LinearToDecibels(0.25), backend.Params["MusicVolume"], 1e-9)

	// same value, then out of range
	s.SetValue(0.25)
	s.SetValue(3)
	assert.Equal(t, 1.0, s.Value())
	assert.Equal(t, 2, notified)

	s.SetValueWithoutNotify(0.1)
	assert.Equal(t, 0.1, s.Value())
	assert.Equal(t, 2, notified)
}

func TestVolumeSliderDisabledOnError(t *testing.T) {
	s := NewVolumeSlider(brokenControl{}, audio.Voice, nil)
	assert.ErrorIs(t, s.Init(), audio.ErrValidation)
	assert.False(t, s.Enabled())

	s.SetValue(0.7)
	assert.Zero(t, s.Value())

	orphan := NewVolumeSlider(nil, audio.Music, nil)
	assert.Error(t, orphan.Init())
	assert.False(t, orphan.Enabled())
}

func TestButtonTween(t *testing.T) {
	tw := NewButtonTween()
	assert.Equal(t, 1.0, tw.Scale())

	tw.PointerEnter()
	tw.Update(TweenDuration / 2)
	mid := tw.Scale()
	assert.Greater(t, mid, 1.0)
	tw.Update(TweenDuration)
	assert.InDelta(t, HoverScale, tw.Scale(), 1e-9)

	tw.PointerDown()
	tw.Update(TweenDuration)
	assert.InDelta(t, ClickScale, tw.Scale(), 1e-9)

	tw.PointerUp()
	tw.Update(TweenDuration)
	assert.InDelta(t, HoverScale, tw.Scale(), 1e-9)

	tw.PointerExit()
	tw.Update(TweenDuration)
	assert.InDelta(t, 1.0, tw.Scale(), 1e-9)

	tw.PointerEnter()
	tw.Update(time.Millisecond)
	tw.Reset()
	tw.Update(time.Millisecond)
	assert.Equal(t, 1.0, tw.Scale())
}

func TestEasing(t *testing.T) {
	for _, ease := range []Ease{EaseOutQuad, EaseOutBack} {
		assert.InDelta(t, 0, ease(0), 1e-9)
		assert.InDelta(t, 1, ease(1), 1e-9)
	}
	assert.Greater(t, EaseOutBack(0.8), 1.0)
}
