// Package audiotest provides an in-memory audio backend that records every
// channel operation. It backs the driver tests and the headless cue runner.
package audiotest

import (
	"fmt"
	"sort"
	"time"

	"cyclone-engine/internal/audio"
)

// Sound is a named placeholder handle.
type Sound struct {
	name string
}

// NewSound creates a sound handle with the given name.
func NewSound(name string) *Sound {
	return &Sound{name: name}
}

// Name returns the sound name.
func (s *Sound) Name() string {
	return s.name
}

// Channel records the state a real voice would have.
type Channel struct {
	Name      string
	Loop      bool
	Bus       string
	Pitch     float64
	Volume    float64
	Destroyed bool

	Plays    int
	Stops    int
	OneShots []audio.Sound

	sound   audio.Sound
	playing bool
	voices  int
}

func (c *Channel) SetSound(s audio.Sound) { c.sound = s }
func (c *Channel) Sound() audio.Sound     { return c.sound }
func (c *Channel) SetLoop(loop bool)      { c.Loop = loop }
func (c *Channel) SetBus(bus string)      { c.Bus = bus }
func (c *Channel) SetPitch(p float64)     { c.Pitch = p }
func (c *Channel) SetVolume(v float64)    { c.Volume = v }

// Play starts the main voice from the beginning.
func (c *Channel) Play() {
	c.Plays++
	c.playing = true
}

// Stop silences the main voice and any one-shots.
func (c *Channel) Stop() {
	c.Stops++
	c.playing = false
	c.voices = 0
}

func (c *Channel) IsPlaying() bool {
	return c.playing
}

// PlayOneShot records an overlapping voice.
func (c *Channel) PlayOneShot(s audio.Sound) {
	c.OneShots = append(c.OneShots, s)
	c.voices++
}

// Voices returns the number of one-shot voices still sounding.
func (c *Channel) Voices() int {
	return c.voices
}

// Finish simulates the main voice reaching its natural end.
func (c *Channel) Finish() {
	c.playing = false
}

func (c *Channel) Destroy() {
	c.playing = false
	c.voices = 0
	c.Destroyed = true
}

// SoundName returns the assigned sound's name, or "".
func (c *Channel) SoundName() string {
	if c.sound == nil {
		return ""
	}
	return c.sound.Name()
}

// Transition records one TransitionToSnapshots call.
type Transition struct {
	Targets  []string
	Weights  []float64
	Duration time.Duration
}

// Backend is an in-memory audio.Backend.
type Backend struct {
	// Params holds the last gain written to each exposed parameter.
	Params      map[string]float64
	Transitions []Transition

	// FailChannel, when set, decides whether NewChannel fails for a name.
	FailChannel func(name string) error
	// FailTransition is returned by every TransitionToSnapshots call when set.
	FailTransition error

	exposed  map[string]bool
	channels []*Channel
	byName   map[string]*Channel
}

// NewBackend creates a backend exposing the given mixer parameters.
func NewBackend(exposed ...string) *Backend {
	b := &Backend{
		Params:  make(map[string]float64),
		exposed: make(map[string]bool),
		byName:  make(map[string]*Channel),
	}
	for _, name := range exposed {
		b.exposed[name] = true
	}
	return b
}

// SetParam implements audio.Mixer.
func (b *Backend) SetParam(name string, db float64) error {
	if !b.exposed[name] {
		return fmt.Errorf("parameter %q is not exposed", name)
	}
	b.Params[name] = db
	return nil
}

// TransitionToSnapshots implements audio.Mixer.
func (b *Backend) TransitionToSnapshots(targets []string, weights []float64, d time.Duration) error {
	if b.FailTransition != nil {
		return b.FailTransition
	}
	b.Transitions = append(b.Transitions, Transition{
		Targets:  append([]string(nil), targets...),
		Weights:  append([]float64(nil), weights...),
		Duration: d,
	})
	return nil
}

// NewChannel implements audio.Backend.
func (b *Backend) NewChannel(name string) (audio.Channel, error) {
	if b.FailChannel != nil {
		if err := b.FailChannel(name); err != nil {
			return nil, err
		}
	}
	ch := &Channel{Name: name, Pitch: 1, Volume: 1}
	b.channels = append(b.channels, ch)
	b.byName[name] = ch
	return ch, nil
}

// Channel returns the most recent channel created with name.
func (b *Backend) Channel(name string) *Channel {
	return b.byName[name]
}

// Channels returns every channel ever created, in creation order.
func (b *Backend) Channels() []*Channel {
	return append([]*Channel(nil), b.channels...)
}

// Live returns the channels that have not been destroyed.
func (b *Backend) Live() []*Channel {
	var live []*Channel
	for _, ch := range b.channels {
		if !ch.Destroyed {
			live = append(live, ch)
		}
	}
	return live
}

// Playing returns the names of channels whose main voice is playing, sorted.
func (b *Backend) Playing() []string {
	var names []string
	for _, ch := range b.channels {
		if ch.playing && !ch.Destroyed {
			names = append(names, ch.Name)
		}
	}
	sort.Strings(names)
	return names
}
