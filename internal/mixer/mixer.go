// Package mixer is the ebiten playback backend of the audio driver: decoded
// sounds, player-backed channels, a bus graph with exposed gain parameters
// and weighted snapshot transitions.
package mixer

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/decred/slog"
	eaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"cyclone-engine/internal/audio"
)

// Config describes the mixing graph.
type Config struct {
	Buses     []Bus
	Snapshots map[string]Levels
	Logger    slog.Logger
}

// player is the part of *eaudio.Player a channel drives.
type player interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(v float64)
	Position() time.Duration
	SetPosition(offset time.Duration) error
	Close() error
}

type playerFactory interface {
	NewPlayer(src io.Reader) (player, error)
}

type contextPlayers struct {
	ctx *eaudio.Context
}

func (c contextPlayers) NewPlayer(src io.Reader) (player, error) {
	p, err := c.ctx.NewPlayer(src)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Mixer implements audio.Backend on top of an ebiten audio context.
// Like the driver it is single-threaded; call it from the game loop.
type Mixer struct {
	players    playerFactory
	sampleRate int
	log        slog.Logger

	graph     *busGraph
	snapshots map[string]Levels
	fade      *transition

	channels map[*Channel]struct{}
}

// New creates a mixer playing through ctx.
func New(ctx *eaudio.Context, cfg Config) (*Mixer, error) {
	return newMixer(contextPlayers{ctx: ctx}, ctx.SampleRate(), cfg)
}

func newMixer(players playerFactory, sampleRate int, cfg Config) (*Mixer, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Disabled
	}

	graph, err := newBusGraph(cfg.Buses)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]Levels, len(cfg.Snapshots))
	for name, levels := range cfg.Snapshots {
		for bus := range levels {
			if !graph.has(bus) {
				return nil, fmt.Errorf("snapshot %q: unknown bus %q", name, bus)
			}
		}
		snapshots[name] = levels.Clone()
	}

	return &Mixer{
		players:    players,
		sampleRate: sampleRate,
		log:        log,
		graph:      graph,
		snapshots:  snapshots,
		channels:   make(map[*Channel]struct{}),
	}, nil
}

// SampleRate returns the output sample rate sounds must be decoded at.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// SetParam implements audio.Mixer.
func (m *Mixer) SetParam(name string, db float64) error {
	if err := m.graph.setParam(name, db); err != nil {
		return err
	}
	m.log.Debugf("Param %s = %.2f dB", name, db)
	m.refresh()
	return nil
}

// Param returns the last gain written to an exposed parameter.
func (m *Mixer) Param(name string) (float64, bool) {
	return m.graph.param(name)
}

// TransitionToSnapshots implements audio.Mixer. A zero duration applies the
// blend immediately; otherwise Update interpolates toward it.
func (m *Mixer) TransitionToSnapshots(targets []string, weights []float64, d time.Duration) error {
	to, err := blendTargets(m.snapshots, targets, weights)
	if err != nil {
		return err
	}

	if d <= 0 {
		m.fade = nil
		m.graph.snapshot = to
		m.refresh()
	} else {
		m.fade = &transition{from: m.graph.snapshot.Clone(), to: to, duration: d}
	}
	m.log.Debugf("Transition to %v %v over %v", targets, weights, d)
	return nil
}

// Levels returns the current snapshot attenuation per bus.
func (m *Mixer) Levels() Levels {
	return m.graph.snapshot.Clone()
}

// Effective returns the total attenuation of a bus in dB.
func (m *Mixer) Effective(bus string) float64 {
	return m.graph.effective(bus)
}

// Transitioning reports whether a snapshot blend is in progress.
func (m *Mixer) Transitioning() bool {
	return m.fade != nil
}

// Update advances snapshot blends and releases finished one-shot voices.
func (m *Mixer) Update(dt time.Duration) {
	if m.fade != nil {
		m.graph.snapshot = m.fade.step(dt)
		if m.fade.done() {
			m.fade = nil
		}
		m.refresh()
	}
	for ch := range m.channels {
		ch.reap()
	}
}

// NewChannel implements audio.Backend.
func (m *Mixer) NewChannel(name string) (audio.Channel, error) {
	ch := &Channel{
		mixer:  m,
		name:   name,
		pitch:  1,
		volume: 1,
	}
	m.channels[ch] = struct{}{}
	return ch, nil
}

// ChannelNames returns the names of live channels, sorted.
func (m *Mixer) ChannelNames() []string {
	names := make([]string, 0, len(m.channels))
	for ch := range m.channels {
		names = append(names, ch.name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every channel.
func (m *Mixer) Close() {
	for ch := range m.channels {
		ch.Destroy()
	}
}

func (m *Mixer) refresh() {
	for ch := range m.channels {
		ch.applyVolume()
	}
}

func (m *Mixer) release(ch *Channel) {
	delete(m.channels, ch)
}
