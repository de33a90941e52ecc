package mixer

import (
	"bytes"
	"io"
	"math"
	"time"

	eaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"cyclone-engine/internal/audio"
)

// Sound is decoded PCM ready for playback: 16-bit little-endian stereo at
// the mixer sample rate.
type Sound struct {
	name       string
	pcm        []byte
	sampleRate int
}

// NewSound wraps decoded PCM.
func NewSound(name string, pcm []byte, sampleRate int) *Sound {
	return &Sound{name: name, pcm: pcm[:len(pcm)-len(pcm)%bytesPerFrame], sampleRate: sampleRate}
}

// Name returns the sound name.
func (s *Sound) Name() string {
	return s.name
}

// Duration returns the length of the sound at its native pitch.
func (s *Sound) Duration() time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	frames := len(s.pcm) / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(s.sampleRate)
}

// Size returns the PCM size in bytes.
func (s *Sound) Size() int {
	return len(s.pcm)
}

// Channel is one voice of the mixer. The main voice is replaced on every
// Play; one-shots get their own players and are released by Mixer.Update
// once they finish.
type Channel struct {
	mixer *Mixer
	name  string

	assigned audio.Sound
	sound    *Sound
	loop     bool
	bus      string
	pitch    float64
	volume   float64

	main      player
	mainPitch float64
	oneShots  []player

	destroyed bool
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// SetSound implements audio.Channel. Sounds not produced by this package
// are kept as the assignment but cannot be played.
func (c *Channel) SetSound(s audio.Sound) {
	c.assigned = s
	c.sound = c.resolve(s)
}

func (c *Channel) Sound() audio.Sound {
	return c.assigned
}

func (c *Channel) SetLoop(loop bool) {
	c.loop = loop
}

// Bus returns the bus the channel is routed to.
func (c *Channel) Bus() string {
	return c.bus
}

func (c *Channel) SetBus(bus string) {
	if bus != "" && !c.mixer.graph.has(bus) {
		c.mixer.log.Warnf("Channel %s routed to unknown bus %q, playing unattenuated", c.name, bus)
	}
	c.bus = bus
	c.applyVolume()
}

// Play implements audio.Channel.
func (c *Channel) Play() {
	if c.destroyed || c.sound == nil {
		return
	}
	c.stopMain()

	p, err := c.start(c.sound, c.loop, 0)
	if err != nil {
		c.mixer.log.Warnf("Channel %s cannot play %s: %v", c.name, c.sound.name, err)
		return
	}
	c.main = p
	c.mainPitch = c.pitch
}

// Stop implements audio.Channel.
func (c *Channel) Stop() {
	c.stopMain()
	for _, p := range c.oneShots {
		p.Pause()
		p.Close()
	}
	c.oneShots = nil
}

func (c *Channel) IsPlaying() bool {
	return c.main != nil && c.main.IsPlaying()
}

// PlayOneShot implements audio.Channel.
func (c *Channel) PlayOneShot(s audio.Sound) {
	if c.destroyed {
		return
	}
	sound := c.resolve(s)
	if sound == nil {
		return
	}
	p, err := c.start(sound, false, 0)
	if err != nil {
		c.mixer.log.Warnf("Channel %s cannot play one-shot %s: %v", c.name, sound.name, err)
		return
	}
	c.oneShots = append(c.oneShots, p)
}

// SetPitch implements audio.Channel. A playing main voice is restarted at
// the equivalent position so the change is heard immediately.
func (c *Channel) SetPitch(pitch float64) {
	if !(pitch > 0) || math.IsInf(pitch, 0) {
		c.mixer.log.Warnf("Channel %s: ignoring pitch %v", c.name, pitch)
		return
	}
	c.pitch = pitch
	if !c.IsPlaying() || c.mainPitch == pitch {
		return
	}

	// position in the unpitched sound
	at := time.Duration(float64(c.main.Position()) * c.mainPitch)
	if c.loop {
		if d := c.sound.Duration(); d > 0 {
			at %= d
		}
	}

	c.stopMain()
	p, err := c.start(c.sound, c.loop, time.Duration(float64(at)/pitch))
	if err != nil {
		c.mixer.log.Warnf("Channel %s cannot repitch %s: %v", c.name, c.sound.name, err)
		return
	}
	c.main = p
	c.mainPitch = pitch
}

// Pitch returns the pitch applied to new voices.
func (c *Channel) Pitch() float64 {
	return c.pitch
}

// SetVolume implements audio.Channel.
func (c *Channel) SetVolume(v float64) {
	c.volume = math.Max(0, math.Min(1, v))
	if math.IsNaN(v) {
		c.volume = 0
	}
	c.applyVolume()
}

// Destroy implements audio.Channel.
func (c *Channel) Destroy() {
	if c.destroyed {
		return
	}
	c.Stop()
	c.destroyed = true
	c.assigned = nil
	c.sound = nil
	c.mixer.release(c)
}

// Voices returns the number of one-shot voices not yet released.
func (c *Channel) Voices() int {
	return len(c.oneShots)
}

func (c *Channel) resolve(s audio.Sound) *Sound {
	if s == nil {
		return nil
	}
	sound, ok := s.(*Sound)
	if !ok || sound == nil {
		c.mixer.log.Warnf("Channel %s: sound %s was not decoded by the mixer", c.name, s.Name())
		return nil
	}
	return sound
}

func (c *Channel) start(s *Sound, loop bool, at time.Duration) (player, error) {
	src, err := c.stream(s, loop)
	if err != nil {
		return nil, err
	}
	p, err := c.mixer.players.NewPlayer(src)
	if err != nil {
		return nil, err
	}
	if at > 0 {
		if err := p.SetPosition(at); err != nil {
			c.mixer.log.Debugf("Channel %s: seek to %v failed: %v", c.name, at, err)
		}
	}
	p.SetVolume(c.gain())
	p.Play()
	return p, nil
}

func (c *Channel) stream(s *Sound, loop bool) (io.Reader, error) {
	pcm := s.pcm
	if c.pitch != 1 {
		rate := c.mixer.sampleRate
		var err error
		pcm, err = resample(pcm, int(math.Round(float64(rate)*c.pitch)), rate)
		if err != nil {
			return nil, err
		}
	}

	r := bytes.NewReader(pcm)
	if loop && len(pcm) > 0 {
		return eaudio.NewInfiniteLoop(r, int64(len(pcm))), nil
	}
	return r, nil
}

func (c *Channel) stopMain() {
	if c.main == nil {
		return
	}
	c.main.Pause()
	c.main.Close()
	c.main = nil
}

func (c *Channel) gain() float64 {
	return c.volume * c.mixer.graph.linear(c.bus)
}

func (c *Channel) applyVolume() {
	g := c.gain()
	if c.main != nil {
		c.main.SetVolume(g)
	}
	for _, p := range c.oneShots {
		p.SetVolume(g)
	}
}

func (c *Channel) reap() {
	live := c.oneShots[:0]
	for _, p := range c.oneShots {
		if p.IsPlaying() {
			live = append(live, p)
			continue
		}
		p.Close()
	}
	for i := len(live); i < len(c.oneShots); i++ {
		c.oneShots[i] = nil
	}
	c.oneShots = live
}
