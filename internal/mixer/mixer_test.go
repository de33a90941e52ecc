package mixer

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/audio/audiotest"
)

const testRate = 44100

type fakePlayer struct {
	size     int
	playing  bool
	closed   bool
	volume   float64
	position time.Duration
	seeks    []time.Duration
}

func (p *fakePlayer) Play()                   { p.playing = true }
func (p *fakePlayer) Pause()                  { p.playing = false }
func (p *fakePlayer) IsPlaying() bool         { return p.playing }
func (p *fakePlayer) SetVolume(v float64)     { p.volume = v }
func (p *fakePlayer) Position() time.Duration { return p.position }
func (p *fakePlayer) Close() error {
	p.playing = false
	p.closed = true
	return nil
}
func (p *fakePlayer) SetPosition(at time.Duration) error {
	p.seeks = append(p.seeks, at)
	p.position = at
	return nil
}

type fakePlayers struct {
	created []*fakePlayer
}

func (f *fakePlayers) NewPlayer(src io.Reader) (player, error) {
	p := &fakePlayer{size: -1}
	if r, ok := src.(*bytes.Reader); ok {
		p.size = r.Len()
	}
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakePlayers) last() *fakePlayer {
	return f.created[len(f.created)-1]
}

func testBuses() []Bus {
	return []Bus{
		{Name: "Master", Param: "MasterVolume"},
		{Name: "Music", Param: "MusicVolume", Parent: "Master"},
		{Name: "SFX", Param: "SFXVolume", Parent: "Master"},
		{Name: "Reverb", Parent: "SFX"},
	}
}

func newTestMixer(t *testing.T) (*Mixer, *fakePlayers) {
	t.Helper()
	players := &fakePlayers{}
	m, err := newMixer(players, testRate, Config{
		Buses: testBuses(),
		Snapshots: map[string]Levels{
			"Unpaused": {},
			"Paused":   {"Music": -12, "SFX": -80},
			"Muffled":  {"Music": -6, "SFX": -20},
		},
	})
	require.NoError(t, err)
	return m, players
}

func newTestSound(name string, frames int) *Sound {
	return NewSound(name, make([]byte, frames*bytesPerFrame), testRate)
}

func TestBusGraphValidation(t *testing.T) {
	tests := []struct {
		name  string
		buses []Bus
		err   string
	}{
		{"unnamed", []Bus{{}}, "without a name"},
		{"duplicate", []Bus{{Name: "A"}, {Name: "A"}}, `duplicate bus "A"`},
		{"shared param", []Bus{{Name: "A", Param: "P"}, {Name: "B", Param: "P"}}, `parameter "P" exposed`},
		{"unknown parent", []Bus{{Name: "A", Parent: "Z"}}, `unknown parent "Z"`},
		{"cycle", []Bus{{Name: "A", Parent: "B"}, {Name: "B", Parent: "A"}}, "own ancestor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newBusGraph(tt.buses)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestBusGraphEffectiveGain(t *testing.T) {
	g, err := newBusGraph(testBuses())
	require.NoError(t, err)

	require.NoError(t, g.setParam("MasterVolume", -6))
	require.NoError(t, g.setParam("SFXVolume", -10))
	g.snapshot = Levels{"SFX": -4, "Reverb": -3}

	assert.Equal(t, -6.0, g.effective("Music"))
	assert.Equal(t, -23.0, g.effective("Reverb"))
	assert.Equal(t, 0.0, g.effective(""))
	assert.Equal(t, 0.0, g.effective("Nope"))
	assert.Equal(t, 1.0, g.linear(""))

	require.NoError(t, g.setParam("MasterVolume", SilenceDB))
	assert.Equal(t, 0.0, g.linear("Music"))

	assert.Error(t, g.setParam("ReverbVolume", 0))
	assert.Error(t, g.setParam("MusicVolume", math.NaN()))
}

func TestBlendTargetsNormalizesWeights(t *testing.T) {
	snapshots := map[string]Levels{
		"A": {"Music": -10},
		"B": {"Music": -20, "SFX": -40},
	}

	got, err := blendTargets(snapshots, []string{"A", "B"}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, -15, got["Music"], 1e-9)
	assert.InDelta(t, -20, got["SFX"], 1e-9)

	got, err = blendTargets(snapshots, []string{"A", "B"}, []float64{0.2, 0.2})
	require.NoError(t, err)
	assert.InDelta(t, -15, got["Music"], 1e-9)

	got, err = blendTargets(snapshots, []string{"A"}, []float64{0})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = blendTargets(snapshots, []string{"C"}, []float64{1})
	assert.ErrorContains(t, err, `unknown snapshot "C"`)
	_, err = blendTargets(snapshots, []string{"A"}, nil)
	assert.Error(t, err)
}

func TestTransitionUsesSmoothstep(t *testing.T) {
	tr := &transition{
		from:     Levels{"Music": 0},
		to:       Levels{"Music": -20, "SFX": -10},
		duration: time.Second,
	}

	quarter := tr.step(250 * time.Millisecond)
	assert.InDelta(t, -20*smoothstep(0.25), quarter["Music"], 1e-9)
	assert.InDelta(t, -10*smoothstep(0.25), quarter["SFX"], 1e-9)
	assert.False(t, tr.done())

	half := tr.step(250 * time.Millisecond)
	assert.InDelta(t, -10, half["Music"], 1e-9)

	end := tr.step(time.Second)
	assert.True(t, tr.done())
	assert.Equal(t, Levels{"Music": -20, "SFX": -10}, end)
}

func TestMixerRejectsSnapshotOnUnknownBus(t *testing.T) {
	_, err := newMixer(&fakePlayers{}, testRate, Config{
		Buses:     testBuses(),
		Snapshots: map[string]Levels{"Bad": {"Voice": -3}},
	})
	assert.ErrorContains(t, err, `unknown bus "Voice"`)
}

func TestMixerSnapshotTransition(t *testing.T) {
	m, _ := newTestMixer(t)

	require.NoError(t, m.TransitionToSnapshots([]string{"Paused"}, []float64{1}, 0))
	assert.False(t, m.Transitioning())
	assert.Equal(t, -12.0, m.Effective("Music"))

	require.NoError(t, m.TransitionToSnapshots([]string{"Unpaused"}, []float64{1}, time.Second))
	assert.True(t, m.Transitioning())
	assert.Equal(t, -12.0, m.Effective("Music"))

	m.Update(500 * time.Millisecond)
	assert.InDelta(t, -6, m.Effective("Music"), 1e-9)

	m.Update(time.Second)
	assert.False(t, m.Transitioning())
	assert.Equal(t, 0.0, m.Effective("Music"))

	assert.Error(t, m.TransitionToSnapshots([]string{"Missing"}, []float64{1}, 0))
}

func TestChannelPlayUsesBusGain(t *testing.T) {
	m, players := newTestMixer(t)
	require.NoError(t, m.SetParam("MusicVolume", -20))

	ch, err := m.NewChannel("shared/Music")
	require.NoError(t, err)

	// nothing assigned yet
	ch.Play()
	assert.Empty(t, players.created)
	assert.False(t, ch.IsPlaying())

	ch.SetBus("Music")
	ch.SetSound(newTestSound("title", 100))
	ch.Play()
	require.Len(t, players.created, 1)
	p := players.last()
	assert.True(t, ch.IsPlaying())
	assert.Equal(t, 100*bytesPerFrame, p.size)
	assert.InDelta(t, 0.1, p.volume, 1e-9)

	ch.SetVolume(0.5)
	assert.InDelta(t, 0.05, p.volume, 1e-9)

	require.NoError(t, m.SetParam("MasterVolume", SilenceDB))
	assert.Equal(t, 0.0, p.volume)

	ch.Stop()
	assert.False(t, ch.IsPlaying())
	assert.True(t, p.closed)
}

func TestChannelPlayRestartsMainVoice(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("shared/SFX")
	ch.SetSound(newTestSound("cut", 10))

	ch.Play()
	first := players.last()
	ch.Play()

	assert.True(t, first.closed)
	assert.Len(t, players.created, 2)
	assert.True(t, ch.IsPlaying())
}

func TestChannelLoopingStream(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("dedicated/Crowd")
	ch.SetSound(newTestSound("crowd", 10))
	ch.SetLoop(true)
	ch.Play()

	// an infinite loop is not a plain byte reader
	assert.Equal(t, -1, players.last().size)
}

func TestChannelOneShotsAreReaped(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("shared/SFX")
	c := ch.(*Channel)

	ch.PlayOneShot(newTestSound("click", 10))
	ch.PlayOneShot(newTestSound("click", 10))
	require.Equal(t, 2, c.Voices())
	assert.False(t, ch.IsPlaying())

	players.created[0].playing = false
	m.Update(time.Millisecond)
	assert.Equal(t, 1, c.Voices())
	assert.True(t, players.created[0].closed)

	ch.Stop()
	assert.Equal(t, 0, c.Voices())
	assert.True(t, players.created[1].closed)
}

func TestChannelIgnoresForeignSounds(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("shared/SFX")

	foreign := audiotest.NewSound("elsewhere")
	ch.SetSound(foreign)
	assert.Equal(t, audio.Sound(foreign), ch.Sound())

	ch.Play()
	ch.PlayOneShot(foreign)
	ch.PlayOneShot(nil)
	assert.Empty(t, players.created)
}

func TestChannelSetPitchRepositions(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("tracked/Paint/0")
	ch.SetSound(newTestSound("paint", testRate))
	ch.Play()

	first := players.last()
	first.position = 500 * time.Millisecond
	ch.SetPitch(2)

	require.Len(t, players.created, 2)
	second := players.last()
	assert.True(t, first.closed)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, second.seeks)
	assert.InDelta(t, testRate*bytesPerFrame/2, second.size, 16*bytesPerFrame)

	// same pitch, no restart
	ch.SetPitch(2)
	assert.Len(t, players.created, 2)

	// invalid pitches are ignored
	ch.SetPitch(0)
	ch.SetPitch(math.NaN())
	assert.Equal(t, 2.0, ch.(*Channel).Pitch())
}

func TestChannelSetPitchWhileStopped(t *testing.T) {
	m, players := newTestMixer(t)
	ch, _ := m.NewChannel("shared/SFX")
	ch.SetSound(newTestSound("cut", 100))

	ch.SetPitch(0.5)
	assert.Empty(t, players.created)

	ch.Play()
	assert.InDelta(t, 200*bytesPerFrame, players.last().size, 16*bytesPerFrame)
}

func TestChannelDestroyReleases(t *testing.T) {
	m, players := newTestMixer(t)
	a, _ := m.NewChannel("a")
	b, _ := m.NewChannel("b")
	assert.Equal(t, []string{"a", "b"}, m.ChannelNames())

	a.SetSound(newTestSound("x", 10))
	a.Play()
	a.Destroy()
	a.Destroy()

	assert.Equal(t, []string{"b"}, m.ChannelNames())
	assert.True(t, players.last().closed)
	assert.Nil(t, a.Sound())

	a.Play()
	assert.Len(t, players.created, 1)

	m.Close()
	assert.Empty(t, m.ChannelNames())
	assert.False(t, b.IsPlaying())
}

func TestMixerImplementsBackend(t *testing.T) {
	m, _ := newTestMixer(t)
	var backend audio.Backend = m

	memory := audio.NewVolumeMemory(backend, []audio.VolumeParam{
		{Name: "Music", Category: audio.Music, Bus: "Music", Param: "MusicVolume", Volume: 0.1},
	}, nil)
	assert.Empty(t, audio.Failed(memory.ApplyAllToMixer()))

	db, ok := m.Param("MusicVolume")
	require.True(t, ok)
	assert.InDelta(t, -20, db, 1e-9)
}

// wavFile builds a minimal 16-bit stereo PCM WAV.
func wavFile(t *testing.T, pcm []byte, rate int) []byte {
	t.Helper()
	var b bytes.Buffer
	write := func(v any) {
		require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
	}
	b.WriteString("RIFF")
	write(uint32(36 + len(pcm)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(2))
	write(uint32(rate))
	write(uint32(rate * bytesPerFrame))
	write(uint16(bytesPerFrame))
	write(uint16(16))
	b.WriteString("data")
	write(uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}

func TestDecodeWav(t *testing.T) {
	pcm := make([]byte, 64*bytesPerFrame)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	got, err := Decode("click.WAV", wavFile(t, pcm, testRate), testRate)
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	_, err := Decode("notes.txt", []byte("hello"), testRate)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	for name, want := range map[string]Format{
		"a.ogg": FormatOgg, "a.OGA": FormatOgg, "b.wav": FormatWav,
		"c.mp3": FormatMP3, "d.mpg": FormatMPEG, "e.mpeg": FormatMPEG,
	} {
		got, err := FormatOf(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestFixOggHeader(t *testing.T) {
	valid := append([]byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00\x00\x00"), 0xAA, 0xBB, 0xCC)
	got, err := fixOggHeader(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, got)

	broken := []byte("OggS\x00\x12\x34\x56\x78\x9A\xBC\xDE\xF0\x11\x22\x33\x44")
	got, err = fixOggHeader(broken)
	require.NoError(t, err)
	assert.Equal(t, valid[:14], got[:14])
	assert.Equal(t, broken[5:], got[14:])

	_, err = fixOggHeader([]byte("OggS"))
	assert.Error(t, err)

	_, err = fixOggHeader(append([]byte("OggS"), make([]byte, 12)...))
	assert.ErrorContains(t, err, "too many zeros")
}
