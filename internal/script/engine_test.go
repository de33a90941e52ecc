package script

import (
	"context"
	"os"
	"path/filepath"
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

type fixture struct {
	catalog *catalog.Catalog
	backend *audiotest.Backend
	driver  *audio.Driver
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := catalog.Build(settings.DefaultConfig().Audio, soundLoader{}, nil)
	require.NoError(t, err)

	backend := audiotest.NewBackend("MasterVolume", "MusicVolume", "SFXVolume", "VoiceVolume", "UIVolume")
	driver := audio.New(c.DriverConfig(backend, nil))
	_, err = driver.Init()
	require.NoError(t, err)

	return &fixture{
		catalog: c,
		backend: backend,
		driver:  driver,
		engine:  NewEngine(driver, nil),
	}
}

func (f *fixture) load(t *testing.T, src string) []*Event {
	t.Helper()
	events, err := Compile(context.Background(), "test.lua", src, f.catalog)
	require.NoError(t, err)
	f.engine.Load("test.lua", events)
	return events
}

const sprayCue = `
play("Title")
wait(0.5)
tracked("Paint", "spray")
pitch_tracked("spray", 1.5)
one_shot("Cut")
wait(1)
snapshot("Pause")
volume("music", 0.25)
stop_tracked("spray")
wait(0.25)
stop_all()
`

func TestCompileBuildsTimeline(t *testing.T) {
	f := newFixture(t)
	events := f.load(t, sprayCue)

	require.Len(t, events, 8)
	var got []string
	for _, e := range events {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{
		"play Title",
		"tracked Paint as spray",
		"pitch_tracked spray 1.5",
		"one_shot Cut",
		"snapshot Pause over 300ms",
		"volume Music 0.25",
		"stop_tracked spray",
		"stop_all",
	}, got)

	assert.Equal(t, time.Duration(0), events[0].At)
	assert.Equal(t, 500*time.Millisecond, events[1].At)
	assert.Equal(t, 1500*time.Millisecond, events[4].At)
	assert.Equal(t, 1750*time.Millisecond, f.engine.Duration())
}

func TestEngineDispatchesOnSchedule(t *testing.T) {
	f := newFixture(t)
	f.load(t, sprayCue)

	var dispatched []string
	f.engine.OnEvent = func(e *Event) {
		assert.Equal(t, EventEnd, e.State)
		dispatched = append(dispatched, e.String())
	}

	// nothing happens before Start
	f.engine.Update(time.Second)
	assert.Empty(t, dispatched)

	f.engine.Start()
	f.engine.Update(400 * time.Millisecond)
	title, _ := f.catalog.Clip("Title")
	assert.Same(t, title, f.driver.Current(audio.Music))
	assert.Len(t, dispatched, 1)

	f.engine.Update(100 * time.Millisecond)
	id, ok := f.engine.Instance("spray")
	require.True(t, ok)
	assert.Equal(t, audio.InstanceID(0), id)
	assert.Equal(t, 1.5, f.backend.Channel("tracked/Paint/0").Pitch)
	assert.Len(t, f.backend.Channel("shared/SFX").OneShots, 1)

	f.engine.Update(time.Second)
	require.Len(t, f.backend.Transitions, 1)
	assert.Equal(t, []string{"Paused"}, f.backend.Transitions[0].Targets)
	assert.Equal(t, 300*time.Millisecond, f.backend.Transitions[0].Duration)
	v, _ := f.driver.GetVolume(audio.Music)
	assert.Equal(t, 0.25, v)
	assert.Equal(t, 0, f.driver.TrackedCount())
	assert.True(t, f.backend.Channel("tracked/Paint/0").Destroyed)
	assert.False(t, f.engine.Finished())

	f.engine.Update(time.Second)
	assert.True(t, f.engine.Finished())
	assert.False(t, f.engine.Running())
	assert.Empty(t, f.backend.Playing())
	assert.Len(t, dispatched, 8)
}

func TestEngineRunToEnd(t *testing.T) {
	f := newFixture(t)
	f.load(t, `
tracked("Paint")
tracked("Paint")
wait(3)
pitch_tracked("Paint", 2)
`)

	f.engine.RunToEnd()
	assert.True(t, f.engine.Finished())
	assert.Equal(t, 3*time.Second, f.engine.Elapsed())

	// the label points at the newest instance
	id, _ := f.engine.Instance("Paint")
	assert.Equal(t, audio.InstanceID(1), id)
	assert.True(t, f.backend.Channel("tracked/Paint/0").Destroyed)
	assert.Equal(t, 2.0, f.backend.Channel("tracked/Paint/1").Pitch)
	assert.Equal(t, 1, f.driver.TrackedCount())
}

func TestEngineReusedLabelStopsPreviousInstance(t *testing.T) {
	f := newFixture(t)
	f.load(t, `
tracked("Paint")
tracked("Paint")
stop_tracked("Paint")
`)

	f.engine.RunToEnd()
	assert.Equal(t, 0, f.driver.TrackedCount())
	assert.True(t, f.backend.Channel("tracked/Paint/0").Destroyed)
	assert.True(t, f.backend.Channel("tracked/Paint/1").Destroyed)
	assert.Empty(t, f.backend.Playing())
}

func TestEngineLoadStopsLabelledInstances(t *testing.T) {
	f := newFixture(t)
	f.load(t, `tracked("Paint", "a") tracked("Cut", "b")`)
	f.engine.RunToEnd()
	require.Equal(t, 2, f.driver.TrackedCount())

	f.load(t, `one_shot("Click")`)
	assert.Equal(t, 0, f.driver.TrackedCount())
	assert.True(t, f.backend.Channel("tracked/Paint/0").Destroyed)
	assert.True(t, f.backend.Channel("tracked/Cut/1").Destroyed)
	_, ok := f.engine.Instance("a")
	assert.False(t, ok)
}

func TestEngineUnknownLabelIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.load(t, `stop_tracked("nobody") pitch_tracked("nobody", 2)`)

	f.engine.RunToEnd()
	assert.True(t, f.engine.Finished())
	assert.Equal(t, 0, f.driver.TrackedCount())
}

func TestEngineBlendAndOverrides(t *testing.T) {
	f := newFixture(t)
	f.load(t, `
snapshot("Gameplay", 0)
blend({"Paused", "Unpaused"}, {0.25, 0.75}, 2.5)
volume("ui", 0.6)
`)
	f.engine.RunToEnd()

	require.Len(t, f.backend.Transitions, 2)
	assert.Equal(t, time.Duration(0), f.backend.Transitions[0].Duration)
	assert.Equal(t, audiotest.Transition{
		Targets:  []string{"Paused", "Unpaused"},
		Weights:  []float64{0.25, 0.75},
		Duration: 2500 * time.Millisecond,
	}, f.backend.Transitions[1])

	v, _ := f.driver.GetVolume(audio.UI)
	assert.Equal(t, 0.6, v)
}

func TestCompileErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown clip", `play("Nope")`, `unknown clip "Nope"`},
		{"unknown snapshot", `snapshot("Nope")`, `unknown snapshot "Nope"`},
		{"unknown category", `volume("ambience", 1)`, "unknown category"},
		{"negative wait", `wait(-1)`, "non-negative"},
		{"bad pitch", `pitch("Title", 0)`, "pitch must be positive"},
		{"bad weights", `blend({"Paused"}, {"heavy"})`, "weights must be numbers"},
		{"syntax", `play("Title"`, "test.lua"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(context.Background(), "test.lua", tt.src, f.catalog)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCompileHonoursContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Compile(ctx, "spin.lua", `while true do end`, f.catalog)
	assert.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "intro.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
for i = 1, 3 do
  one_shot("Click")
  wait(0.1)
end
print_time = now()
`), 0644))

	events, err := CompileFile(context.Background(), path, f.catalog)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.InDelta(t, 0.2, events[2].At.Seconds(), 1e-9)

	_, err = CompileFile(context.Background(), filepath.Join(t.TempDir(), "missing.lua"), f.catalog)
	assert.Error(t, err)
}
