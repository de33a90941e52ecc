package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/audio/audiotest"
)

type fixture struct {
	backend *audiotest.Backend
	driver  *audio.Driver
	report  audio.Report

	track1, track2 *audio.Clip
	click, hover   *audio.Clip
	engine         *audio.Clip
	chime          *audio.Clip
	loop           *audio.Clip
}

func defaultVolumes() []audio.VolumeParam {
	return []audio.VolumeParam{
		{Name: "Master", Category: audio.Master, Bus: "Master", Param: "MasterVolume", Volume: 1},
		{Name: "Music", Category: audio.Music, Bus: "Music", Param: "MusicVolume", Volume: 0.5},
		{Name: "SFX", Category: audio.SFX, Bus: "SFX", Param: "SFXVolume", Volume: 0.8},
	}
}

func newClips() *fixture {
	return &fixture{
		track1: audio.NewClip("Track1", audiotest.NewSound("track1.ogg"), true),
		track2: audio.NewClip("Track2", audiotest.NewSound("track2.ogg"), true),
		click:  audio.NewClip("Click", audiotest.NewSound("click.wav"), false),
		hover:  audio.NewClip("Hover", audiotest.NewSound("hover.wav"), false),
		engine: audio.NewClip("Engine", audiotest.NewSound("engine.ogg"), true),
		chime:  audio.NewClip("Chime", audiotest.NewSound("chime.wav"), false),
		loop:   audio.NewClip("Loop", audiotest.NewSound("loop.ogg"), true),
	}
}

func (f *fixture) libraries() []*audio.Library {
	return []*audio.Library{
		{Name: "music", Category: audio.Music, Clips: []*audio.Clip{f.track1, f.track2}},
		{Name: "sfx", Category: audio.SFX, Clips: []*audio.Clip{f.click, f.hover, f.loop}},
		{Name: "engines", Category: audio.SFX, Dedicated: true, Clips: []*audio.Clip{f.engine}},
		// UI has no volume param, so its dedicated channel is unrouted
		{Name: "ui", Category: audio.UI, Dedicated: true, Clips: []*audio.Clip{f.chime}},
	}
}

func newFixture(t require.TestingT, mutate ...func(*audio.Config, *audiotest.Backend)) *fixture {
	f := newClips()
	f.backend = audiotest.NewBackend("MasterVolume", "MusicVolume", "SFXVolume")

	cfg := audio.Config{
		Backend:   f.backend,
		Volumes:   defaultVolumes(),
		Libraries: f.libraries(),
	}
	for _, m := range mutate {
		m(&cfg, f.backend)
	}

	f.driver = audio.New(cfg)
	report, err := f.driver.Init()
	require.NoError(t, err)
	f.report = report
	return f
}

func (f *fixture) music() *audiotest.Channel {
	return f.backend.Channel(audio.SharedChannelPrefix + "Music")
}

func (f *fixture) sfx() *audiotest.Channel {
	return f.backend.Channel(audio.SharedChannelPrefix + "SFX")
}

func TestInitProvisionsChannels(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 3, f.report.SharedChannels)
	assert.Equal(t, 2, f.report.DedicatedChannels)
	assert.Equal(t, 7, f.report.RoutedClips)
	assert.Empty(t, f.report.Failed())

	music := f.music()
	require.NotNil(t, music)
	assert.Equal(t, "Music", music.Bus)
	assert.False(t, music.Loop)
	assert.False(t, music.IsPlaying())
	assert.Nil(t, music.Sound())

	engine := f.backend.Channel(audio.DedicatedChannelPrefix + "Engine")
	require.NotNil(t, engine)
	assert.Equal(t, "SFX", engine.Bus)
	assert.True(t, engine.Loop)
	assert.Equal(t, "engine.ogg", engine.SoundName())

	chime := f.backend.Channel(audio.DedicatedChannelPrefix + "Chime")
	require.NotNil(t, chime)
	assert.Empty(t, chime.Bus, "category without a volume param plays unrouted")
}

func TestPlayStealsSharedChannel(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.track1)
	f.driver.Play(f.track2)

	music := f.music()
	assert.Equal(t, "track2.ogg", music.SoundName())
	assert.True(t, music.IsPlaying())
	assert.Equal(t, 2, music.Stops, "each Play stops the previous voice first")
	assert.Same(t, f.track2, f.driver.Current(audio.Music))
	assert.False(t, f.driver.IsPlaying(f.track1))
	assert.True(t, f.driver.IsPlaying(f.track2))
}

func TestStopRespectsOwnership(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.track1)
	f.driver.Play(f.track2)

	f.driver.Stop(f.track1)
	assert.True(t, f.music().IsPlaying(), "stale owner must not stop the thief")

	f.driver.Stop(f.track2)
	assert.False(t, f.music().IsPlaying())
}

func TestSetPitchRespectsOwnership(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.track1)
	f.driver.Play(f.track2)

	f.driver.SetPitch(f.track1, 1.5)
	assert.Equal(t, 1.0, f.music().Pitch)

	f.driver.SetPitch(f.track2, 1.5)
	assert.Equal(t, 1.5, f.music().Pitch)
}

func TestDedicatedPlayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	engine := f.backend.Channel(audio.DedicatedChannelPrefix + "Engine")

	f.driver.Play(f.engine)
	f.driver.Play(f.engine)
	assert.Equal(t, 1, engine.Plays)
	assert.True(t, f.driver.IsPlaying(f.engine))

	engine.Finish()
	f.driver.Play(f.engine)
	assert.Equal(t, 2, engine.Plays)
}

func TestDedicatedStopAndPitchAlwaysApply(t *testing.T) {
	f := newFixture(t)
	engine := f.backend.Channel(audio.DedicatedChannelPrefix + "Engine")

	f.driver.Play(f.engine)
	f.driver.SetPitch(f.engine, 0.75)
	f.driver.Stop(f.engine)

	assert.Equal(t, 0.75, engine.Pitch)
	assert.False(t, engine.IsPlaying())
}

func TestPlayOneShotKeepsCurrentClip(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.click)
	f.driver.PlayOneShot(f.hover)

	sfx := f.sfx()
	assert.Same(t, f.click, f.driver.Current(audio.SFX))
	assert.Equal(t, "click.wav", sfx.SoundName())
	require.Len(t, sfx.OneShots, 1)
	assert.Equal(t, "hover.wav", sfx.OneShots[0].Name())
	assert.Equal(t, 1, sfx.Plays)
}

func TestPlayOneShotOnDedicatedOverlaps(t *testing.T) {
	f := newFixture(t)
	engine := f.backend.Channel(audio.DedicatedChannelPrefix + "Engine")

	f.driver.Play(f.engine)
	f.driver.PlayOneShot(f.engine)

	assert.Equal(t, 1, engine.Plays)
	assert.Len(t, engine.OneShots, 1)
	assert.True(t, engine.IsPlaying())
}

func TestUnregisteredClipIsIgnored(t *testing.T) {
	f := newFixture(t)
	stray := audio.NewClip("Stray", audiotest.NewSound("stray.ogg"), false)

	f.driver.Play(stray)
	f.driver.PlayOneShot(stray)
	f.driver.Stop(stray)
	f.driver.SetPitch(stray, 2)
	f.driver.Play(nil)
	f.driver.Stop(nil)

	assert.Empty(t, f.backend.Playing())
	assert.False(t, f.driver.IsPlaying(stray))
}

func TestFirstRegistrationWins(t *testing.T) {
	f := newFixture(t, func(cfg *audio.Config, _ *audiotest.Backend) {
		// track1 already lives in the shared music library
		cfg.Libraries = append(cfg.Libraries, &audio.Library{
			Name: "music-dedicated", Category: audio.Music, Dedicated: true,
			Clips: []*audio.Clip{cfg.Libraries[0].Clips[0]},
		})
	})

	assert.Nil(t, f.backend.Channel(audio.DedicatedChannelPrefix+"Track1"))

	route, ok := f.driver.Route(f.track1)
	require.True(t, ok)
	assert.Equal(t, audio.Route{Category: audio.Music}, route)

	f.driver.Play(f.track1)
	assert.Same(t, f.track1, f.driver.Current(audio.Music))
}

func TestPlayTrackedAssignsIncreasingIDs(t *testing.T) {
	f := newFixture(t)

	first := f.driver.PlayTracked(f.loop)
	second := f.driver.PlayTracked(f.loop)

	assert.Equal(t, audio.InstanceID(0), first)
	assert.Equal(t, audio.InstanceID(1), second)
	assert.Equal(t, audio.InvalidInstance, f.driver.PlayTracked(nil))
	assert.Equal(t, 2, f.driver.TrackedCount())

	ch := f.backend.Channel(audio.TrackedChannelPrefix + "Loop/1")
	require.NotNil(t, ch)
	assert.Equal(t, "SFX", ch.Bus)
	assert.True(t, ch.Loop)
	assert.True(t, ch.IsPlaying())

	// persistent channels are never borrowed
	assert.Nil(t, f.sfx().Sound())
}

func TestTrackedScenario(t *testing.T) {
	f := newFixture(t)

	a := f.driver.PlayTracked(f.loop)
	b := f.driver.PlayTracked(f.loop)
	chA := f.backend.Channel(audio.TrackedChannelPrefix + "Loop/0")
	chB := f.backend.Channel(audio.TrackedChannelPrefix + "Loop/1")

	f.driver.StopTracked(a)
	assert.True(t, chA.Destroyed)
	assert.False(t, chA.IsPlaying())
	assert.Equal(t, 0.0, chA.Volume)
	assert.Nil(t, chA.Sound())
	assert.True(t, chB.IsPlaying())

	f.driver.SetPitchTracked(b, 1.25)
	assert.Equal(t, 1.25, chB.Pitch)
	f.driver.SetPitchTracked(a, 3)
	assert.Equal(t, 1.0, chA.Pitch)

	f.driver.StopAll()
	assert.True(t, chB.Destroyed)
	assert.Zero(t, f.driver.TrackedCount())

	// ids are never handed out twice
	assert.Equal(t, audio.InstanceID(2), f.driver.PlayTracked(f.loop))
}

func TestStopTrackedIgnoresUnknownIDs(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		f.driver.StopTracked(audio.InvalidInstance)
		f.driver.StopTracked(42)
		f.driver.SetPitchTracked(42, 2)
	})
}

func TestPlayTrackedRoutesDedicatedAndUnregisteredClips(t *testing.T) {
	f := newFixture(t)
	stray := audio.NewClip("Stray", audiotest.NewSound("stray.ogg"), false)

	f.driver.PlayTracked(f.engine)
	f.driver.PlayTracked(stray)

	assert.Equal(t, "SFX", f.backend.Channel(audio.TrackedChannelPrefix+"Engine/0").Bus)
	assert.Empty(t, f.backend.Channel(audio.TrackedChannelPrefix+"Stray/1").Bus)
}

func TestPlayTrackedChannelFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.FailChannel = func(string) error { return errors.New("voice limit") }

	assert.Equal(t, audio.InvalidInstance, f.driver.PlayTracked(f.loop))
	assert.Zero(t, f.driver.TrackedCount())

	f.backend.FailChannel = nil
	assert.Equal(t, audio.InstanceID(0), f.driver.PlayTracked(f.loop))
}

func TestStopAllLeavesNothingPlaying(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.track1)
	f.driver.Play(f.click)
	f.driver.Play(f.engine)
	f.driver.PlayOneShot(f.hover)
	f.driver.PlayTracked(f.loop)
	f.driver.PlayTracked(f.track2)

	f.driver.StopAll()

	assert.Empty(t, f.backend.Playing())
	assert.Zero(t, f.driver.TrackedCount())
	assert.Zero(t, f.sfx().Voices())
}

func TestSharedChannelFailureDegradesOneCategory(t *testing.T) {
	f := newFixture(t, func(_ *audio.Config, b *audiotest.Backend) {
		b.FailChannel = func(name string) error {
			if name == audio.SharedChannelPrefix+"SFX" {
				return errors.New("no voices left")
			}
			return nil
		}
	})

	failed := f.report.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, audio.ErrBackend)
	assert.Equal(t, 2, f.report.SharedChannels)

	f.driver.Play(f.click)
	f.driver.Play(f.track1)
	assert.Equal(t, []string{audio.SharedChannelPrefix + "Music"}, f.backend.Playing())
}

func TestDedicatedChannelFailureIsReported(t *testing.T) {
	f := newFixture(t, func(_ *audio.Config, b *audiotest.Backend) {
		b.FailChannel = func(name string) error {
			if name == audio.DedicatedChannelPrefix+"Engine" {
				return errors.New("boom")
			}
			return nil
		}
	})

	require.Len(t, f.report.Failed(), 1)
	f.driver.Play(f.engine)
	assert.Empty(t, f.backend.Playing())

	// still routable for tracked playback
	assert.NotEqual(t, audio.InvalidInstance, f.driver.PlayTracked(f.engine))
}

func TestInitWithoutBackendDegrades(t *testing.T) {
	clips := newClips()
	d := audio.New(audio.Config{Volumes: defaultVolumes(), Libraries: clips.libraries()})

	_, err := d.Init()
	require.ErrorIs(t, err, audio.ErrConfiguration)

	assert.NotPanics(t, func() {
		d.Play(clips.track1)
		d.PlayOneShot(clips.click)
		d.Stop(clips.track1)
		d.SetPitch(clips.track1, 2)
		d.StopAll()
		d.ApplySnapshot(audio.NewSnapshot("Pause", "Paused"))
		d.Start()
		d.Shutdown()
	})
	assert.Equal(t, audio.InvalidInstance, d.PlayTracked(clips.loop))

	_, err = d.GetVolume(audio.Music)
	assert.ErrorIs(t, err, audio.ErrConfiguration)
	assert.ErrorIs(t, d.SetVolume(audio.Music, 1), audio.ErrConfiguration)
}

func TestInitWithoutVolumesIsFatal(t *testing.T) {
	d := audio.New(audio.Config{Backend: audiotest.NewBackend()})
	_, err := d.Init()
	assert.ErrorIs(t, err, audio.ErrConfiguration)
}

func TestInitTwiceFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.driver.Init()
	assert.ErrorIs(t, err, audio.ErrConfiguration)
}

func TestStartAppliesSnapshotVolumesAndMusic(t *testing.T) {
	var clips *fixture
	f := newFixture(t, func(cfg *audio.Config, _ *audiotest.Backend) {
		clips = &fixture{track1: cfg.Libraries[0].Clips[0]}
		cfg.DefaultSnapshot = audio.NewSnapshot("Gameplay", "Unpaused")
		cfg.ApplyVolumesOnStart = true
		cfg.PlayMusicOnStart = true
		cfg.AwakeMusic = clips.track1
	})

	f.driver.Start()

	require.Len(t, f.backend.Transitions, 1)
	assert.Equal(t, []string{"Unpaused"}, f.backend.Transitions[0].Targets)
	assert.Equal(t, time.Second, f.backend.Transitions[0].Duration)

	assert.InDelta(t, 0.0, f.backend.Params["MasterVolume"], 1e-9)
	assert.InDelta(t, -6.0206, f.backend.Params["MusicVolume"], 1e-3)
	assert.Same(t, clips.track1, f.driver.Current(audio.Music))
	assert.True(t, f.music().IsPlaying())
}

func TestApplySnapshotFailuresAreAbsorbed(t *testing.T) {
	f := newFixture(t)

	f.driver.ApplySnapshot(nil)
	f.driver.ApplySnapshot(&audio.Snapshot{Name: "broken", Targets: []string{"A", "B"}, Weights: []float64{1}})
	assert.Empty(t, f.backend.Transitions)

	f.backend.FailTransition = errors.New("mixer offline")
	assert.NotPanics(t, func() {
		f.driver.ApplySnapshot(audio.NewSnapshot("Pause", "Paused"))
	})
	assert.Empty(t, f.backend.Transitions)
}

func TestApplySnapshotWithTimeOverridesDuration(t *testing.T) {
	f := newFixture(t)

	f.driver.ApplySnapshotWithTime(audio.NewSnapshot("Pause", "Paused"), 250*time.Millisecond)

	require.Len(t, f.backend.Transitions, 1)
	assert.Equal(t, 250*time.Millisecond, f.backend.Transitions[0].Duration)
}

func TestShutdownDestroysEveryChannel(t *testing.T) {
	f := newFixture(t)

	f.driver.Play(f.track1)
	f.driver.PlayTracked(f.loop)
	f.driver.Shutdown()

	assert.Empty(t, f.backend.Live())
	f.driver.Play(f.track2)
	assert.Empty(t, f.backend.Playing())
	assert.Equal(t, audio.InvalidInstance, f.driver.PlayTracked(f.loop))
}

func TestDriverVolumeDelegates(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.driver.SetVolume(audio.Music, 2))
	v, err := f.driver.GetVolume(audio.Music)
	require.NoError(t, err)
	assert.Equal(t, audio.MaxVolume, v)
	assert.InDelta(t, 0.0, f.backend.Params["MusicVolume"], 1e-9)

	assert.ErrorIs(t, f.driver.SetVolume(audio.Voice, 0.3), audio.ErrConfiguration)
}
