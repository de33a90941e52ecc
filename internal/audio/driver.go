package audio

import (
	"fmt"
	"time"

	"github.com/decred/slog"
)

// Config is the static input of a Driver.
type Config struct {
	Backend   Backend
	Volumes   []VolumeParam
	Libraries []*Library

	DefaultSnapshot     *Snapshot
	AwakeMusic          *Clip
	PlayMusicOnStart    bool
	ApplyVolumesOnStart bool

	Logger slog.Logger
}

// Report summarizes what Init provisioned.
type Report struct {
	Routes    []Outcome
	Shared    []Outcome
	Dedicated []Outcome

	SharedChannels    int
	DedicatedChannels int
	RoutedClips       int
}

// Failed returns every failed item across the report.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	failed = append(failed, Failed(r.Routes)...)
	failed = append(failed, Failed(r.Shared)...)
	failed = append(failed, Failed(r.Dedicated)...)
	return failed
}

// Driver is the public playback API. It routes every call to a shared,
// dedicated or tracked channel and never exposes the channels themselves.
// A Driver is not safe for concurrent use; call it from the game loop.
type Driver struct {
	cfg Config
	log slog.Logger

	memory   *VolumeMemory
	channels *ChannelRegistry
	router   *ClipRouter
	tracked  *TrackedRegistry

	initialized bool
	closed      bool
}

// New creates a driver. Nothing is allocated on the backend until Init.
func New(cfg Config) *Driver {
	log := cfg.Logger
	if log == nil {
		log = slog.Disabled
	}
	return &Driver{
		cfg:     cfg,
		log:     log,
		tracked: NewTrackedRegistry(),
	}
}

// Init provisions the volume memory, the persistent channels and the router.
// Missing backend or volume configuration is fatal: the error is returned and
// the driver stays degraded, turning every later call into a logged no-op.
// Individual channel failures are only reported.
func (d *Driver) Init() (Report, error) {
	var report Report

	if d.initialized {
		return report, fmt.Errorf("%w: driver already initialized", ErrConfiguration)
	}
	if d.cfg.Backend == nil {
		err := fmt.Errorf("%w: no backend assigned", ErrConfiguration)
		d.log.Criticalf("CRITICAL FAILURE during initialization: %v", err)
		return report, err
	}
	if len(d.cfg.Volumes) == 0 {
		err := fmt.Errorf("%w: no volume params configured", ErrConfiguration)
		d.log.Criticalf("CRITICAL FAILURE during initialization: %v", err)
		return report, err
	}

	d.memory = NewVolumeMemory(d.cfg.Backend, d.cfg.Volumes, d.log)
	d.channels = NewChannelRegistry(d.cfg.Backend, d.log)
	d.router, report.Routes = NewClipRouter(d.cfg.Libraries, d.log)

	report.Shared = d.channels.InitializeSharedChannels(d.memory.Params())
	report.Dedicated = d.channels.InitializeDedicatedChannels(d.cfg.Libraries, d.router, d.memory)

	report.SharedChannels = d.channels.SharedCount()
	report.DedicatedChannels = d.channels.DedicatedCount()
	report.RoutedClips = d.router.Len()

	d.initialized = true
	d.log.Infof("System initialized. Shared channels: %d, Dedicated channels: %d, Routed clips: %d",
		report.SharedChannels, report.DedicatedChannels, report.RoutedClips)

	return report, nil
}

// Start runs the start-up behaviours: default snapshot, pushing every volume
// to the mixer and the awake music.
func (d *Driver) Start() {
	if !d.ready("Start") {
		return
	}

	if d.cfg.DefaultSnapshot != nil {
		d.ApplySnapshot(d.cfg.DefaultSnapshot)
	}
	if d.cfg.ApplyVolumesOnStart {
		d.memory.ApplyAllToMixer()
	}
	if d.cfg.PlayMusicOnStart && d.cfg.AwakeMusic != nil {
		d.Play(d.cfg.AwakeMusic)
	}
}

// Shutdown stops everything and destroys every channel. The driver is
// unusable afterwards.
func (d *Driver) Shutdown() {
	if !d.initialized || d.closed {
		return
	}
	d.StopAll()
	d.channels.Close()
	d.closed = true
	d.log.Info("Audio driver shut down")
}

func (d *Driver) ready(op string) bool {
	switch {
	case d.closed:
		d.log.Warnf("%s ignored: driver is shut down", op)
		return false
	case !d.initialized:
		d.log.Warnf("%s ignored: driver is not initialized", op)
		return false
	}
	return true
}

// Play starts clip on its channel. A dedicated clip that is already playing
// is left alone. A shared clip steals its category channel from whatever was
// playing there.
func (d *Driver) Play(clip *Clip) {
	if !d.ready("Play") {
		return
	}
	if clip == nil {
		d.log.Warn("Failed to Play: clip is nil")
		return
	}

	if ch, ok := d.channels.DedicatedChannel(clip); ok {
		if !ch.IsPlaying() {
			ch.Play()
		}
		return
	}

	route, ok := d.router.Route(clip)
	if !ok {
		d.log.Warnf("Clip %q is not registered in any loaded library", clip.Name)
		return
	}
	if route.Dedicated {
		d.log.Warnf("Failed to Play %q: its dedicated channel was never created", clip.Name)
		return
	}

	ch, ok := d.channels.SharedChannel(route.Category)
	if !ok {
		d.log.Warnf("Failed to Play %q: shared channel for %s not found", clip.Name, route.Category)
		return
	}

	ch.Stop()
	ch.SetSound(clip.Sound)
	ch.SetLoop(clip.Loop)
	ch.Play()
	d.channels.setSharedCurrent(route.Category, clip)
}

// PlayOneShot layers a fire-and-forget voice for clip on its channel without
// changing which clip owns the channel.
func (d *Driver) PlayOneShot(clip *Clip) {
	if !d.ready("PlayOneShot") {
		return
	}
	if clip == nil {
		d.log.Warn("Failed to PlayOneShot: clip is nil")
		return
	}

	if ch, ok := d.channels.DedicatedChannel(clip); ok {
		ch.PlayOneShot(clip.Sound)
		return
	}

	route, ok := d.router.Route(clip)
	if !ok {
		d.log.Warnf("Clip %q is not registered in any loaded library", clip.Name)
		return
	}
	if route.Dedicated {
		d.log.Warnf("Failed to PlayOneShot %q: its dedicated channel was never created", clip.Name)
		return
	}

	if ch, ok := d.channels.SharedChannel(route.Category); ok {
		ch.PlayOneShot(clip.Sound)
	}
}

// owned returns the channel clip currently controls, applying the shared
// channel ownership guard.
func (d *Driver) owned(op string, clip *Clip) (Channel, bool) {
	if clip == nil {
		d.log.Warnf("Failed to %s: clip is nil", op)
		return nil, false
	}

	if ch, ok := d.channels.DedicatedChannel(clip); ok {
		return ch, true
	}

	route, ok := d.router.Route(clip)
	if !ok || route.Dedicated {
		d.log.Debugf("%s %q: clip has no channel", op, clip.Name)
		return nil, false
	}

	ch, ok := d.channels.SharedChannel(route.Category)
	if !ok || d.channels.SharedCurrent(route.Category) != clip {
		return nil, false
	}
	return ch, true
}

// Stop stops clip. A shared channel is only stopped while clip still owns it.
func (d *Driver) Stop(clip *Clip) {
	if !d.ready("Stop") {
		return
	}
	if ch, ok := d.owned("Stop", clip); ok {
		ch.Stop()
	}
}

// SetPitch changes clip's pitch under the same ownership rule as Stop.
func (d *Driver) SetPitch(clip *Clip, pitch float64) {
	if !d.ready("SetPitch") {
		return
	}
	if ch, ok := d.owned("SetPitch", clip); ok {
		ch.SetPitch(pitch)
	}
}

// IsPlaying reports whether clip is audible on the channel it controls.
func (d *Driver) IsPlaying(clip *Clip) bool {
	if !d.initialized || d.closed || clip == nil {
		return false
	}
	if ch, ok := d.channels.DedicatedChannel(clip); ok {
		return ch.IsPlaying()
	}
	route, ok := d.router.Route(clip)
	if !ok || route.Dedicated || d.channels.SharedCurrent(route.Category) != clip {
		return false
	}
	ch, _ := d.channels.SharedChannel(route.Category)
	return ch.IsPlaying()
}

// Current returns the clip that last claimed category's shared channel.
func (d *Driver) Current(category Category) *Clip {
	if !d.initialized {
		return nil
	}
	return d.channels.SharedCurrent(category)
}

// PlayTracked creates a new channel for clip, starts it and returns its id.
// Every id must eventually be passed to StopTracked.
func (d *Driver) PlayTracked(clip *Clip) InstanceID {
	if clip == nil {
		return InvalidInstance
	}
	if !d.ready("PlayTracked") {
		return InvalidInstance
	}

	name := fmt.Sprintf("%s%s/%d", TrackedChannelPrefix, clip.Name, d.tracked.Next())
	ch, err := d.cfg.Backend.NewChannel(name)
	if err != nil {
		d.log.Warnf("Failed to PlayTracked %q: %v", clip.Name, err)
		return InvalidInstance
	}

	if route, ok := d.router.Route(clip); ok {
		if p, ok := d.memory.Param(route.Category); ok {
			ch.SetBus(p.Bus)
		}
	} else {
		d.log.Warnf("Tracked clip %q is not registered in any library. It will play unrouted.", clip.Name)
	}

	ch.SetSound(clip.Sound)
	ch.SetLoop(clip.Loop)
	ch.Play()

	return d.tracked.Add(clip, ch)
}

// StopTracked stops and destroys the instance. Unknown ids are ignored.
func (d *Driver) StopTracked(id InstanceID) {
	if id == InvalidInstance {
		return
	}
	if inst, ok := d.tracked.Remove(id); ok {
		release(inst)
	}
}

// SetPitchTracked changes the pitch of one tracked instance.
func (d *Driver) SetPitchTracked(id InstanceID, pitch float64) {
	if inst, ok := d.tracked.Get(id); ok {
		inst.Channel.SetPitch(pitch)
	}
}

// TrackedCount returns the number of live tracked instances.
func (d *Driver) TrackedCount() int {
	return d.tracked.Len()
}

// StopAll stops every persistent channel and destroys every tracked instance.
func (d *Driver) StopAll() {
	if d.initialized && !d.closed {
		d.channels.StopAll()
	}
	for _, id := range d.tracked.IDs() {
		d.StopTracked(id)
	}
}

// ApplySnapshot blends the mixer toward s over its own transition time.
// Failures are logged.
func (d *Driver) ApplySnapshot(s *Snapshot) {
	if s == nil {
		d.log.Warn("Error applying snapshot: snapshot is nil")
		return
	}
	d.ApplySnapshotWithTime(s, s.TransitionTime)
}

// ApplySnapshotWithTime is ApplySnapshot with a caller supplied duration.
func (d *Driver) ApplySnapshotWithTime(s *Snapshot, transition time.Duration) {
	if !d.ready("ApplySnapshot") {
		return
	}
	if s == nil {
		d.log.Warn("Error applying snapshot (custom time): snapshot is nil")
		return
	}
	if err := d.memory.TransitionToSnapshots(s.Targets, s.Weights, transition); err != nil {
		d.log.Warnf("Error applying snapshot %q: %v", s.Name, err)
	}
}

// SetVolume sets the linear volume of category and pushes it to the mixer.
func (d *Driver) SetVolume(category Category, value float64) error {
	if !d.initialized {
		return fmt.Errorf("%w: driver is not initialized", ErrConfiguration)
	}
	return d.memory.SetVolume(category, value)
}

// GetVolume returns the linear volume of category.
func (d *Driver) GetVolume(category Category) (float64, error) {
	if !d.initialized {
		return 0, fmt.Errorf("%w: driver is not initialized", ErrConfiguration)
	}
	return d.memory.GetVolume(category)
}

// Volumes returns the current volume configuration.
func (d *Driver) Volumes() []VolumeParam {
	if !d.initialized {
		return nil
	}
	return d.memory.Params()
}

// Route exposes the router lookup for diagnostics.
func (d *Driver) Route(clip *Clip) (Route, bool) {
	if !d.initialized {
		return Route{}, false
	}
	return d.router.Route(clip)
}

// Clips returns every routed clip in registration order.
func (d *Driver) Clips() []*Clip {
	if !d.initialized {
		return nil
	}
	return d.router.Clips()
}
