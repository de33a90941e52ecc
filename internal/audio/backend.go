package audio

import "time"

// Mixer is the part of the backend that owns bus gains and snapshots.
type Mixer interface {
	// SetParam writes a gain in decibels to an exposed parameter. It fails
	// when the parameter is not exposed.
	SetParam(name string, db float64) error
	// TransitionToSnapshots blends toward the weighted targets over d.
	TransitionToSnapshots(targets []string, weights []float64, d time.Duration) error
}

// Backend is the playback capability the driver consumes.
type Backend interface {
	Mixer
	// NewChannel creates a stopped, unrouted channel with no sound assigned.
	NewChannel(name string) (Channel, error)
}

// Channel is one physical voice. Stop silences the main voice and every
// one-shot layered on top of it. A destroyed channel must not be used again.
type Channel interface {
	SetSound(s Sound)
	Sound() Sound
	SetLoop(loop bool)
	// SetBus routes the channel output; an empty name leaves it unrouted.
	SetBus(bus string)
	Play()
	Stop()
	IsPlaying() bool
	// PlayOneShot layers a fire-and-forget voice without touching the
	// assigned sound.
	PlayOneShot(s Sound)
	SetPitch(pitch float64)
	SetVolume(v float64)
	Destroy()
}
