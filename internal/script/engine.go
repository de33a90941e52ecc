package script

import (
	"fmt"
	"time"

	"github.com/decred/slog"

	"cyclone-engine/internal/audio"
)

// Event types
const (
	EventPlay = iota
	EventOneShot
	EventStop
	EventPitch
	EventTracked
	EventStopTracked
	EventPitchTracked
	EventSnapshot
	EventVolume
	EventStopAll
)

// Event states
const (
	EventWait = iota
	EventEnd
)

// Driver is the playback API cues are dispatched to.
type Driver interface {
	Play(clip *audio.Clip)
	PlayOneShot(clip *audio.Clip)
	Stop(clip *audio.Clip)
	SetPitch(clip *audio.Clip, pitch float64)
	PlayTracked(clip *audio.Clip) audio.InstanceID
	StopTracked(id audio.InstanceID)
	SetPitchTracked(id audio.InstanceID, pitch float64)
	StopAll()
	ApplySnapshotWithTime(s *audio.Snapshot, transition time.Duration)
	SetVolume(category audio.Category, value float64) error
}

// Catalog resolves names used by scripts.
type Catalog interface {
	Clip(name string) (*audio.Clip, bool)
	Snapshot(name string) (*audio.Snapshot, bool)
}

// Event is one scheduled cue.
type Event struct {
	Type  int
	State int
	At    time.Duration // offset from script start
	Line  int

	Clip       *audio.Clip
	Snapshot   *audio.Snapshot
	Transition time.Duration
	Category   audio.Category
	Value      float64
	Label      string
}

func (e *Event) String() string {
	switch e.Type {
	case EventPlay:
		return fmt.Sprintf("play %s", e.Clip)
	case EventOneShot:
		return fmt.Sprintf("one_shot %s", e.Clip)
	case EventStop:
		return fmt.Sprintf("stop %s", e.Clip)
	case EventPitch:
		return fmt.Sprintf("pitch %s %g", e.Clip, e.Value)
	case EventTracked:
		return fmt.Sprintf("tracked %s as %s", e.Clip, e.Label)
	case EventStopTracked:
		return fmt.Sprintf("stop_tracked %s", e.Label)
	case EventPitchTracked:
		return fmt.Sprintf("pitch_tracked %s %g", e.Label, e.Value)
	case EventSnapshot:
		return fmt.Sprintf("snapshot %s over %v", e.Snapshot.Name, e.Transition)
	case EventVolume:
		return fmt.Sprintf("volume %s %g", e.Category, e.Value)
	case EventStopAll:
		return "stop_all"
	}
	return fmt.Sprintf("event(%d)", e.Type)
}

// Engine plays a cue timeline against a driver. Time only advances through
// Update, so the same script always produces the same call sequence.
type Engine struct {
	driver Driver
	log    slog.Logger

	name    string
	events  []*Event
	next    int
	elapsed time.Duration
	running bool

	instances map[string]audio.InstanceID

	// OnEvent, when set, is called after each event is dispatched.
	OnEvent func(e *Event)
}

// NewEngine creates a new cue engine
func NewEngine(driver Driver, log slog.Logger) *Engine {
	if log == nil {
		log = slog.Disabled
	}
	return &Engine{
		driver:    driver,
		log:       log,
		instances: make(map[string]audio.InstanceID),
	}
}

// Load replaces the timeline. Running state is reset and every instance the
// previous timeline still holds under a label is stopped.
func (e *Engine) Load(name string, events []*Event) {
	for label, id := range e.instances {
		e.log.Debugf("Cue %s: stopping %s left playing", e.name, label)
		e.driver.StopTracked(id)
	}
	e.name = name
	e.events = events
	e.next = 0
	e.elapsed = 0
	e.running = false
	e.instances = make(map[string]audio.InstanceID)
	e.log.Debugf("Loaded cue %s with %d events", name, len(events))
}

// Start starts the script engine
func (e *Engine) Start() {
	e.running = true
	e.log.Infof("Cue %s started", e.name)
}

// Stop pauses the timeline. Playing sounds are left alone.
func (e *Engine) Stop() {
	e.running = false
	e.log.Infof("Cue %s stopped at %v", e.name, e.elapsed)
}

// Running reports whether the timeline advances on Update.
func (e *Engine) Running() bool {
	return e.running
}

// Finished reports whether every event has been dispatched.
func (e *Engine) Finished() bool {
	return e.next >= len(e.events)
}

// Elapsed returns the timeline position.
func (e *Engine) Elapsed() time.Duration {
	return e.elapsed
}

// Duration returns the offset of the last event.
func (e *Engine) Duration() time.Duration {
	if len(e.events) == 0 {
		return 0
	}
	return e.events[len(e.events)-1].At
}

// Instance returns the tracked id recorded under label.
func (e *Engine) Instance(label string) (audio.InstanceID, bool) {
	id, ok := e.instances[label]
	return id, ok
}

// Update advances the timeline by dt and dispatches every due event in
// script order.
func (e *Engine) Update(dt time.Duration) {
	if !e.running {
		return
	}

	e.elapsed += dt
	for e.next < len(e.events) && e.events[e.next].At <= e.elapsed {
		event := e.events[e.next]
		e.next++
		e.dispatch(event)
	}

	if e.Finished() {
		e.running = false
		e.log.Infof("Cue %s finished", e.name)
	}
}

// RunToEnd dispatches the remaining events, advancing time to the end.
func (e *Engine) RunToEnd() {
	e.running = true
	e.Update(max(0, e.Duration()-e.elapsed))
}

func (e *Engine) dispatch(event *Event) {
	e.log.Debugf("[%v] %s (line %d)", event.At, event, event.Line)

	switch event.Type {
	case EventPlay:
		e.driver.Play(event.Clip)
	case EventOneShot:
		e.driver.PlayOneShot(event.Clip)
	case EventStop:
		e.driver.Stop(event.Clip)
	case EventPitch:
		e.driver.SetPitch(event.Clip, event.Value)
	case EventTracked:
		if prev, ok := e.instances[event.Label]; ok {
			e.log.Warnf("Cue %s line %d: label %q reused, stopping its previous instance",
				e.name, event.Line, event.Label)
			e.driver.StopTracked(prev)
		}
		id := e.driver.PlayTracked(event.Clip)
		if id == audio.InvalidInstance {
			delete(e.instances, event.Label)
		} else {
			e.instances[event.Label] = id
		}
	case EventStopTracked:
		e.driver.StopTracked(e.instance(event.Label))
		delete(e.instances, event.Label)
	case EventPitchTracked:
		e.driver.SetPitchTracked(e.instance(event.Label), event.Value)
	case EventSnapshot:
		e.driver.ApplySnapshotWithTime(event.Snapshot, event.Transition)
	case EventVolume:
		if err := e.driver.SetVolume(event.Category, event.Value); err != nil {
			e.log.Warnf("Cue %s line %d: %v", e.name, event.Line, err)
		}
	case EventStopAll:
		e.driver.StopAll()
		e.instances = make(map[string]audio.InstanceID)
	}

	event.State = EventEnd
	if e.OnEvent != nil {
		e.OnEvent(event)
	}
}

func (e *Engine) instance(label string) audio.InstanceID {
	if id, ok := e.instances[label]; ok {
		return id
	}
	e.log.Warnf("Cue %s: no tracked instance labelled %q", e.name, label)
	return audio.InvalidInstance
}
