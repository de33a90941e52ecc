package audio

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category identifies a logical mixer bus a group of clips is routed through.
type Category int

const (
	Master Category = iota
	Music
	SFX
	Voice
	UI

	numCategories
)

var categoryNames = [numCategories]string{"Master", "Music", "SFX", "Voice", "UI"}

// Volume constants. MinVolume stays above zero so the decibel mapping is finite.
const (
	MinVolume     = 0.0001
	MaxVolume     = 1.0
	DefaultVolume = 0.5
)

// DefaultTransitionTime is used for snapshots authored without a duration.
const DefaultTransitionTime = time.Second

// Channel name prefixes, used by backends for debugging output
const (
	SharedChannelPrefix    = "shared/"
	DedicatedChannelPrefix = "dedicated/"
	TrackedChannelPrefix   = "tracked/"
)

// InstanceID identifies a tracked playback instance.
type InstanceID int

// InvalidInstance is returned when no instance could be created.
const InvalidInstance InstanceID = -1

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves a category name, ignoring case.
func ParseCategory(name string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "master":
		return Master, nil
	case "music", "bgm":
		return Music, nil
	case "sfx", "se":
		return SFX, nil
	case "voice", "voices":
		return Voice, nil
	case "ui":
		return UI, nil
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrConfiguration, name)
}

// Sound is an audio handle produced by a backend. The driver only passes it
// around and compares it; it never inspects the data.
type Sound interface {
	Name() string
}

// Clip is a logical sound asset. Clips are referenced by pointer and never
// modified after creation.
type Clip struct {
	Name  string
	Sound Sound
	Loop  bool
}

// NewClip creates a clip for the given backend sound
func NewClip(name string, sound Sound, loop bool) *Clip {
	return &Clip{Name: name, Sound: sound, Loop: loop}
}

func (c *Clip) String() string {
	if c == nil {
		return "<nil clip>"
	}
	return c.Name
}

// Library groups clips under one category. When Dedicated is set every clip
// gets its own persistent channel, otherwise the clips share the category's
// channel.
type Library struct {
	Name      string
	Category  Category
	Dedicated bool
	Clips     []*Clip
}

// VolumeParam binds a category to a mixer bus and the exposed parameter that
// controls its gain.
type VolumeParam struct {
	Name     string
	Category Category
	Bus      string
	Param    string
	Volume   float64
}

// Gain returns the decibel value for the stored linear volume.
func (p VolumeParam) Gain() float64 {
	return LinearToDecibels(p.Volume)
}

// Snapshot is a request to blend the mixer toward one or more target states.
type Snapshot struct {
	Name           string
	Targets        []string
	Weights        []float64
	TransitionTime time.Duration
}

// NewSnapshot creates a single-target snapshot with full weight.
func NewSnapshot(name, target string) *Snapshot {
	return &Snapshot{
		Name:           name,
		Targets:        []string{target},
		Weights:        []float64{1},
		TransitionTime: DefaultTransitionTime,
	}
}

// ClampVolume limits v to [MinVolume, MaxVolume]. NaN maps to MinVolume.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// LinearToDecibels converts a linear volume to gain using 20*log10.
func LinearToDecibels(v float64) float64 {
	if math.IsNaN(v) {
		v = MinVolume
	}
	return 20 * math.Log10(math.Max(v, MinVolume))
}

// DecibelsToLinear is the inverse of LinearToDecibels.
func DecibelsToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
