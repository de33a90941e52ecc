package audio

import (
	"fmt"

	"github.com/decred/slog"
)

// sharedChannel is a category channel plus the clip that last claimed it.
type sharedChannel struct {
	ch      Channel
	current *Clip
}

// ChannelRegistry owns the persistent channel pool: one shared channel per
// category and one dedicated channel per dedicated clip. The pool is created
// once and never grows afterwards.
type ChannelRegistry struct {
	backend   Backend
	shared    map[Category]*sharedChannel
	dedicated map[*Clip]Channel
	log       slog.Logger
}

// NewChannelRegistry creates an empty registry on backend.
func NewChannelRegistry(backend Backend, log slog.Logger) *ChannelRegistry {
	if log == nil {
		log = slog.Disabled
	}
	return &ChannelRegistry{
		backend:   backend,
		shared:    make(map[Category]*sharedChannel),
		dedicated: make(map[*Clip]Channel),
		log:       log,
	}
}

// InitializeSharedChannels creates one stopped, non-looping channel per
// category, routed to the param's bus. A failed category is reported and the
// rest continue.
func (r *ChannelRegistry) InitializeSharedChannels(params []VolumeParam) []Outcome {
	outcomes := make([]Outcome, 0, len(params))

	for _, p := range params {
		o := Outcome{Item: SharedChannelPrefix + p.Category.String()}
		if _, exists := r.shared[p.Category]; exists {
			continue
		}

		ch, err := r.backend.NewChannel(SharedChannelPrefix + p.Name)
		if err != nil {
			o.Err = fmt.Errorf("%w: shared channel for %s: %w", ErrBackend, p.Category, err)
			r.log.Errorf("Failed to create shared channel for %s: %v", p.Name, err)
			outcomes = append(outcomes, o)
			continue
		}

		ch.SetBus(p.Bus)
		ch.SetLoop(false)
		r.shared[p.Category] = &sharedChannel{ch: ch}
		outcomes = append(outcomes, o)
	}

	return outcomes
}

// InitializeDedicatedChannels creates a pre-configured channel for every clip
// the router assigned to a dedicated library. Clips are routed to their
// category's bus when memory knows it, and left unrouted otherwise.
func (r *ChannelRegistry) InitializeDedicatedChannels(libraries []*Library, router *ClipRouter, memory *VolumeMemory) []Outcome {
	var outcomes []Outcome

	for _, lib := range libraries {
		if lib == nil || !lib.Dedicated {
			continue
		}

		param, hasBus := memory.Param(lib.Category)

		for _, clip := range lib.Clips {
			route, ok := router.Route(clip)
			if !ok || !route.Dedicated || route.Category != lib.Category {
				// registered by an earlier library
				continue
			}
			if _, exists := r.dedicated[clip]; exists {
				continue
			}

			o := Outcome{Item: DedicatedChannelPrefix + clip.Name}
			if clip.Sound == nil {
				o.Err = fmt.Errorf("%w: clip %q has no sound", ErrValidation, clip.Name)
				r.log.Warnf("Error processing clip %q in library %q: %v", clip.Name, lib.Name, o.Err)
				outcomes = append(outcomes, o)
				continue
			}

			ch, err := r.backend.NewChannel(DedicatedChannelPrefix + clip.Name)
			if err != nil {
				o.Err = fmt.Errorf("%w: dedicated channel for %q: %w", ErrBackend, clip.Name, err)
				r.log.Warnf("Error processing clip %q in library %q: %v", clip.Name, lib.Name, err)
				outcomes = append(outcomes, o)
				continue
			}

			if hasBus {
				ch.SetBus(param.Bus)
			} else {
				r.log.Warnf("No bus found for dedicated clip %q (%s). It will play unrouted.", clip.Name, lib.Category)
			}
			ch.SetSound(clip.Sound)
			ch.SetLoop(clip.Loop)

			r.dedicated[clip] = ch
			outcomes = append(outcomes, o)
		}
	}

	return outcomes
}

// SharedChannel returns the shared channel for category.
func (r *ChannelRegistry) SharedChannel(category Category) (Channel, bool) {
	sc, ok := r.shared[category]
	if !ok {
		return nil, false
	}
	return sc.ch, true
}

// SharedCurrent returns the clip last assigned to category's shared channel.
func (r *ChannelRegistry) SharedCurrent(category Category) *Clip {
	if sc, ok := r.shared[category]; ok {
		return sc.current
	}
	return nil
}

func (r *ChannelRegistry) setSharedCurrent(category Category, clip *Clip) {
	if sc, ok := r.shared[category]; ok {
		sc.current = clip
	}
}

// DedicatedChannel returns the channel bound to clip, if any.
func (r *ChannelRegistry) DedicatedChannel(clip *Clip) (Channel, bool) {
	if clip == nil {
		return nil, false
	}
	ch, ok := r.dedicated[clip]
	return ch, ok
}

// SharedCount returns the number of shared channels.
func (r *ChannelRegistry) SharedCount() int {
	return len(r.shared)
}

// DedicatedCount returns the number of dedicated channels.
func (r *ChannelRegistry) DedicatedCount() int {
	return len(r.dedicated)
}

// StopAll stops every persistent channel.
func (r *ChannelRegistry) StopAll() {
	for _, sc := range r.shared {
		sc.ch.Stop()
	}
	for _, ch := range r.dedicated {
		ch.Stop()
	}
}

// Close destroys every persistent channel and empties the registry.
func (r *ChannelRegistry) Close() {
	for category, sc := range r.shared {
		sc.ch.Stop()
		sc.ch.Destroy()
		delete(r.shared, category)
	}
	for clip, ch := range r.dedicated {
		ch.Stop()
		ch.Destroy()
		delete(r.dedicated, clip)
	}
}
