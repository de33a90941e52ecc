package audio

import (
	"fmt"

	"github.com/decred/slog"
)

// Route is where a clip plays: its category bus, and whether it owns a
// dedicated channel or borrows the category's shared one.
type Route struct {
	Category  Category
	Dedicated bool
}

// ClipRouter is a lookup from clip to route, built once from the libraries.
// It covers both shared and dedicated clips.
type ClipRouter struct {
	routes map[*Clip]Route
	order  []*Clip
}

// NewClipRouter registers every clip of every library. The first library a
// clip appears in decides its route; later appearances are ignored. Libraries
// with an invalid category are skipped and reported.
func NewClipRouter(libraries []*Library, log slog.Logger) (*ClipRouter, []Outcome) {
	if log == nil {
		log = slog.Disabled
	}

	r := &ClipRouter{routes: make(map[*Clip]Route)}
	var outcomes []Outcome

	for i, lib := range libraries {
		if lib == nil {
			continue
		}
		if !lib.Category.Valid() {
			err := fmt.Errorf("%w: library %q has invalid category %v", ErrConfiguration, lib.Name, lib.Category)
			log.Warnf("Skipping library: %v", err)
			outcomes = append(outcomes, Outcome{Item: libraryName(lib, i), Err: err})
			continue
		}

		for _, clip := range lib.Clips {
			if clip == nil {
				continue
			}
			if _, exists := r.routes[clip]; exists {
				continue
			}
			r.routes[clip] = Route{Category: lib.Category, Dedicated: lib.Dedicated}
			r.order = append(r.order, clip)
		}
	}

	return r, outcomes
}

// Route returns the route registered for clip.
func (r *ClipRouter) Route(clip *Clip) (Route, bool) {
	if clip == nil {
		return Route{}, false
	}
	route, ok := r.routes[clip]
	return route, ok
}

// Len returns the number of registered clips.
func (r *ClipRouter) Len() int {
	return len(r.order)
}

// Clips returns the registered clips in registration order.
func (r *ClipRouter) Clips() []*Clip {
	out := make([]*Clip, len(r.order))
	copy(out, r.order)
	return out
}

func libraryName(lib *Library, index int) string {
	if lib.Name != "" {
		return lib.Name
	}
	return fmt.Sprintf("library[%d]", index)
}
