package mixer

import (
	"fmt"
	"math"
)

// SilenceDB is the attenuation at and below which a bus is muted.
const SilenceDB = -80.0

// Bus is a node of the mixing graph. A channel routed to a bus is
// attenuated by the bus and all its ancestors.
type Bus struct {
	Name   string
	Param  string // exposed gain parameter, empty for none
	Parent string
}

// busGraph holds the gain state of every bus: the exposed parameter set by
// the game and the level blended in from snapshots, both in dB.
type busGraph struct {
	buses    map[string]Bus
	params   map[string]string // param name -> bus name
	gain     map[string]float64
	snapshot Levels
}

func newBusGraph(buses []Bus) (*busGraph, error) {
	g := &busGraph{
		buses:    make(map[string]Bus, len(buses)),
		params:   make(map[string]string),
		gain:     make(map[string]float64, len(buses)),
		snapshot: Levels{},
	}
	for _, b := range buses {
		if b.Name == "" {
			return nil, fmt.Errorf("bus without a name")
		}
		if _, dup := g.buses[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bus %q", b.Name)
		}
		g.buses[b.Name] = b
		if b.Param != "" {
			if other, dup := g.params[b.Param]; dup {
				return nil, fmt.Errorf("parameter %q exposed by %q and %q", b.Param, other, b.Name)
			}
			g.params[b.Param] = b.Name
		}
	}
	for _, b := range buses {
		if b.Parent == "" {
			continue
		}
		if _, ok := g.buses[b.Parent]; !ok {
			return nil, fmt.Errorf("bus %q has unknown parent %q", b.Name, b.Parent)
		}
		depth := 0
		for name := b.Parent; name != ""; name = g.buses[name].Parent {
			if name == b.Name || depth > len(buses) {
				return nil, fmt.Errorf("bus %q is its own ancestor", b.Name)
			}
			depth++
		}
	}
	return g, nil
}

func (g *busGraph) has(bus string) bool {
	_, ok := g.buses[bus]
	return ok
}

func (g *busGraph) setParam(param string, db float64) error {
	bus, ok := g.params[param]
	if !ok {
		return fmt.Errorf("parameter %q is not exposed", param)
	}
	if math.IsNaN(db) {
		return fmt.Errorf("parameter %q: gain is NaN", param)
	}
	g.gain[bus] = db
	return nil
}

func (g *busGraph) param(param string) (float64, bool) {
	bus, ok := g.params[param]
	if !ok {
		return 0, false
	}
	return g.gain[bus], true
}

// effective returns the total attenuation of a bus in dB. Unknown or empty
// bus names are unattenuated.
func (g *busGraph) effective(bus string) float64 {
	var db float64
	for name := bus; name != ""; name = g.buses[name].Parent {
		if _, ok := g.buses[name]; !ok {
			break
		}
		db += g.gain[name] + g.snapshot[name]
	}
	return db
}

// linear converts the effective attenuation of a bus to a player volume.
func (g *busGraph) linear(bus string) float64 {
	db := g.effective(bus)
	if db <= SilenceDB {
		return 0
	}
	return math.Min(1, math.Pow(10, db/20))
}
