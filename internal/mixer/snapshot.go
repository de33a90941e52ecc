package mixer

import (
	"fmt"
	"time"
)

// Levels maps bus names to an attenuation in dB.
type Levels map[string]float64

// Clone returns a copy of l.
func (l Levels) Clone() Levels {
	c := make(Levels, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// blendTargets mixes the named snapshots by weight. Weights are normalized;
// if they sum to zero the result is the neutral state.
func blendTargets(snapshots map[string]Levels, targets []string, weights []float64) (Levels, error) {
	if len(targets) != len(weights) {
		return nil, fmt.Errorf("%d targets but %d weights", len(targets), len(weights))
	}

	var total float64
	for i, name := range targets {
		if _, ok := snapshots[name]; !ok {
			return nil, fmt.Errorf("unknown snapshot %q", name)
		}
		if weights[i] < 0 {
			return nil, fmt.Errorf("snapshot %q: negative weight", name)
		}
		total += weights[i]
	}

	out := Levels{}
	if total == 0 {
		return out, nil
	}
	for i, name := range targets {
		w := weights[i] / total
		for bus, db := range snapshots[name] {
			out[bus] += db * w
		}
	}
	return out, nil
}

// transition interpolates the snapshot levels from one state to another
// with a smoothstep curve.
type transition struct {
	from, to Levels
	elapsed  time.Duration
	duration time.Duration
}

func (t *transition) done() bool {
	return t.elapsed >= t.duration
}

// step advances the transition by dt and returns the current levels.
func (t *transition) step(dt time.Duration) Levels {
	t.elapsed += dt
	if t.done() {
		return t.to.Clone()
	}

	k := smoothstep(float64(t.elapsed) / float64(t.duration))
	out := make(Levels, len(t.from)+len(t.to))
	for bus := range t.from {
		out[bus] = lerp(t.from[bus], t.to[bus], k)
	}
	for bus := range t.to {
		out[bus] = lerp(t.from[bus], t.to[bus], k)
	}
	return out
}

func smoothstep(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return x * x * (3 - 2*x)
}

func lerp(a, b, k float64) float64 {
	return a + (b-a)*k
}
