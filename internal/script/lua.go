package script

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"cyclone-engine/internal/audio"
)

// Compile runs a Lua cue script and returns its timeline. Scripts call the
// cue functions below; wait advances the time at which later cues fire.
//
//	play(clip)  one_shot(clip)  stop(clip)  pitch(clip, p)
//	tracked(clip [, label])  stop_tracked(label)  pitch_tracked(label, p)
//	snapshot(name [, seconds])  blend({targets}, {weights} [, seconds])
//	volume(category, v)  stop_all()  wait(seconds)  now()
//
// Unknown clips, snapshots and categories are script errors. The context
// bounds how long the script may run.
func Compile(ctx context.Context, name, src string, catalog Catalog) ([]*Event, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("failed to open lua %s library: %w", lib.name, err)
		}
	}

	c := &compiler{catalog: catalog}
	for fn, impl := range map[string]lua.LGFunction{
		"play":          c.clipCue(EventPlay),
		"one_shot":      c.clipCue(EventOneShot),
		"stop":          c.clipCue(EventStop),
		"pitch":         c.pitch,
		"tracked":       c.tracked,
		"stop_tracked":  c.stopTracked,
		"pitch_tracked": c.pitchTracked,
		"snapshot":      c.snapshot,
		"blend":         c.blend,
		"volume":        c.volume,
		"stop_all":      c.stopAll,
		"wait":          c.wait,
		"now":           c.now,
	} {
		L.SetGlobal(fn, L.NewFunction(impl))
	}

	chunk, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("cue %s: %w", name, err)
	}
	L.Push(chunk)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("cue %s: %w", name, err)
	}
	return c.events, nil
}

// CompileFile compiles a cue script from disk.
func CompileFile(ctx context.Context, path string, catalog Catalog) ([]*Event, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue %s: %w", path, err)
	}
	return Compile(ctx, filepath.Base(path), string(src), catalog)
}

type compiler struct {
	catalog Catalog
	cursor  time.Duration
	events  []*Event
}

func (c *compiler) add(L *lua.LState, e *Event) int {
	e.At = c.cursor
	if dbg, ok := L.GetStack(1); ok {
		if _, err := L.GetInfo("l", dbg, lua.LNil); err == nil {
			e.Line = dbg.CurrentLine
		}
	}
	c.events = append(c.events, e)
	return 0
}

func (c *compiler) clip(L *lua.LState, n int) *audio.Clip {
	name := L.CheckString(n)
	clip, ok := c.catalog.Clip(name)
	if !ok {
		L.ArgError(n, fmt.Sprintf("unknown clip %q", name))
	}
	return clip
}

func (c *compiler) clipCue(kind int) lua.LGFunction {
	return func(L *lua.LState) int {
		return c.add(L, &Event{Type: kind, Clip: c.clip(L, 1)})
	}
}

func (c *compiler) pitch(L *lua.LState) int {
	clip := c.clip(L, 1)
	return c.add(L, &Event{Type: EventPitch, Clip: clip, Value: checkPitch(L, 2)})
}

func (c *compiler) tracked(L *lua.LState) int {
	clip := c.clip(L, 1)
	label := L.OptString(2, clip.Name)
	return c.add(L, &Event{Type: EventTracked, Clip: clip, Label: label})
}

func (c *compiler) stopTracked(L *lua.LState) int {
	return c.add(L, &Event{Type: EventStopTracked, Label: L.CheckString(1)})
}

func (c *compiler) pitchTracked(L *lua.LState) int {
	label := L.CheckString(1)
	return c.add(L, &Event{Type: EventPitchTracked, Label: label, Value: checkPitch(L, 2)})
}

func (c *compiler) snapshot(L *lua.LState) int {
	name := L.CheckString(1)
	s, ok := c.catalog.Snapshot(name)
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown snapshot %q", name))
	}
	transition := s.TransitionTime
	if L.GetTop() >= 2 {
		transition = checkSeconds(L, 2)
	}
	return c.add(L, &Event{Type: EventSnapshot, Snapshot: s, Transition: transition})
}

func (c *compiler) blend(L *lua.LState) int {
	targets := L.CheckTable(1)
	weights := L.CheckTable(2)
	transition := audio.DefaultTransitionTime
	if L.GetTop() >= 3 {
		transition = checkSeconds(L, 3)
	}

	s := &audio.Snapshot{Name: "blend", TransitionTime: transition}
	for i := 1; i <= targets.Len(); i++ {
		s.Targets = append(s.Targets, lua.LVAsString(targets.RawGetInt(i)))
	}
	for i := 1; i <= weights.Len(); i++ {
		w, ok := weights.RawGetInt(i).(lua.LNumber)
		if !ok {
			L.ArgError(2, "weights must be numbers")
		}
		s.Weights = append(s.Weights, float64(w))
	}
	return c.add(L, &Event{Type: EventSnapshot, Snapshot: s, Transition: transition})
}

func (c *compiler) volume(L *lua.LState) int {
	category, err := audio.ParseCategory(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	v := float64(L.CheckNumber(2))
	return c.add(L, &Event{Type: EventVolume, Category: category, Value: v})
}

func (c *compiler) stopAll(L *lua.LState) int {
	return c.add(L, &Event{Type: EventStopAll})
}

func (c *compiler) wait(L *lua.LState) int {
	c.cursor += checkSeconds(L, 1)
	return 0
}

func (c *compiler) now(L *lua.LState) int {
	L.Push(lua.LNumber(c.cursor.Seconds()))
	return 1
}

func checkSeconds(L *lua.LState, n int) time.Duration {
	v := float64(L.CheckNumber(n))
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		L.ArgError(n, "duration must be a non-negative number of seconds")
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}

func checkPitch(L *lua.LState, n int) float64 {
	v := float64(L.CheckNumber(n))
	if !(v > 0) || math.IsInf(v, 0) {
		L.ArgError(n, "pitch must be positive")
	}
	return v
}
