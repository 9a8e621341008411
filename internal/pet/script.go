package pet

import (
	"fmt"
	"math"
	"os"
	"sync"

	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// scriptEntry is the function a PET script must define.
const scriptEntry = "pet"

// Script evaluates a user-supplied Starlark function:
//
//	def pet(d):
//	    return max(0.0, d.temperature - d.temperature_offset) * d.day_length / d.scaling_factor * d.days_per_step
//
// The function receives a struct with the fields temperature, latitude,
// longitude, day_of_year, day_length, days_per_step, temperature_offset,
// scaling_factor, subcatchment and land_cover, and must return a number.
type Script struct {
	name string
	fn   starlark.Callable
	pool *threadPool
}

// LoadScript reads and compiles a PET script file.
func LoadScript(path string, workers int) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pet script: %w", err)
	}
	return CompileScript(path, src, workers)
}

// CompileScript executes src once and keeps its pet function. The module
// globals are frozen so the function can be called from several workers.
func CompileScript(name string, src []byte, workers int) (*Script, error) {
	thread := &starlark.Thread{Name: name, Print: func(*starlark.Thread, string) {}}
	predeclared := starlark.StringDict{"math": starlarkmath.Module}

	globals, err := starlark.ExecFileOptions(syntax.LegacyFileOptions(), thread, name, src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("failed to load pet script %s: %w", name, err)
	}
	globals.Freeze()

	fn, ok := globals[scriptEntry].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("pet script %s does not define a %s() function", name, scriptEntry)
	}

	return &Script{name: name, fn: fn, pool: newThreadPool(workers)}, nil
}

func (s *Script) Estimate(in Inputs) (float64, error) {
	thread := s.pool.get(s.name)
	defer s.pool.put(thread)

	arg := starlarkstruct.FromStringDict(starlark.String("inputs"), starlark.StringDict{
		"temperature":        starlark.Float(in.Temperature),
		"latitude":           starlark.Float(in.Latitude),
		"longitude":          starlark.Float(in.Longitude),
		"day_of_year":        starlark.MakeInt(in.Time.YearDay()),
		"day_length":         starlark.Float(DayLength(in.Time, in.Latitude, in.Longitude)),
		"days_per_step":      starlark.Float(in.DaysPerStep),
		"temperature_offset": starlark.Float(in.TemperatureOffset),
		"scaling_factor":     starlark.Float(in.ScalingFactor),
		"subcatchment":       starlark.String(in.Subcatchment),
		"land_cover":         starlark.String(in.LandCover),
	})

	v, err := starlark.Call(thread, s.fn, starlark.Tuple{arg}, nil)
	if err != nil {
		return 0, fmt.Errorf("pet script %s: %w", s.name, err)
	}
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("pet script %s returned %s, want a number", s.name, v.Type())
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("pet script %s returned non-finite value %g", s.name, f)
	}
	return f, nil
}

// threadPool recycles Starlark threads between calls.
type threadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
}

func newThreadPool(maxSize int) *threadPool {
	if maxSize <= 0 {
		maxSize = 8
	}
	return &threadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
	}
}

func (p *threadPool) get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.threads); n > 0 {
		thread := p.threads[n-1]
		p.threads = p.threads[:n-1]
		thread.Name = name
		return thread
	}
	return &starlark.Thread{
		Name:  name,
		Print: func(*starlark.Thread, string) {},
	}
}

func (p *threadPool) put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		thread.Name = ""
		p.threads = append(p.threads, thread)
	}
}

func (p *threadPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
