package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-skinning/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skinning/engine/scene"
)

var (
	// ErrUnknownScene is returned when a scene key has no registered scene.
	ErrUnknownScene = errors.New("engine: unknown scene")

	// ErrRunning is returned by Run when the engine loop is already running.
	ErrRunning = errors.New("engine: already running")
)

// DefaultTickRate is the Run rate used when fps <= 0.
const DefaultTickRate = 60.0

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	running bool

	logger           *slog.Logger
	profiler         *profiler.Profiler
	profilingEnabled bool

	tickCallback func(deltaTime float32)

	scenes map[int]scene.Scene
}

// Engine drives a set of scenes: each tick updates the active scenes' animation and then renders them.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Profiler returns the engine's profiler.
	Profiler() *profiler.Profiler

	// SetTickCallback registers the function called at the start of each tick, before any scene updates.
	// Use this for game logic that moves objects or switches animation clips.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given z-index key.
	// Active scenes are updated and rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key and releases it.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// SetActiveScene activates the scene at key and deactivates every other scene.
	//
	// Parameters:
	//   - key: the z-index of the scene to activate
	//
	// Returns:
	//   - error: ErrUnknownScene if no scene is registered at key
	SetActiveScene(key int) error

	// ActiveScenes returns the active scenes in ascending key order.
	ActiveScenes() []scene.Scene

	// Resize forwards a new surface size to the camera of every scene.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	Resize(width, height uint32)

	// Tick runs one frame: the tick callback, then Update and Render on each active scene.
	// A failing scene does not stop the others.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	//
	// Returns:
	//   - error: the joined scene errors
	Tick(deltaTime float32) error

	// Run calls Tick at a fixed rate until ctx is cancelled. Tick errors are logged, not returned.
	//
	// Parameters:
	//   - ctx: cancelling it stops the loop
	//   - fps: ticks per second, DefaultTickRate when <= 0
	//
	// Returns:
	//   - error: ErrRunning if the loop is already running, otherwise ctx.Err()
	Run(ctx context.Context, fps float64) error

	// Release releases every registered scene.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, logger, scenes)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:     &sync.Mutex{},
		logger: slog.Default(),
		scenes: make(map[int]scene.Scene),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	return e
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	s, ok := e.scenes[key]
	delete(e.scenes, key)
	e.mu.Unlock()

	if ok {
		s.Release()
	}
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) SetActiveScene(key int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.scenes[key]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScene, key)
	}
	for k, s := range e.scenes {
		s.SetActive(k == key)
	}
	return nil
}

func (e *engine) ActiveScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeScenes()
}

// activeScenes collects active scenes in ascending z-index order. Callers hold e.mu.
func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Resize(width, height uint32) {
	for _, s := range e.Scenes() {
		if c := s.Camera(); c != nil {
			c.Resize(width, height)
		}
	}
}

func (e *engine) Tick(deltaTime float32) error {
	e.mu.Lock()
	callback := e.tickCallback
	profiling := e.profilingEnabled
	active := e.activeScenes()
	e.mu.Unlock()

	if callback != nil {
		callback(deltaTime)
	}

	var (
		errs          []error
		animationTime time.Duration
	)
	for _, s := range active {
		if err := s.Update(deltaTime); err != nil {
			errs = append(errs, fmt.Errorf("scene %q update: %w", s.Name(), err))
		}
		animationTime += s.AnimationTime()

		if err := s.Render(); err != nil {
			errs = append(errs, fmt.Errorf("scene %q render: %w", s.Name(), err))
		}
	}

	if profiling {
		e.profiler.RecordAnimationTime(animationTime)
		e.profiler.Tick()
	}

	return errors.Join(errs...)
}

func (e *engine) Run(ctx context.Context, fps float64) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if fps <= 0 {
		fps = DefaultTickRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if err := e.Tick(dt); err != nil {
				e.logger.Error("tick failed", slog.Any("error", err))
			}
		}
	}
}

func (e *engine) Release() {
	for _, s := range e.Scenes() {
		s.Release()
	}
}
