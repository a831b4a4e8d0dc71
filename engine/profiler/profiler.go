package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Stats is one interval's worth of profiling output.
type Stats struct {
	FPS           float64
	HeapMB        float64
	SysMB         float64
	AllocRateMB   float64
	GCCount       uint32
	LastPauseUs   uint64
	MaxPauseUs    uint64
	AnimationAvg  time.Duration
	AnimationRuns int
}

// Profiler tracks frame rate, memory statistics and animation update time.
// Stats are logged through slog at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	animationTotal time.Duration
	animationRuns  int

	last   Stats
	logger *slog.Logger
	now    func() time.Time
}

// NewProfiler creates a new Profiler.
// The update interval defaults to 1 second and the logger to slog.Default().
//
// Parameters:
//   - options: functional options for interval and logger
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// RecordAnimationTime adds one animation update duration to the current interval.
//
// Parameters:
//   - d: the wall time spent posing animators for one frame
func (p *Profiler) RecordAnimationTime(d time.Duration) {
	p.animationTotal += d
	p.animationRuns++
}

// Last returns the stats logged by the most recent completed interval.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include FPS, heap usage, allocation rate, GC count and pause times, total memory
// and the average animation update time.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap bytes. Sys: bytes obtained from the OS.
	stats := Stats{
		FPS:           float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:        float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:         float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:       p.memStats.NumGC,
		AnimationRuns: p.animationRuns,
	}

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := stats.GCCount; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		stats.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > stats.MaxPauseUs {
				stats.MaxPauseUs = pause
			}
		}
	}

	if p.animationRuns > 0 {
		stats.AnimationAvg = p.animationTotal / time.Duration(p.animationRuns)
	}

	p.logger.Info("profiler",
		slog.Float64("fps", stats.FPS),
		slog.Float64("heap_mb", stats.HeapMB),
		slog.Float64("alloc_rate_mb_s", stats.AllocRateMB),
		slog.Uint64("gc", uint64(stats.GCCount)),
		slog.Uint64("gc_last_pause_us", stats.LastPauseUs),
		slog.Uint64("gc_max_pause_us", stats.MaxPauseUs),
		slog.Float64("sys_mb", stats.SysMB),
		slog.Duration("animation_avg", stats.AnimationAvg),
	)

	p.last = stats
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.animationTotal = 0
	p.animationRuns = 0
	return true
}
