package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfiler_TickLogsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := NewProfiler(WithClock(clock.now), WithLogger(logger), WithInterval(time.Second))

	for i := 0; i < 9; i++ {
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, buf.String())

	p.RecordAnimationTime(2 * time.Millisecond)
	p.RecordAnimationTime(4 * time.Millisecond)

	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())

	stats := p.Last()
	assert.InDelta(t, 10.0, stats.FPS, 1e-9)
	assert.Equal(t, 3*time.Millisecond, stats.AnimationAvg)
	assert.Equal(t, 2, stats.AnimationRuns)
	assert.Greater(t, stats.SysMB, 0.0)
	assert.Contains(t, buf.String(), "msg=profiler")
	assert.Contains(t, buf.String(), "fps=10")
	assert.Contains(t, buf.String(), "animation_avg=3ms")
}

func TestProfiler_IntervalResets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(WithClock(clock.now), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))), WithInterval(500*time.Millisecond))

	p.RecordAnimationTime(time.Millisecond)
	clock.advance(500 * time.Millisecond)
	require.True(t, p.Tick())

	clock.advance(500 * time.Millisecond)
	require.True(t, p.Tick())
	assert.Equal(t, 0, p.Last().AnimationRuns)
	assert.Equal(t, time.Duration(0), p.Last().AnimationAvg)
	assert.InDelta(t, 2.0, p.Last().FPS, 1e-9)
}

func TestProfiler_DefaultsIgnoreBadOptions(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil), WithClock(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
	assert.False(t, p.Tick())
}
