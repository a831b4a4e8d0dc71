package skeleton

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
)

func vecKeys(times []float64, xs []float32) []model.VectorKey {
	keys := make([]model.VectorKey, len(times))
	for i := range times {
		keys[i] = model.VectorKey{Time: times[i], Value: mgl32.Vec3{xs[i], 0, 0}}
	}
	return keys
}

func TestFindBracketIndex(t *testing.T) {
	keys := vecKeys([]float64{0, 10, 20}, []float32{0, 10, 40})

	tests := []struct {
		name string
		t    float64
		want int
	}{
		{"before first", -5, 0},
		{"at first", 0, 0},
		{"inside first bracket", 5, 0},
		{"on second key", 10, 1},
		{"inside second bracket", 15, 1},
		{"on last key", 20, 0},
		{"after last", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindBracketIndex(tt.t, keys))
		})
	}
}

func TestFindBracketIndex_SingleKey(t *testing.T) {
	keys := vecKeys([]float64{3}, []float32{1})
	assert.Equal(t, 0, FindBracketIndex(-1, keys))
	assert.Equal(t, 0, FindBracketIndex(50, keys))
}

func TestFindBracketIndex_PanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { FindBracketIndex(0, []model.VectorKey{}) })
}

func TestInterpolationFactor(t *testing.T) {
	f, err := InterpolationFactor(5, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), f)

	f, err = InterpolationFactor(10, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, float32(1), f)

	_, err = InterpolationFactor(15, 0, 10)
	assert.ErrorIs(t, err, ErrFactorOutOfRange)

	_, err = InterpolationFactor(-1, 0, 10)
	assert.ErrorIs(t, err, ErrFactorOutOfRange)

	f, err = InterpolationFactor(4, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, float32(0), f)
}

func TestInterpolateVector_OutOfRangePolicies(t *testing.T) {
	keys := vecKeys([]float64{0, 10, 20}, []float32{0, 10, 40})

	tests := []struct {
		name   string
		policy TimePolicy
		t      float64
		wantX  float32
	}{
		{"clamp inside", TimeClampToEdge, 15, 25},
		{"clamp after last", TimeClampToEdge, 100, 40},
		{"clamp before first", TimeClampToEdge, -5, 0},
		{"wrap-first inside", TimeWrapFirst, 15, 25},
		{"wrap-first after last", TimeWrapFirst, 100, 10},
		{"wrap-first before first", TimeWrapFirst, -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := interpolateVector(tt.t, keys, tt.policy)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantX, v[0], 1e-5)
		})
	}
}

func TestInterpolateVector_SingleKeyIsVerbatim(t *testing.T) {
	keys := []model.VectorKey{{Time: 7, Value: mgl32.Vec3{1, 2, 3}}}
	for _, policy := range []TimePolicy{TimeClampToEdge, TimeWrapFirst} {
		for _, tm := range []float64{-10, 0, 7, 1e6} {
			v, err := interpolateVector(tm, keys, policy)
			require.NoError(t, err)
			assert.Equal(t, mgl32.Vec3{1, 2, 3}, v)
		}
	}
}

func TestInterpolateRotation_Modes(t *testing.T) {
	yAxis := mgl32.Vec3{0, 1, 0}
	keys := []model.QuatKey{
		{Time: 0, Value: mgl32.QuatIdent()},
		{Time: 10, Value: mgl32.QuatRotate(math32.Pi/2, yAxis)},
	}

	q, err := interpolateRotation(5, keys, TimeClampToEdge, RotationSlerp)
	require.NoError(t, err)
	assert.True(t, q.OrientationEqualThreshold(mgl32.QuatRotate(math32.Pi/4, yAxis), 1e-5), "got %v", q)
	assert.InDelta(t, 1.0, q.Len(), 1e-5)

	q, err = interpolateRotation(5, keys, TimeClampToEdge, RotationHoldStart)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.W, 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0, 0}, q.V[:], 1e-6)
}

func TestInterpolateRotation_TakesShortestArc(t *testing.T) {
	yAxis := mgl32.Vec3{0, 1, 0}
	end := mgl32.QuatRotate(math32.Pi/2, yAxis).Scale(-1)
	keys := []model.QuatKey{
		{Time: 0, Value: mgl32.QuatIdent()},
		{Time: 10, Value: end},
	}

	q, err := interpolateRotation(5, keys, TimeClampToEdge, RotationSlerp)
	require.NoError(t, err)
	assert.True(t, q.OrientationEqualThreshold(mgl32.QuatRotate(math32.Pi/4, yAxis), 1e-5), "got %v", q)
}

func TestInterpolateRotation_HoldNormalizes(t *testing.T) {
	keys := []model.QuatKey{{Time: 0, Value: mgl32.Quat{W: 2}}, {Time: 10, Value: mgl32.QuatIdent()}}
	q, err := interpolateRotation(3, keys, TimeClampToEdge, RotationHoldStart)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.W, 1e-6)
}

func TestInterpolateRotation_SingleKeyIsVerbatim(t *testing.T) {
	key := mgl32.Quat{W: 2, V: mgl32.Vec3{0, 1, 0}}
	keys := []model.QuatKey{{Time: 4, Value: key}}
	for _, mode := range []RotationMode{RotationSlerp, RotationHoldStart} {
		for _, tm := range []float64{-1, 4, 100} {
			q, err := interpolateRotation(tm, keys, TimeWrapFirst, mode)
			require.NoError(t, err)
			assert.Equal(t, key, q)
		}
	}
}
