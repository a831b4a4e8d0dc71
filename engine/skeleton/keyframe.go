package skeleton

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
)

// Keyed is any keyframe carrying a timestamp in ticks.
type Keyed interface {
	KeyTime() float64
}

// FindBracketIndex returns the index i of the first key whose successor is strictly later than t.
// When no such key exists (t at or past the last key) it returns 0. The scan is linear from the start.
// Callers must not pass an empty slice; doing so panics.
//
// Parameters:
//   - t: the query time in ticks
//   - keys: keys sorted ascending by time
//
// Returns:
//   - int: the bracket start index
func FindBracketIndex[K Keyed](t float64, keys []K) int {
	if len(keys) == 0 {
		panic("skeleton: FindBracketIndex called with no keys")
	}
	for i := 0; i < len(keys)-1; i++ {
		if t < keys[i+1].KeyTime() {
			return i
		}
	}
	return 0
}

// InterpolationFactor returns (t - t0) / (t1 - t0).
// A factor outside [0, 1] is reported with ErrFactorOutOfRange alongside the raw value.
// Coincident key times yield a factor of 0.
//
// Parameters:
//   - t: the query time
//   - t0: the bracket start time
//   - t1: the bracket end time
//
// Returns:
//   - float32: the factor
//   - error: ErrFactorOutOfRange when the factor is outside [0, 1]
func InterpolationFactor(t, t0, t1 float64) (float32, error) {
	delta := t1 - t0
	if delta == 0 {
		return 0, nil
	}
	f := float32((t - t0) / delta)
	if f < 0 || f > 1 || math32.IsNaN(f) {
		return f, fmt.Errorf("%w: %g at t=%g between %g and %g", ErrFactorOutOfRange, f, t, t0, t1)
	}
	return f, nil
}

// bracket resolves the pair of keys surrounding t according to the time policy.
// The returned done flag means key i is the answer and no interpolation is needed.
func bracket[K Keyed](t float64, keys []K, policy TimePolicy) (i int, f float32, done bool, err error) {
	if len(keys) == 1 {
		return 0, 0, true, nil
	}
	switch policy {
	case TimeClampToEdge:
		if t <= keys[0].KeyTime() {
			return 0, 0, true, nil
		}
		if last := len(keys) - 1; t >= keys[last].KeyTime() {
			return last, 0, true, nil
		}
		i = FindBracketIndex(t, keys)
		f, err = InterpolationFactor(t, keys[i].KeyTime(), keys[i+1].KeyTime())
		return i, f, false, err
	default:
		i = FindBracketIndex(t, keys)
		f, _ = InterpolationFactor(t, keys[i].KeyTime(), keys[i+1].KeyTime())
		return i, mgl32.Clamp(f, 0, 1), false, nil
	}
}

func interpolateVector(t float64, keys []model.VectorKey, policy TimePolicy) (mgl32.Vec3, error) {
	i, f, done, err := bracket(t, keys, policy)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	if done {
		return keys[i].Value, nil
	}
	start, end := keys[i].Value, keys[i+1].Value
	return start.Add(end.Sub(start).Mul(f)), nil
}

// interpolateRotation returns a key verbatim when the time policy lands on it
// and a normalized quaternion otherwise.
func interpolateRotation(t float64, keys []model.QuatKey, policy TimePolicy, mode RotationMode) (mgl32.Quat, error) {
	i, f, done, err := bracket(t, keys, policy)
	if err != nil {
		return mgl32.QuatIdent(), err
	}
	if done {
		return keys[i].Value, nil
	}
	if mode == RotationHoldStart {
		return keys[i].Value.Normalize(), nil
	}
	return mgl32.QuatSlerp(keys[i].Value, keys[i+1].Value, f).Normalize(), nil
}
