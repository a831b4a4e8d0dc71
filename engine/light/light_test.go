package light

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPointLight_Defaults(t *testing.T) {
	l := NewPointLight()

	assert.Equal(t, mgl32.Vec3{0, 0, -5}, l.Position())
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, l.Color())
	assert.False(t, l.Rotating())
	assert.Equal(t, DefaultAngularSpeed, l.AngularSpeed())

	l.Update(1)
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, l.Position())
}

func TestPointLight_ViewLooksAtOrigin(t *testing.T) {
	l := NewPointLight(WithPosition(mgl32.Vec3{3, 4, 0}))

	eye := l.View().Mul4x1(mgl32.Vec4{3, 4, 0, 1})
	assert.InDeltaSlice(t, []float32{0, 0, 0, 1}, eye[:], 1e-5, "got %v", eye)

	origin := l.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{0, 0, -5, 1}, origin[:], 1e-5, "got %v", origin)
}

func TestPointLight_ViewAboveOrigin(t *testing.T) {
	l := NewPointLight(WithPosition(mgl32.Vec3{0, 5, 0}))

	for _, v := range l.View() {
		assert.False(t, math32.IsNaN(v))
	}
	origin := l.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, origin.Z(), 1e-5)
}

func TestPointLight_RotatingOrbitsY(t *testing.T) {
	l := NewPointLight(WithRotating(0))
	assert.True(t, l.Rotating())

	// -2 rad/s for pi/4 seconds is a quarter turn clockwise seen from +Y.
	l.Update(math32.Pi / 4)
	pos := l.Position()
	assert.InDeltaSlice(t, []float32{5, 0, 0}, pos[:], 1e-4, "got %v", pos)

	for i := 0; i < 100; i++ {
		l.Update(0.016)
	}
	assert.InDelta(t, 5, l.Position().Len(), 1e-3)
	assert.InDelta(t, 0, l.Position().Y(), 1e-6)

	origin := l.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, origin.Z(), 1e-3)
}

func TestPointLight_CustomAngularSpeed(t *testing.T) {
	l := NewPointLight(WithRotating(math32.Pi), WithPosition(mgl32.Vec3{2, 1, 0}))
	l.Update(1)
	pos := l.Position()
	assert.InDeltaSlice(t, []float32{-2, 1, 0}, pos[:], 1e-4, "got %v", pos)
}

func TestPointLight_ProjectionAspect(t *testing.T) {
	l := NewPointLight(WithTargetSize(1600, 800))
	p := l.Projection()
	assert.InDelta(t, p.At(1, 1)/2, p.At(0, 0), 1e-5)

	l.Initialize(800, 800)
	p = l.Projection()
	assert.InDelta(t, p.At(1, 1), p.At(0, 0), 1e-5)

	l.Initialize(0, 10)
	assert.Equal(t, p, l.Projection())
}

func TestGPULight_Layout(t *testing.T) {
	l := NewPointLight(WithPosition(mgl32.Vec3{1, 2, 3}), WithColor(mgl32.Vec4{0.5, 0.25, 1, 1}), WithAttenuationDistance(40))
	g := l.GPU()

	assert.Equal(t, 48, g.Size())
	assert.Equal(t, [4]float32{1, 2, 3, 1}, g.Position)
	assert.Equal(t, [4]float32{40, 40, 40, 40}, g.AttenuationDistance)

	buf := g.Marshal()
	assert.Len(t, buf, 48)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, buf[0:4])
}

func TestGPUShadowData_Fill(t *testing.T) {
	l := NewPointLight()
	var s GPUShadowData
	s.Fill(l, DefaultShadowSettings())

	assert.Equal(t, 80, s.Size())
	assert.InDelta(t, 1.0/2048, s.TexelSize[0], 1e-9)
	assert.Equal(t, DefaultShadowBias, s.Bias)

	vp := mgl32.Mat4(s.LightVP)
	assert.Equal(t, l.Projection().Mul4(l.View()), vp)

	// The origin sits in front of the light, inside the depth range.
	clip := vp.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndcZ := clip.Z() / clip.W()
	assert.Greater(t, ndcZ, float32(0))
	assert.Less(t, ndcZ, float32(1))

	assert.Len(t, s.Marshal(), 80)
	assert.Equal(t, float32(0), ShadowSettings{}.TexelSize())
}
