package light

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/common"
)

// DefaultAngularSpeed is the rotation rate of a rotating light about the world Y axis, in radians per second.
const DefaultAngularSpeed float32 = -2.0

const (
	projectionFovY = math32.Pi / 4
	projectionNear = 0.01
	projectionFar  = 1000.0
)

// pointLight is the implementation of the PointLight interface.
type pointLight struct {
	mu *sync.RWMutex

	position            mgl32.Vec3
	color               mgl32.Vec4
	attenuationDistance float32

	rotating     bool
	angularSpeed float32

	at, up     mgl32.Vec3
	view       mgl32.Mat4
	projection mgl32.Mat4
}

// PointLight is a light that emits in all directions from a position and casts a shadow
// from a perspective view aimed at the world origin.
type PointLight interface {
	// Position returns the world-space position of the light.
	Position() mgl32.Vec3

	// SetPosition moves the light and recomputes its view matrix.
	SetPosition(pos mgl32.Vec3)

	// Color returns the RGBA color of the light.
	Color() mgl32.Vec4

	// SetColor sets the RGBA color of the light.
	SetColor(color mgl32.Vec4)

	// AttenuationDistance returns the distance past which the light contributes nothing.
	AttenuationDistance() float32

	// Rotating reports whether Update orbits the light about the world Y axis.
	Rotating() bool

	// AngularSpeed returns the orbit rate in radians per second.
	AngularSpeed() float32

	// View returns the light's view matrix, looking from the light position at the origin.
	View() mgl32.Mat4

	// Projection returns the light's perspective projection.
	Projection() mgl32.Mat4

	// Initialize builds the projection for a render target of the given size.
	//
	// Parameters:
	//   - width: target width in pixels
	//   - height: target height in pixels
	Initialize(width, height uint32)

	// Update advances the light by deltaTime seconds. Static lights do nothing.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Update(deltaTime float32)

	// GPU returns the light packed for upload.
	GPU() GPULight
}

var _ PointLight = &pointLight{}

// NewPointLight creates a white point light at (0, 0, -5) with a square projection.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - PointLight: the light
func NewPointLight(opts ...LightBuilderOption) PointLight {
	l := &pointLight{
		mu:                  &sync.RWMutex{},
		position:            mgl32.Vec3{0, 0, -5},
		color:               mgl32.Vec4{1, 1, 1, 1},
		attenuationDistance: 100,
		angularSpeed:        DefaultAngularSpeed,
		up:                  mgl32.Vec3{0, 1, 0},
		projection:          perspectiveFor(1, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lookAt()
	return l
}

func perspectiveFor(width, height uint32) mgl32.Mat4 {
	return common.Perspective(projectionFovY, float32(width)/float32(height), projectionNear, projectionFar)
}

// lookAt recomputes the view matrix. Caller holds mu or owns l exclusively.
func (l *pointLight) lookAt() {
	up := l.up
	dir := l.at.Sub(l.position)
	if dir.Len() > 0 && math32.Abs(dir.Normalize().Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	l.view = mgl32.LookAtV(l.position, l.at, up)
}

func (l *pointLight) Position() mgl32.Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.position
}

func (l *pointLight) SetPosition(pos mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = pos
	l.lookAt()
}

func (l *pointLight) Color() mgl32.Vec4 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.color
}

func (l *pointLight) SetColor(color mgl32.Vec4) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *pointLight) AttenuationDistance() float32 {
	return l.attenuationDistance
}

func (l *pointLight) Rotating() bool {
	return l.rotating
}

func (l *pointLight) AngularSpeed() float32 {
	return l.angularSpeed
}

func (l *pointLight) View() mgl32.Mat4 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.view
}

func (l *pointLight) Projection() mgl32.Mat4 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.projection
}

func (l *pointLight) Initialize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.projection = perspectiveFor(width, height)
}

func (l *pointLight) Update(deltaTime float32) {
	if !l.rotating {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = mgl32.HomogRotate3DY(l.angularSpeed * deltaTime).Mul4x1(l.position.Vec4(1)).Vec3()
	l.lookAt()
}

func (l *pointLight) GPU() GPULight {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return GPULight{
		Position:            l.position.Vec4(1),
		Color:               l.color,
		AttenuationDistance: [4]float32{l.attenuationDistance, l.attenuationDistance, l.attenuationDistance, l.attenuationDistance},
	}
}
