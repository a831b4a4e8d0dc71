package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a PointLight during construction.
type LightBuilderOption func(*pointLight)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - pos: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a pointLight
func WithPosition(pos mgl32.Vec3) LightBuilderOption {
	return func(l *pointLight) {
		l.position = pos
	}
}

// WithColor is an option builder that sets the RGBA color of the light.
//
// Parameters:
//   - color: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a pointLight
func WithColor(color mgl32.Vec4) LightBuilderOption {
	return func(l *pointLight) {
		l.color = color
	}
}

// WithAttenuationDistance sets the distance past which the light contributes nothing. Non-positive values are ignored.
func WithAttenuationDistance(distance float32) LightBuilderOption {
	return func(l *pointLight) {
		if distance > 0 {
			l.attenuationDistance = distance
		}
	}
}

// WithRotating makes Update orbit the light about the world Y axis.
//
// Parameters:
//   - angularSpeed: the orbit rate in radians per second; zero keeps DefaultAngularSpeed
//
// Returns:
//   - LightBuilderOption: a function that applies the rotation option to a pointLight
func WithRotating(angularSpeed float32) LightBuilderOption {
	return func(l *pointLight) {
		l.rotating = true
		if angularSpeed != 0 {
			l.angularSpeed = angularSpeed
		}
	}
}

// WithTargetSize builds the projection for a render target of the given size.
func WithTargetSize(width, height uint32) LightBuilderOption {
	return func(l *pointLight) {
		if width > 0 && height > 0 {
			l.projection = perspectiveFor(width, height)
		}
	}
}
