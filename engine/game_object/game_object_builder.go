package game_object

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is drawn.
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithModel sets the Model of the GameObject.
//
// Parameters:
//   - m: the model to draw
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Model
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mdl = m
	}
}

// WithInstanced draws a static model as a voxel, batched with every other voxel of the same model.
// It has no effect on skinned models.
func WithInstanced(instanced bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.instanced = instanced
	}
}

// WithAnimation selects the clip a skinned object plays once it joins a Scene.
//
// Parameters:
//   - name: the clip name
//   - loop: wrap playback at the clip's duration instead of holding the last pose
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the clip
func WithAnimation(name string, loop bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.clip = name
		obj.loop = loop
	}
}

// WithAnimationSpeed sets the playback speed multiplier. Non-positive values are ignored.
func WithAnimationSpeed(speed float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		if speed > 0 {
			obj.speed = speed
		}
	}
}

// WithAnimationStart sets the playback start time in seconds, staggering objects that share a clip.
func WithAnimationStart(seconds float64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.clipTime = seconds
	}
}

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - pos: the position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(pos mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.initialPosition = pos
	}
}

// WithScale sets the initial per-axis scale.
func WithScale(scale mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.initialScale = scale
	}
}

// WithRotation sets the initial Euler rotation in radians.
func WithRotation(rot mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.initialRotation = rot
	}
}

// WithRotationSpeed sets the rotation speed in radians per second per axis.
func WithRotationSpeed(speed mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.initialRotationSpeed = speed
	}
}
