package game_object

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/animator"
)

// Kind selects the drawable collection a GameObject joins when added to a Scene.
type Kind int

const (
	// KindRenderable is a static mesh drawn on its own.
	KindRenderable Kind = iota

	// KindVoxel is a static mesh drawn together with every other voxel of the same model in one instanced call.
	KindVoxel

	// KindAnimated is a skinned model posed from one of its clips.
	KindAnimated
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindRenderable:
		return "renderable"
	case KindVoxel:
		return "voxel"
	case KindAnimated:
		return "animated"
	}
	return "unknown"
}

type gameObject struct {
	id                 uint64
	enabled            atomic.Bool
	instanced          bool
	mdl                model.Model
	animator           animator.Animator
	animatorInstanceID int

	clip     string
	loop     bool
	speed    float32
	clipTime float64

	// initial transform state used before the object is added to a Scene
	initialPosition      mgl32.Vec3
	initialScale         mgl32.Vec3
	initialRotation      mgl32.Vec3
	initialRotationSpeed mgl32.Vec3
}

// GameObject defines the interface for a scene entity bound to an Animator instance.
// Position, rotation, and scale are derived from the Animator's internal arrays
// via the animatorInstanceID, eliminating per-object data duplication.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's identifier. Scenes assign one to objects added with ID 0.
	SetID(id uint64)

	// Enabled returns whether this object is drawn. Voxels are drawn as one batch per model and ignore it.
	Enabled() bool

	// SetEnabled enables or disables drawing of this object.
	SetEnabled(enabled bool)

	// Kind returns the drawable collection of the object: skinned models are animated,
	// instanced static models are voxels and everything else is a renderable.
	Kind() Kind

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Animator returns the Animator associated with this object.
	//
	// Returns:
	//   - animator.Animator: the associated Animator, or nil
	Animator() animator.Animator

	// SetAnimator binds the object to an Animator. Called by the Scene.
	SetAnimator(anim animator.Animator)

	// AnimatorInstanceID returns the object's instance slot in its Animator, or -1 once removed.
	AnimatorInstanceID() int

	// SetAnimatorInstanceID updates the instance slot. Called by the Scene after swap-removes.
	SetAnimatorInstanceID(instanceID int)

	// Clip returns the clip the object plays once added to a Scene.
	//
	// Returns:
	//   - name: the clip name, empty for bind pose
	//   - loop: whether playback wraps at the clip's duration
	//   - speed: the playback speed multiplier
	//   - start: the start time in seconds
	Clip() (name string, loop bool, speed float32, start float64)

	// Position returns the world-space position.
	Position() mgl32.Vec3

	// SetPosition sets the world-space position.
	SetPosition(pos mgl32.Vec3)

	// Scale returns the per-axis scale.
	Scale() mgl32.Vec3

	// SetScale sets the per-axis scale.
	SetScale(scale mgl32.Vec3)

	// Rotation returns the Euler rotation in radians.
	Rotation() mgl32.Vec3

	// SetRotation sets the Euler rotation in radians.
	SetRotation(rot mgl32.Vec3)

	// RotationSpeed returns the rotation speed in radians per second per axis.
	RotationSpeed() mgl32.Vec3

	// SetRotationSpeed sets the rotation speed in radians per second per axis.
	SetRotationSpeed(speed mgl32.Vec3)

	// TransformData returns every transform component at once.
	TransformData() (pos, scale, rot, rotSpeed mgl32.Vec3)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled GameObject at the origin with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		initialScale:       mgl32.Vec3{1, 1, 1},
		animatorInstanceID: -1,
		speed:              1,
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Kind() Kind {
	switch {
	case g.mdl != nil && g.mdl.Skinned():
		return KindAnimated
	case g.instanced:
		return KindVoxel
	}
	return KindRenderable
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Animator() animator.Animator {
	return g.animator
}

func (g *gameObject) SetAnimator(anim animator.Animator) {
	g.animator = anim
}

func (g *gameObject) AnimatorInstanceID() int {
	return g.animatorInstanceID
}

func (g *gameObject) SetAnimatorInstanceID(instanceID int) {
	g.animatorInstanceID = instanceID
}

func (g *gameObject) Clip() (name string, loop bool, speed float32, start float64) {
	return g.clip, g.loop, g.speed, g.clipTime
}

// bound reports whether transform reads and writes go through the animator.
func (g *gameObject) bound() bool {
	return g.animator != nil && g.animatorInstanceID >= 0
}

func (g *gameObject) Position() mgl32.Vec3 {
	if !g.bound() {
		return g.initialPosition
	}
	pos, _ := g.animator.InstanceTransform(uint32(g.animatorInstanceID))
	return pos
}

func (g *gameObject) SetPosition(pos mgl32.Vec3) {
	if !g.bound() {
		g.initialPosition = pos
		return
	}
	_, scale := g.animator.InstanceTransform(uint32(g.animatorInstanceID))
	g.animator.SetInstanceTransform(uint32(g.animatorInstanceID), pos, scale)
}

func (g *gameObject) Scale() mgl32.Vec3 {
	if !g.bound() {
		return g.initialScale
	}
	_, scale := g.animator.InstanceTransform(uint32(g.animatorInstanceID))
	return scale
}

func (g *gameObject) SetScale(scale mgl32.Vec3) {
	if !g.bound() {
		g.initialScale = scale
		return
	}
	pos, _ := g.animator.InstanceTransform(uint32(g.animatorInstanceID))
	g.animator.SetInstanceTransform(uint32(g.animatorInstanceID), pos, scale)
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	if !g.bound() {
		return g.initialRotation
	}
	_, rot := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	return rot
}

func (g *gameObject) SetRotation(rot mgl32.Vec3) {
	if !g.bound() {
		g.initialRotation = rot
		return
	}
	rotSpeed, _ := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	g.animator.SetInstanceRotation(uint32(g.animatorInstanceID), rotSpeed, rot)
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	if !g.bound() {
		return g.initialRotationSpeed
	}
	rotSpeed, _ := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	return rotSpeed
}

func (g *gameObject) SetRotationSpeed(speed mgl32.Vec3) {
	if !g.bound() {
		g.initialRotationSpeed = speed
		return
	}
	_, rot := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	g.animator.SetInstanceRotation(uint32(g.animatorInstanceID), speed, rot)
}

func (g *gameObject) TransformData() (pos, scale, rot, rotSpeed mgl32.Vec3) {
	if !g.bound() {
		return g.initialPosition, g.initialScale, g.initialRotation, g.initialRotationSpeed
	}
	pos, scale = g.animator.InstanceTransform(uint32(g.animatorInstanceID))
	rotSpeed, rot = g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	return
}
