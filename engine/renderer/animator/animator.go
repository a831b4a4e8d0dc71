package animator

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
)

// animator is the implementation of the Animator interface.
type animator struct {
	backendType  AnimatorBackendType
	backend      AnimatorBackend
	pendingModel model.Model
}

// Animator manages per-instance animation state and stages GPU buffer writes each frame.
//
// It delegates to an AnimatorBackend: the simple backend spins and places instances of a static mesh,
// the skeletal backend poses a skinned model per instance. Skeletal-only methods no-op (or return
// ErrNotSkeletal) on a simple Animator.
type Animator interface {
	// BackendType returns the type of backend this animator is using.
	//
	// Returns:
	//   - AnimatorBackendType: BackendTypeSimple or BackendTypeSkeletal
	BackendType() AnimatorBackendType

	// Model returns the model this animator drives, or nil.
	Model() model.Model

	// SetModel assigns the model. For skeletal animators the model must be skinned and fit the bone table.
	// Existing instances are reset to bind pose.
	//
	// Parameters:
	//   - m: the model
	//
	// Returns:
	//   - error: ErrNotSkinned or ErrBoneTableOverflow
	SetModel(m model.Model) error

	// AddInstance registers a new instance.
	// The simple backend grows its capacity automatically; the skeletal backend treats MaxInstances as a hard cap.
	//
	// Returns:
	//   - uint32: the index of the new instance
	//   - error: ErrNotSkinned if a skeletal animator has no model yet, ErrInstanceLimit when the cap is reached
	AddInstance() (uint32, error)

	// RemoveInstance removes an instance with a swap-remove: the last instance moves into the freed slot.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old index of the instance that was moved (only meaningful when bool is true)
	//   - bool: true if an instance was moved
	RemoveInstance(index uint32) (uint32, bool)

	// InstanceCount returns the current number of instances.
	InstanceCount() uint32

	// MaxInstances returns the current instance capacity, or the instance cap for a skeletal animator.
	MaxInstances() uint32

	// InstanceProvider returns the bind group provider holding an instance's GPU data.
	// The simple backend returns one shared provider for every index.
	//
	// Parameters:
	//   - index: the instance index
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil for an unknown index
	InstanceProvider(index uint32) bind_group_provider.BindGroupProvider

	// PrepareFrame advances animation state by deltaTime seconds and stages the resulting GPU writes.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: joined per-instance evaluation errors
	PrepareFrame(deltaTime float32) error

	// StagedWriteData returns and clears the pending GPU buffer writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// SetInstanceTransform sets the position and scale of an instance.
	SetInstanceTransform(index uint32, pos, scale mgl32.Vec3)

	// InstanceTransform returns the position and scale of an instance.
	InstanceTransform(index uint32) (pos, scale mgl32.Vec3)

	// SetInstanceRotation sets the rotation speed (radians per second per axis) and current Euler rotation.
	SetInstanceRotation(index uint32, rotSpeed, rot mgl32.Vec3)

	// InstanceRotation returns the rotation speed and current Euler rotation of an instance.
	InstanceRotation(index uint32) (rotSpeed, rot mgl32.Vec3)

	// InstanceMatrix returns the model matrix of an instance.
	InstanceMatrix(index uint32) mgl32.Mat4

	// PlayAnimation starts a clip from time 0 at speed 1.
	//
	// Parameters:
	//   - instanceIndex: the instance
	//   - name: the clip name
	//   - loop: wrap playback at the clip's duration instead of holding the last pose
	//
	// Returns:
	//   - error: ErrUnknownAnimation, ErrInstanceOutOfRange or ErrNotSkeletal
	PlayAnimation(instanceIndex uint32, name string, loop bool) error

	// SetAnimationTime sets an instance's playback time in seconds.
	SetAnimationTime(instanceIndex uint32, seconds float64)

	// AnimationTime returns an instance's playback time in seconds.
	AnimationTime(instanceIndex uint32) float64

	// SetAnimationSpeed sets an instance's playback speed multiplier.
	SetAnimationSpeed(instanceIndex uint32, speed float32)

	// BoneTransforms returns a copy of an instance's bone table as of the last PrepareFrame.
	//
	// Parameters:
	//   - instanceIndex: the instance
	//
	// Returns:
	//   - []model.BoneInfo: the bone table indexed by bone id, or nil
	BoneTransforms(instanceIndex uint32) []model.BoneInfo

	// Release frees all GPU resources held by this animator.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates an Animator with the given backend type and options.
//
// Parameters:
//   - backendType: BackendTypeSimple or BackendTypeSkeletal
//   - options: a variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the animator
//   - error: any error from assigning the model
func NewAnimator(backendType AnimatorBackendType, options ...AnimatorBuilderOption) (Animator, error) {
	a := &animator{backendType: backendType}
	switch backendType {
	case BackendTypeSkeletal:
		a.backend = newSkeletalAnimatorBackend()
	default:
		a.backend = newSimpleAnimatorBackend()
	}
	for _, opt := range options {
		opt(a)
	}
	if a.pendingModel != nil {
		if err := a.backend.SetModel(a.pendingModel); err != nil {
			return nil, err
		}
		a.pendingModel = nil
	}
	return a, nil
}

func (a *animator) BackendType() AnimatorBackendType {
	return a.backendType
}

func (a *animator) Model() model.Model {
	return a.backend.Model()
}

func (a *animator) SetModel(m model.Model) error {
	return a.backend.SetModel(m)
}

func (a *animator) AddInstance() (uint32, error) {
	return a.backend.AddInstance()
}

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	return a.backend.RemoveInstance(index)
}

func (a *animator) InstanceCount() uint32 {
	return a.backend.InstanceCount()
}

func (a *animator) MaxInstances() uint32 {
	return a.backend.MaxInstances()
}

func (a *animator) InstanceProvider(index uint32) bind_group_provider.BindGroupProvider {
	return a.backend.InstanceProvider(index)
}

func (a *animator) PrepareFrame(deltaTime float32) error {
	return a.backend.PrepareFrame(deltaTime)
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	return a.backend.StagedWriteData()
}

func (a *animator) SetInstanceTransform(index uint32, pos, scale mgl32.Vec3) {
	a.backend.SetInstanceTransform(index, pos, scale)
}

func (a *animator) InstanceTransform(index uint32) (pos, scale mgl32.Vec3) {
	return a.backend.InstanceTransform(index)
}

func (a *animator) SetInstanceRotation(index uint32, rotSpeed, rot mgl32.Vec3) {
	a.backend.SetInstanceRotation(index, rotSpeed, rot)
}

func (a *animator) InstanceRotation(index uint32) (rotSpeed, rot mgl32.Vec3) {
	return a.backend.InstanceRotation(index)
}

func (a *animator) InstanceMatrix(index uint32) mgl32.Mat4 {
	return a.backend.InstanceMatrix(index)
}

func (a *animator) PlayAnimation(instanceIndex uint32, name string, loop bool) error {
	return a.backend.PlayAnimation(instanceIndex, name, loop)
}

func (a *animator) SetAnimationTime(instanceIndex uint32, seconds float64) {
	a.backend.SetAnimationTime(instanceIndex, seconds)
}

func (a *animator) AnimationTime(instanceIndex uint32) float64 {
	return a.backend.AnimationTime(instanceIndex)
}

func (a *animator) SetAnimationSpeed(instanceIndex uint32, speed float32) {
	a.backend.SetAnimationSpeed(instanceIndex, speed)
}

func (a *animator) BoneTransforms(instanceIndex uint32) []model.BoneInfo {
	return a.backend.BoneTransforms(instanceIndex)
}

func (a *animator) Release() {
	a.backend.Release()
}
