package animator

import (
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/common"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

var (
	// ErrBoneTableOverflow is returned when a model has more bones than the GPU bone table holds.
	ErrBoneTableOverflow = errors.New("animator: skeleton exceeds bone table capacity")

	// ErrNotSkinned is returned when a skeletal animator is given a model without bones.
	ErrNotSkinned = errors.New("animator: model has no skeleton")

	// ErrUnknownAnimation is returned when a clip name does not exist on the model.
	ErrUnknownAnimation = errors.New("animator: unknown animation")

	// ErrInstanceOutOfRange is returned for instance indices past InstanceCount.
	ErrInstanceOutOfRange = errors.New("animator: instance index out of range")

	// ErrInstanceLimit is returned when a skeletal animator already holds MaxInstances instances.
	ErrInstanceLimit = errors.New("animator: instance limit reached")

	// ErrNotSkeletal is returned when a skeletal-only operation is called on a simple animator.
	ErrNotSkeletal = errors.New("animator: operation requires a skeletal backend")
)

// AnimatorBackendType identifies the type of animation backend used by an Animator.
type AnimatorBackendType int

const (
	// BackendTypeSimple animates per-instance position, rotation and scale.
	BackendTypeSimple AnimatorBackendType = iota

	// BackendTypeSkeletal poses a skinned model per instance from its animation clips.
	BackendTypeSkeletal
)

// String returns the backend name used in logs.
func (t AnimatorBackendType) String() string {
	switch t {
	case BackendTypeSimple:
		return "simple"
	case BackendTypeSkeletal:
		return "skeletal"
	}
	return "unknown"
}

// simpleAnimatorBackend is the method set shared by every backend.
type simpleAnimatorBackend interface {
	AddInstance() (uint32, error)
	RemoveInstance(index uint32) (uint32, bool)
	InstanceCount() uint32
	MaxInstances() uint32
	SetMaxInstances(maxInstances uint32)
	StagedWriteData() []bind_group_provider.BufferWrite
	PrepareFrame(deltaTime float32) error
	InstanceProvider(index uint32) bind_group_provider.BindGroupProvider
	SetInstanceTransform(index uint32, pos, scale mgl32.Vec3)
	InstanceTransform(index uint32) (pos, scale mgl32.Vec3)
	SetInstanceRotation(index uint32, rotSpeed, rot mgl32.Vec3)
	InstanceRotation(index uint32) (rotSpeed, rot mgl32.Vec3)
	InstanceMatrix(index uint32) mgl32.Mat4
	SetModel(m model.Model) error
	Model() model.Model
	SetLogger(logger *slog.Logger)
	Release()
}

// skeletalAnimatorBackend is the method set specific to skinned playback.
type skeletalAnimatorBackend interface {
	SetEvaluatorOptions(options ...skeleton.EvaluatorBuilderOption)
	PlayAnimation(instanceIndex uint32, name string, loop bool) error
	SetAnimationTime(instanceIndex uint32, seconds float64)
	AnimationTime(instanceIndex uint32) float64
	SetAnimationSpeed(instanceIndex uint32, speed float32)
	BoneTransforms(instanceIndex uint32) []model.BoneInfo
}

// AnimatorBackend is the union interface that all animation backends implement.
// Methods that do not apply to a backend type are no-ops or return ErrNotSkeletal.
type AnimatorBackend interface {
	simpleAnimatorBackend
	skeletalAnimatorBackend
}

// instanceTransform is the placement state shared by both backends.
type instanceTransform struct {
	position, scale         mgl32.Vec3
	rotation, rotationSpeed mgl32.Vec3
}

func newInstanceTransform() instanceTransform {
	return instanceTransform{scale: mgl32.Vec3{1, 1, 1}}
}

// advance integrates the rotation speed (radians per second) over deltaTime.
func (t *instanceTransform) advance(deltaTime float32) {
	if t.rotationSpeed == (mgl32.Vec3{}) {
		return
	}
	for i := range t.rotation {
		t.rotation[i] = common.WrapAngle(t.rotation[i] + t.rotationSpeed[i]*deltaTime)
	}
}

func (t *instanceTransform) matrix() mgl32.Mat4 {
	return common.BuildModelMatrix(t.position, t.rotation, t.scale)
}
