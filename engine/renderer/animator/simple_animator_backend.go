package animator

import (
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/common"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

// simpleAnimatorBackendImpl integrates per-instance rotation and stages one matrix per instance
// into a shared storage buffer, drawn with a single instanced call.
type simpleAnimatorBackendImpl struct {
	mu *sync.Mutex

	logger *slog.Logger
	model  model.Model

	// provider holds the instance matrix array. It is re-declared when capacity grows.
	provider bind_group_provider.BindGroupProvider

	maxInstances uint32
	instances    []instanceTransform

	// matrices is reused every frame; the GPU queue copies written data before returning.
	matrices        []model.GPUModelData
	stagedWriteData []bind_group_provider.BufferWrite
}

var _ AnimatorBackend = &simpleAnimatorBackendImpl{}

func newSimpleAnimatorBackend() AnimatorBackend {
	s := &simpleAnimatorBackendImpl{
		mu:           &sync.Mutex{},
		logger:       slog.Default(),
		maxInstances: 1024,
	}
	s.provider = bind_group_provider.NewBindGroupProvider("animator_instances")
	s.declare()
	return s
}

// declare sizes the instance matrix binding for the current capacity. Caller holds mu.
func (s *simpleAnimatorBackendImpl) declare() {
	stride := uint64((&model.GPUModelData{}).Size())
	s.provider.Declare(InstanceMatricesBinding, stride*uint64(s.maxInstances), true)
}

func (s *simpleAnimatorBackendImpl) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
}

func (s *simpleAnimatorBackendImpl) SetModel(m model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	return nil
}

func (s *simpleAnimatorBackendImpl) Model() model.Model {
	return s.model
}

func (s *simpleAnimatorBackendImpl) AddInstance() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint32(len(s.instances)) >= s.maxInstances {
		s.grow(max(s.maxInstances*2, 8))
	}
	idx := uint32(len(s.instances))
	s.instances = append(s.instances, newInstanceTransform())
	return idx, nil
}

// grow raises capacity and releases the GPU buffer so the Renderer re-creates it at the new size. Caller holds mu.
func (s *simpleAnimatorBackendImpl) grow(newMax uint32) {
	if newMax <= s.maxInstances {
		return
	}
	s.logger.Debug("growing instance buffer", "from", s.maxInstances, "to", newMax)
	s.maxInstances = newMax
	s.provider.Release()
	s.declare()
}

func (s *simpleAnimatorBackendImpl) RemoveInstance(index uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint32(len(s.instances)) {
		return 0, false
	}
	last := uint32(len(s.instances) - 1)
	swapped := index != last
	if swapped {
		s.instances[index] = s.instances[last]
	}
	s.instances = s.instances[:last]
	return last, swapped
}

func (s *simpleAnimatorBackendImpl) InstanceCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.instances))
}

func (s *simpleAnimatorBackendImpl) MaxInstances() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInstances
}

func (s *simpleAnimatorBackendImpl) SetMaxInstances(maxInstances uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxInstances < uint32(len(s.instances)) {
		return
	}
	s.maxInstances = maxInstances
	s.provider.Release()
	s.declare()
}

func (s *simpleAnimatorBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.stagedWriteData
	s.stagedWriteData = nil
	return data
}

func (s *simpleAnimatorBackendImpl) InstanceProvider(uint32) bind_group_provider.BindGroupProvider {
	return s.provider
}

func (s *simpleAnimatorBackendImpl) PrepareFrame(deltaTime float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.instances) == 0 {
		return nil
	}
	s.matrices = s.matrices[:0]
	for i := range s.instances {
		s.instances[i].advance(deltaTime)
		s.matrices = append(s.matrices, model.GPUModelData{Model: s.instances[i].matrix()})
	}
	s.stagedWriteData = append(s.stagedWriteData, bind_group_provider.BufferWrite{
		Provider: s.provider,
		Binding:  InstanceMatricesBinding,
		Data:     common.SliceToBytes(s.matrices),
	})
	return nil
}

func (s *simpleAnimatorBackendImpl) SetInstanceTransform(index uint32, pos, scale mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < uint32(len(s.instances)) {
		s.instances[index].position, s.instances[index].scale = pos, scale
	}
}

func (s *simpleAnimatorBackendImpl) InstanceTransform(index uint32) (pos, scale mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < uint32(len(s.instances)) {
		return s.instances[index].position, s.instances[index].scale
	}
	return
}

func (s *simpleAnimatorBackendImpl) SetInstanceRotation(index uint32, rotSpeed, rot mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < uint32(len(s.instances)) {
		s.instances[index].rotationSpeed, s.instances[index].rotation = rotSpeed, rot
	}
}

func (s *simpleAnimatorBackendImpl) InstanceRotation(index uint32) (rotSpeed, rot mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < uint32(len(s.instances)) {
		return s.instances[index].rotationSpeed, s.instances[index].rotation
	}
	return
}

func (s *simpleAnimatorBackendImpl) InstanceMatrix(index uint32) mgl32.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < uint32(len(s.instances)) {
		return s.instances[index].matrix()
	}
	return mgl32.Ident4()
}

func (s *simpleAnimatorBackendImpl) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider.Release()
	s.stagedWriteData = nil
}

// Skeletal-only methods are no-ops on the simple backend.

func (s *simpleAnimatorBackendImpl) SetEvaluatorOptions(...skeleton.EvaluatorBuilderOption) {}
func (s *simpleAnimatorBackendImpl) PlayAnimation(uint32, string, bool) error  { return ErrNotSkeletal }
func (s *simpleAnimatorBackendImpl) SetAnimationTime(uint32, float64)          {}
func (s *simpleAnimatorBackendImpl) AnimationTime(uint32) float64              { return 0 }
func (s *simpleAnimatorBackendImpl) SetAnimationSpeed(uint32, float32)         {}
func (s *simpleAnimatorBackendImpl) BoneTransforms(uint32) []model.BoneInfo    { return nil }
