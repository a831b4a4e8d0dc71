package animator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

// skeletalInstance is the playback state of one animated instance.
// Each instance owns its bone table; no two instances share one.
type skeletalInstance struct {
	instanceTransform

	clip      *model.Animation
	evaluator skeleton.Evaluator
	time      float64 // seconds
	speed     float32
	loop      bool

	bones    []model.BoneInfo
	provider bind_group_provider.BindGroupProvider
	table    GPUBoneTable
	staging  []byte
	modelBuf model.GPUModelData
}

// skeletalAnimatorBackendImpl poses a skinned model on the CPU for every instance and stages
// each instance's bone table for upload.
type skeletalAnimatorBackendImpl struct {
	mu *sync.Mutex

	logger *slog.Logger

	model        model.Model
	evalOptions  []skeleton.EvaluatorBuilderOption
	evaluators   map[string]skeleton.Evaluator
	bindPose     skeleton.Evaluator
	maxInstances uint32
	instances    []*skeletalInstance

	stagedWriteData []bind_group_provider.BufferWrite
}

var _ AnimatorBackend = &skeletalAnimatorBackendImpl{}

func newSkeletalAnimatorBackend() AnimatorBackend {
	return &skeletalAnimatorBackendImpl{
		mu:           &sync.Mutex{},
		logger:       slog.Default(),
		evaluators:   make(map[string]skeleton.Evaluator),
		maxInstances: 1024,
	}
}

func (s *skeletalAnimatorBackendImpl) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
}

func (s *skeletalAnimatorBackendImpl) SetEvaluatorOptions(options ...skeleton.EvaluatorBuilderOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalOptions = append([]skeleton.EvaluatorBuilderOption{skeleton.WithLogger(s.logger)}, options...)
	s.rebuildEvaluators()
}

func (s *skeletalAnimatorBackendImpl) SetModel(m model.Model) error {
	if m == nil || !m.Skinned() || m.Skeleton() == nil {
		return ErrNotSkinned
	}
	if n := m.Skeleton().Bones.Len(); n > model.MaxBones {
		s.logger.Warn("model bone count exceeds bone table", "model", m.Name(), "bones", n, "capacity", model.MaxBones)
		return fmt.Errorf("%w: model %q has %d bones, capacity %d", ErrBoneTableOverflow, m.Name(), n, model.MaxBones)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	s.rebuildEvaluators()
	for _, inst := range s.instances {
		inst.clip, inst.evaluator, inst.time = nil, s.bindPose, 0
		inst.bones = m.Skeleton().NewBoneTable()
	}
	return nil
}

// rebuildEvaluators recreates one evaluator per clip plus the bind pose evaluator. Caller holds mu.
func (s *skeletalAnimatorBackendImpl) rebuildEvaluators() {
	if s.model == nil {
		return
	}
	opts := s.evalOptions
	if opts == nil {
		opts = []skeleton.EvaluatorBuilderOption{skeleton.WithLogger(s.logger)}
	}
	skel := s.model.Skeleton()
	s.evaluators = make(map[string]skeleton.Evaluator, len(s.model.Animations()))
	for _, a := range s.model.Animations() {
		if _, dup := s.evaluators[a.Name]; !dup {
			s.evaluators[a.Name] = skeleton.NewEvaluator(skel, a, opts...)
		}
	}
	s.bindPose = skeleton.NewEvaluator(skel, nil, opts...)
	for _, inst := range s.instances {
		if inst.clip != nil {
			inst.evaluator = s.evaluators[inst.clip.Name]
		} else {
			inst.evaluator = s.bindPose
		}
	}
}

func (s *skeletalAnimatorBackendImpl) Model() model.Model {
	return s.model
}

func (s *skeletalAnimatorBackendImpl) AddInstance() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return 0, ErrNotSkinned
	}
	if uint32(len(s.instances)) >= s.maxInstances {
		return 0, fmt.Errorf("%w: %d", ErrInstanceLimit, s.maxInstances)
	}
	idx := uint32(len(s.instances))
	inst := &skeletalInstance{
		instanceTransform: newInstanceTransform(),
		evaluator:         s.bindPose,
		speed:             1,
		bones:             s.model.Skeleton().NewBoneTable(),
		provider: bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s_skin_%d", s.model.Name(), idx),
			bind_group_provider.WithUniform(BoneTableBinding, uint64((&GPUBoneTable{}).Size())),
			bind_group_provider.WithUniform(InstanceModelBinding, uint64((&model.GPUModelData{}).Size())),
		),
	}
	s.instances = append(s.instances, inst)
	return idx, nil
}

func (s *skeletalAnimatorBackendImpl) RemoveInstance(index uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint32(len(s.instances)) {
		return 0, false
	}
	last := uint32(len(s.instances) - 1)
	s.instances[index].provider.Release()
	swapped := index != last
	if swapped {
		s.instances[index] = s.instances[last]
	}
	s.instances[last] = nil
	s.instances = s.instances[:last]
	return last, swapped
}

func (s *skeletalAnimatorBackendImpl) InstanceCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.instances))
}

func (s *skeletalAnimatorBackendImpl) MaxInstances() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInstances
}

func (s *skeletalAnimatorBackendImpl) SetMaxInstances(maxInstances uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxInstances = max(maxInstances, uint32(len(s.instances)))
}

func (s *skeletalAnimatorBackendImpl) StagedWriteData() []bind_group_provider.BufferWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.stagedWriteData
	s.stagedWriteData = nil
	return data
}

func (s *skeletalAnimatorBackendImpl) instance(index uint32) *skeletalInstance {
	if index >= uint32(len(s.instances)) {
		return nil
	}
	return s.instances[index]
}

func (s *skeletalAnimatorBackendImpl) InstanceProvider(index uint32) bind_group_provider.BindGroupProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		return inst.provider
	}
	return nil
}

func (s *skeletalAnimatorBackendImpl) PlayAnimation(instanceIndex uint32, name string, loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst := s.instance(instanceIndex)
	if inst == nil {
		return fmt.Errorf("%w: %d", ErrInstanceOutOfRange, instanceIndex)
	}
	ev, ok := s.evaluators[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnimation, name)
	}
	inst.clip = ev.Animation()
	inst.evaluator = ev
	inst.time = 0
	inst.speed = 1
	inst.loop = loop
	return nil
}

func (s *skeletalAnimatorBackendImpl) SetAnimationTime(instanceIndex uint32, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(instanceIndex); inst != nil {
		inst.time = seconds
	}
}

func (s *skeletalAnimatorBackendImpl) AnimationTime(instanceIndex uint32) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(instanceIndex); inst != nil {
		return inst.time
	}
	return 0
}

func (s *skeletalAnimatorBackendImpl) SetAnimationSpeed(instanceIndex uint32, speed float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(instanceIndex); inst != nil {
		inst.speed = speed
	}
}

func (s *skeletalAnimatorBackendImpl) BoneTransforms(instanceIndex uint32) []model.BoneInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst := s.instance(instanceIndex)
	if inst == nil {
		return nil
	}
	out := make([]model.BoneInfo, len(inst.bones))
	copy(out, inst.bones)
	return out
}

// clipTicks converts the instance's playback time to clip ticks.
// Looping clips wrap with fmod over the duration; others clamp to [0, duration].
// A looping instance's time is folded as well so it does not grow without bound.
func (inst *skeletalInstance) clipTicks() float64 {
	if inst.clip == nil {
		return 0
	}
	rate := inst.clip.TicksRate()
	ticks := inst.time * rate
	duration := inst.clip.Duration
	if duration <= 0 {
		return ticks
	}
	if inst.loop {
		ticks = math.Mod(ticks, duration)
		if ticks < 0 {
			ticks += duration
		}
		inst.time = ticks / rate
		return ticks
	}
	return math.Min(math.Max(ticks, 0), duration)
}

// PrepareFrame advances every instance's playback time, poses its skeleton and stages its bone table
// and model matrix. Errors from individual instances are joined; the remaining instances still update.
func (s *skeletalAnimatorBackendImpl) PrepareFrame(deltaTime float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i, inst := range s.instances {
		inst.advance(deltaTime)
		if inst.clip != nil {
			inst.time += float64(deltaTime * inst.speed)
		}
		if err := inst.evaluator.Pose(inst.clipTicks(), inst.bones); err != nil {
			errs = append(errs, fmt.Errorf("instance %d: %w", i, err))
			continue
		}

		inst.table.Fill(inst.bones)
		inst.staging = inst.table.Marshal(inst.staging)
		inst.modelBuf.Model = inst.matrix()
		s.stagedWriteData = append(s.stagedWriteData,
			bind_group_provider.BufferWrite{Provider: inst.provider, Binding: BoneTableBinding, Data: inst.staging},
			bind_group_provider.BufferWrite{Provider: inst.provider, Binding: InstanceModelBinding, Data: inst.modelBuf.Marshal()},
		)
	}
	return errors.Join(errs...)
}

func (s *skeletalAnimatorBackendImpl) SetInstanceTransform(index uint32, pos, scale mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		inst.position, inst.scale = pos, scale
	}
}

func (s *skeletalAnimatorBackendImpl) InstanceTransform(index uint32) (pos, scale mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		return inst.position, inst.scale
	}
	return
}

func (s *skeletalAnimatorBackendImpl) SetInstanceRotation(index uint32, rotSpeed, rot mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		inst.rotationSpeed, inst.rotation = rotSpeed, rot
	}
}

func (s *skeletalAnimatorBackendImpl) InstanceRotation(index uint32) (rotSpeed, rot mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		return inst.rotationSpeed, inst.rotation
	}
	return
}

func (s *skeletalAnimatorBackendImpl) InstanceMatrix(index uint32) mgl32.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.instance(index); inst != nil {
		return inst.matrix()
	}
	return mgl32.Ident4()
}

func (s *skeletalAnimatorBackendImpl) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.instances {
		inst.provider.Release()
	}
	s.stagedWriteData = nil
}
