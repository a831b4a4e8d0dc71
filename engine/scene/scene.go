package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-skinning/engine/camera"
	"github.com/Carmen-Shannon/oxy-skinning/engine/game_object"
	"github.com/Carmen-Shannon/oxy-skinning/engine/light"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"
)

const (
	// LightUniformBinding is the binding of the point light uniform in the scene light bind group.
	LightUniformBinding = 0

	// ShadowDataBinding is the binding of the shadow projection uniform in the scene light bind group.
	ShadowDataBinding = 1
)

var (
	// ErrNoModel is returned by Add for objects without a Model.
	ErrNoModel = errors.New("scene: object has no model")

	// ErrUnknownAnimation is returned by Add when an object names a clip its model does not have.
	ErrUnknownAnimation = errors.New("scene: unknown animation")
)

// Scene owns the drawable collections of one view: static renderables, instanced voxels and
// animated skinned models, together with a Camera, a PointLight and the Renderer they draw with.
// Objects are grouped into Animators implicitly by Add.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Light returns the scene's point light.
	Light() light.PointLight

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Add places an object in the collection matching its Kind, uploading its mesh on first use.
	// Skinned objects start their configured clip.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object's ID, assigned when it was 0
	//   - error: ErrNoModel, ErrUnknownAnimation or an animator or mesh upload error
	Add(obj game_object.GameObject) (uint64, error)

	// Get returns the object with the given ID, or nil.
	Get(id uint64) game_object.GameObject

	// Remove takes an object out of the scene. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Count returns the number of objects in the scene.
	Count() int

	// Renderables returns the static objects drawn one per call.
	Renderables() []game_object.GameObject

	// Voxels returns the instanced static objects.
	Voxels() []game_object.GameObject

	// Animated returns the skinned objects.
	Animated() []game_object.GameObject

	// Update advances the light and every animator by deltaTime seconds, then flushes the
	// staged camera, light and animator writes to the renderer. Animators run in parallel.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	//
	// Returns:
	//   - error: joined animator and buffer errors
	Update(deltaTime float32) error

	// Render records the shadow pass and then the main pass.
	//
	// Returns:
	//   - error: the first pass or draw error
	Render() error

	// AnimationTime returns how long the animator phase of the last Update took.
	AnimationTime() time.Duration

	// Release frees the GPU resources of every animator and of the light bind group.
	Release()
}

// drawGroup is one Animator and the objects bound to its instances, indexed by instance id.
type drawGroup struct {
	kind    game_object.Kind
	model   model.Model
	anim    animator.Animator
	objects []game_object.GameObject
}

type groupKey struct {
	model model.Model
	kind  game_object.Kind
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam   camera.Camera
	light light.PointLight
	r     renderer.Renderer

	logger      *slog.Logger
	evalOptions []skeleton.EvaluatorBuilderOption

	groups   []*drawGroup
	batched  map[groupKey]*drawGroup
	registry map[uint64]game_object.GameObject
	nextID   uint64

	shadow        light.ShadowSettings
	lightProvider bind_group_provider.BindGroupProvider

	// writePool is reused each frame to avoid per-frame allocations.
	writePool []bind_group_provider.BufferWrite

	// computePool runs the animator phase of Update. Workers persist across frames.
	computePool    worker.DynamicWorkerPool
	computeWorkers int

	animationTime atomic.Int64
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene. The camera and renderer are required and NewScene panics if either is nil.
// Without WithLight the scene gets a default PointLight.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - r: the renderer to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		cam:            cam,
		r:              r,
		logger:         slog.Default(),
		batched:        make(map[groupKey]*drawGroup),
		registry:       make(map[uint64]game_object.GameObject),
		nextID:         1,
		shadow:         light.DefaultShadowSettings(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	if s.light == nil {
		s.light = light.NewPointLight()
	}
	res := uint32(max(s.shadow.Resolution, 1))
	s.light.Initialize(res, res)

	s.lightProvider = bind_group_provider.NewBindGroupProvider(
		"scene_"+name+"_light",
		bind_group_provider.WithUniform(LightUniformBinding, uint64((&light.GPULight{}).Size())),
		bind_group_provider.WithUniform(ShadowDataBinding, uint64((&light.GPUShadowData{}).Size())),
	)

	// Queue size of 256 accommodates typical animator group counts with headroom.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Light() light.PointLight {
	return s.light
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Add(obj game_object.GameObject) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mdl := obj.Model()
	if mdl == nil {
		return 0, ErrNoModel
	}
	clip, loop, speed, start := obj.Clip()
	kind := obj.Kind()
	if kind == game_object.KindAnimated && clip != "" {
		if _, ok := mdl.Animation(clip); !ok {
			return 0, fmt.Errorf("%w: %q on model %q", ErrUnknownAnimation, clip, mdl.Name())
		}
	}

	if mesh := mdl.MeshProvider(); mesh != nil && !mesh.Initialized() {
		if err := s.r.InitMeshBuffers(mesh, mdl.VertexData(), mdl.IndexData(), mdl.IndexCount()); err != nil {
			return 0, fmt.Errorf("scene %q: upload mesh of %q: %w", s.name, mdl.Name(), err)
		}
	}

	group, err := s.groupFor(mdl, kind)
	if err != nil {
		return 0, err
	}

	// Capture the builder transform before binding; afterwards reads go to the animator slot.
	pos, scale, rot, rotSpeed := obj.TransformData()
	idx, err := group.anim.AddInstance()
	if err != nil {
		return 0, fmt.Errorf("scene %q: add instance of %q: %w", s.name, mdl.Name(), err)
	}
	group.anim.SetInstanceTransform(idx, pos, scale)
	group.anim.SetInstanceRotation(idx, rotSpeed, rot)
	if kind == game_object.KindAnimated && clip != "" {
		if err := group.anim.PlayAnimation(idx, clip, loop); err != nil {
			group.anim.RemoveInstance(idx)
			return 0, err
		}
		group.anim.SetAnimationSpeed(idx, speed)
		group.anim.SetAnimationTime(idx, start)
	}

	obj.SetAnimator(group.anim)
	obj.SetAnimatorInstanceID(int(idx))
	group.objects = append(group.objects, obj)

	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
	}
	s.registry[obj.ID()] = obj
	return obj.ID(), nil
}

// groupFor returns the group an object of the given kind joins, creating it when needed.
// Renderables always get their own group. Caller holds s.mu.
func (s *scene) groupFor(mdl model.Model, kind game_object.Kind) (*drawGroup, error) {
	key := groupKey{model: mdl, kind: kind}
	if kind != game_object.KindRenderable {
		if g, ok := s.batched[key]; ok {
			return g, nil
		}
	}

	backendType := animator.BackendTypeSimple
	if kind == game_object.KindAnimated {
		backendType = animator.BackendTypeSkeletal
	}
	opts := []animator.AnimatorBuilderOption{animator.WithLogger(s.logger), animator.WithModel(mdl)}
	if kind == game_object.KindRenderable {
		opts = append(opts, animator.WithMaxInstances(1))
	}
	if backendType == animator.BackendTypeSkeletal && len(s.evalOptions) > 0 {
		opts = append(opts, animator.WithEvaluatorOptions(s.evalOptions...))
	}
	anim, err := animator.NewAnimator(backendType, opts...)
	if err != nil {
		return nil, fmt.Errorf("scene %q: animator for %q: %w", s.name, mdl.Name(), err)
	}

	g := &drawGroup{kind: kind, model: mdl, anim: anim}
	s.groups = append(s.groups, g)
	if kind != game_object.KindRenderable {
		s.batched[key] = g
	}
	s.logger.Debug("scene: new draw group", "scene", s.name, "model", mdl.Name(), "kind", kind)
	return g, nil
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.registry[id]
	if !exists {
		return
	}
	delete(s.registry, id)

	for gi, g := range s.groups {
		if g.anim != obj.Animator() {
			continue
		}
		removedIdx := obj.AnimatorInstanceID()
		if removedIdx < 0 || removedIdx >= len(g.objects) {
			break
		}
		last := len(g.objects) - 1
		if swappedFrom, swapped := g.anim.RemoveInstance(uint32(removedIdx)); swapped {
			// The object in slot swappedFrom moved into removedIdx.
			moved := g.objects[swappedFrom]
			moved.SetAnimatorInstanceID(removedIdx)
			g.objects[removedIdx] = moved
		}
		g.objects[last] = nil
		g.objects = g.objects[:last]
		obj.SetAnimatorInstanceID(-1)
		obj.SetAnimator(nil)

		if g.kind == game_object.KindRenderable {
			g.anim.Release()
			s.groups = append(s.groups[:gi], s.groups[gi+1:]...)
		}
		break
	}
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) collect(kind game_object.Kind) []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []game_object.GameObject
	for _, g := range s.groups {
		if g.kind == kind {
			out = append(out, g.objects...)
		}
	}
	return out
}

func (s *scene) Renderables() []game_object.GameObject {
	return s.collect(game_object.KindRenderable)
}

func (s *scene) Voxels() []game_object.GameObject {
	return s.collect(game_object.KindVoxel)
}

func (s *scene) Animated() []game_object.GameObject {
	return s.collect(game_object.KindAnimated)
}

func (s *scene) AnimationTime() time.Duration {
	return time.Duration(s.animationTime.Load())
}

func (s *scene) Update(deltaTime float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.light.Update(deltaTime)

	// One task per animator. The WaitGroup is the frame barrier; pool.Wait() only
	// returns once workers idle-exit.
	started := time.Now()
	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		errs   []error
		taskID int
	)
	for _, g := range s.groups {
		if g.anim.InstanceCount() == 0 {
			continue
		}
		wg.Add(1)
		group := g
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				if err := group.anim.PrepareFrame(deltaTime); err != nil {
					errMu.Lock()
					errs = append(errs, fmt.Errorf("model %q: %w", group.model.Name(), err))
					errMu.Unlock()
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	s.animationTime.Store(int64(time.Since(started)))

	// Coalesce every write into a single renderer submission.
	allWrites := s.writePool[:0]
	allWrites = append(allWrites, s.cam.StagedWrite())
	allWrites = append(allWrites, s.lightWrites()...)
	for _, g := range s.groups {
		allWrites = append(allWrites, g.anim.StagedWriteData()...)
	}
	s.writePool = allWrites

	if err := s.r.WriteBuffers(allWrites); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// lightWrites stages the light uniform and its shadow projection.
func (s *scene) lightWrites() []bind_group_provider.BufferWrite {
	gpuLight := s.light.GPU()
	var shadow light.GPUShadowData
	shadow.Fill(s.light, s.shadow)
	return []bind_group_provider.BufferWrite{
		{Provider: s.lightProvider, Binding: LightUniformBinding, Data: gpuLight.Marshal()},
		{Provider: s.lightProvider, Binding: ShadowDataBinding, Data: shadow.Marshal()},
	}
}

func (s *scene) Render() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.r.BeginShadowPass(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	drawErr := s.drawPass(pipeline.PassTypeShadow, s.lightProvider)
	if err := s.r.EndShadowPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("scene %q shadow pass: %w", s.name, drawErr)
	}

	if err := s.r.BeginFrame(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	drawErr = s.drawPass(pipeline.PassTypeMain, s.cam.BindGroupProvider(), s.lightProvider)
	if err := s.r.EndFrame(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("scene %q main pass: %w", s.name, drawErr)
	}
	return nil
}

// drawPass records every group into the open pass. The shared providers occupy the leading
// bind group slots and the instance provider the last one. Caller holds s.mu.
func (s *scene) drawPass(pass pipeline.PassType, shared ...bind_group_provider.BindGroupProvider) error {
	bindGroups := make([]bind_group_provider.BindGroupProvider, len(shared)+1)
	copy(bindGroups, shared)
	last := len(shared)

	for _, g := range s.groups {
		count := g.anim.InstanceCount()
		if count == 0 {
			continue
		}
		mesh := g.model.MeshProvider()
		if mesh == nil {
			continue
		}
		p, ok := s.r.ResolvePipeline(pass, g.kind == game_object.KindVoxel, g.kind == game_object.KindAnimated)
		if !ok {
			s.logger.Debug("scene: no pipeline for group", "scene", s.name, "pass", pass, "kind", g.kind)
			continue
		}

		switch g.kind {
		case game_object.KindVoxel:
			bindGroups[last] = g.anim.InstanceProvider(0)
			if err := s.r.Draw(p.PipelineKey(), mesh, count, bindGroups); err != nil {
				return err
			}
		default:
			for i := uint32(0); i < count; i++ {
				if !g.objects[i].Enabled() {
					continue
				}
				bindGroups[last] = g.anim.InstanceProvider(i)
				if err := s.r.Draw(p.PipelineKey(), mesh, 1, bindGroups); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		g.anim.Release()
	}
	s.lightProvider.Release()
	s.cam.BindGroupProvider().Release()
}
