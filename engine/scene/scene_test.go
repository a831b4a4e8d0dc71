package scene

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-skinning/engine/camera"
	"github.com/Carmen-Shannon/oxy-skinning/engine/game_object"
	"github.com/Carmen-Shannon/oxy-skinning/engine/light"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"
)

type recordedDraw struct {
	key        string
	instances  uint32
	bindGroups []bind_group_provider.BindGroupProvider
}

// fakeBackend records what the scene asks the renderer to do.
type fakeBackend struct {
	mu     sync.Mutex
	meshes int
	writes []bind_group_provider.BufferWrite
	draws  []recordedDraw
}

func (f *fakeBackend) InitMeshBuffers(p bind_group_provider.BindGroupProvider, _, _ []byte, indexCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meshes++
	p.SetIndexCount(indexCount)
	return nil
}

func (f *fakeBackend) InitUniforms(bind_group_provider.BindGroupProvider) error { return nil }

func (f *fakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writes...)
}

func (f *fakeBackend) BeginShadowPass() error { return nil }
func (f *fakeBackend) EndShadowPass() error   { return nil }
func (f *fakeBackend) BeginFrame() error      { return nil }
func (f *fakeBackend) EndFrame() error        { return nil }
func (f *fakeBackend) Release()               {}

func (f *fakeBackend) Draw(p pipeline.Pipeline, _ bind_group_provider.BindGroupProvider, n uint32, bgs []bind_group_provider.BindGroupProvider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = append(f.draws, recordedDraw{
		key:        p.PipelineKey(),
		instances:  n,
		bindGroups: append([]bind_group_provider.BindGroupProvider(nil), bgs...),
	})
	return nil
}

func (f *fakeBackend) writesFor(p bind_group_provider.BindGroupProvider) []bind_group_provider.BufferWrite {
	var out []bind_group_provider.BufferWrite
	for _, w := range f.writes {
		if w.Provider == p {
			out = append(out, w)
		}
	}
	return out
}

func triangle() []model.ImportedMesh {
	v := func(x, y float32) model.GPUSkinnedVertex {
		var sv model.GPUSkinnedVertex
		sv.Position = mgl32.Vec3{x, y, 0}
		sv.BoneWeights[0] = 1
		return sv
	}
	return []model.ImportedMesh{{
		Name:     "tri",
		Vertices: []model.GPUSkinnedVertex{v(0, 0), v(1, 0), v(0, 1)},
		Indices:  []uint32{0, 1, 2},
	}}
}

func cubeModel() model.Model {
	return model.NewModel(model.WithName("cube"), model.WithMeshes(triangle()))
}

// liftModel is a single bone "hip" whose "lift" clip raises it from y=1 to y=3 over one second.
func liftModel() model.Model {
	hip := &model.Node{Name: "hip", Transform: mgl32.Translate3D(0, 1, 0)}
	root := &model.Node{Name: "Armature", Transform: mgl32.Ident4(), Children: []*model.Node{hip}}
	bones := model.NewBoneNameIndex()
	bones.GetOrAssignID("hip")
	bones.Freeze()
	lift := &model.Animation{
		Name:           "lift",
		Duration:       10,
		TicksPerSecond: 10,
		Channels: []model.NodeAnimation{{
			NodeName: "hip",
			PositionKeys: []model.VectorKey{
				{Time: 0, Value: mgl32.Vec3{0, 1, 0}},
				{Time: 10, Value: mgl32.Vec3{0, 3, 0}},
			},
			RotationKeys: []model.QuatKey{{Time: 0, Value: mgl32.QuatIdent()}},
			ScaleKeys:    []model.VectorKey{{Time: 0, Value: mgl32.Vec3{1, 1, 1}}},
		}},
	}
	return model.NewModel(
		model.WithName("lifter"),
		model.WithSkeleton(&model.Skeleton{
			Root:          root,
			Bones:         bones,
			BoneInfo:      []model.BoneInfo{{Offset: mgl32.Translate3D(0, -1, 0)}},
			GlobalInverse: mgl32.Ident4(),
		}),
		model.WithAnimations([]*model.Animation{lift}),
		model.WithMeshes(triangle()),
	)
}

func allPipelines() []pipeline.Pipeline {
	return []pipeline.Pipeline{
		pipeline.NewPipeline("static", pipeline.PassTypeMain),
		pipeline.NewPipeline("voxel", pipeline.PassTypeMain, pipeline.WithInstanced(true)),
		pipeline.NewPipeline("skinned", pipeline.PassTypeMain, pipeline.WithSkinned(true)),
		pipeline.NewPipeline("static_shadow", pipeline.PassTypeShadow),
	}
}

func newTestScene(t *testing.T, options ...SceneBuilderOption) (*scene, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	r, err := renderer.NewRenderer(renderer.BackendTypeCustom, renderer.WithBackend(backend), renderer.WithPipelines(allPipelines()...))
	require.NoError(t, err)
	options = append([]SceneBuilderOption{WithComputeWorkers(2)}, options...)
	s := NewScene("test", camera.NewCamera(), r, options...)
	return s.(*scene), backend
}

func add(t *testing.T, s Scene, opts ...game_object.GameObjectBuilderOption) game_object.GameObject {
	t.Helper()
	obj := game_object.NewGameObject(opts...)
	_, err := s.Add(obj)
	require.NoError(t, err)
	return obj
}

func TestNewScene_RequiresCameraAndRenderer(t *testing.T) {
	assert.Panics(t, func() { NewScene("x", nil, nil) })
}

func TestScene_AddSortsIntoCollections(t *testing.T) {
	s, backend := newTestScene(t)
	cube, rig := cubeModel(), liftModel()

	add(t, s, game_object.WithModel(cube))
	add(t, s, game_object.WithModel(cube))
	for i := 0; i < 3; i++ {
		add(t, s, game_object.WithModel(cube), game_object.WithInstanced(true))
	}
	add(t, s, game_object.WithModel(rig), game_object.WithAnimation("lift", true))
	add(t, s, game_object.WithModel(rig))

	assert.Len(t, s.Renderables(), 2)
	assert.Len(t, s.Voxels(), 3)
	assert.Len(t, s.Animated(), 2)
	assert.Equal(t, 7, s.Count())
	assert.Equal(t, 2, backend.meshes)

	// Two renderable groups, one voxel batch and one skeletal animator.
	assert.Len(t, s.groups, 4)
	assert.Same(t, s.Voxels()[0].Animator(), s.Voxels()[2].Animator())
	assert.NotSame(t, s.Renderables()[0].Animator(), s.Renderables()[1].Animator())
}

func TestScene_AddErrors(t *testing.T) {
	s, _ := newTestScene(t)

	_, err := s.Add(game_object.NewGameObject())
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = s.Add(game_object.NewGameObject(game_object.WithModel(liftModel()), game_object.WithAnimation("jump", false)))
	assert.ErrorIs(t, err, ErrUnknownAnimation)
	assert.Equal(t, 0, s.Count())
}

func TestScene_AddAssignsIDs(t *testing.T) {
	s, _ := newTestScene(t)

	first := add(t, s, game_object.WithModel(cubeModel()))
	fixed := add(t, s, game_object.WithModel(cubeModel()), game_object.WithID(42))

	assert.Equal(t, uint64(1), first.ID())
	assert.Equal(t, uint64(42), fixed.ID())
	assert.Same(t, fixed, s.Get(42))
	assert.Nil(t, s.Get(7))
}

func TestScene_UpdatePosesAndStages(t *testing.T) {
	s, backend := newTestScene(t)
	walker := add(t, s, game_object.WithModel(liftModel()), game_object.WithAnimation("lift", false))
	voxel := add(t, s, game_object.WithModel(cubeModel()), game_object.WithInstanced(true), game_object.WithPosition(mgl32.Vec3{2, 0, 0}))

	require.NoError(t, s.Update(0.5))

	bones := walker.Animator().BoneTransforms(uint32(walker.AnimatorInstanceID()))
	require.Len(t, bones, 1)
	assert.InDelta(t, 1, bones[0].Final.Col(3)[1], 1e-5)

	assert.Len(t, backend.writesFor(s.cam.BindGroupProvider()), 1)
	assert.Len(t, backend.writesFor(s.lightProvider), 2)
	assert.NotEmpty(t, backend.writesFor(walker.Animator().InstanceProvider(0)))
	assert.Len(t, backend.writesFor(voxel.Animator().InstanceProvider(0)), 1)
	assert.True(t, s.lightProvider.Initialized())
}

func TestScene_UpdateRotatesLight(t *testing.T) {
	l := light.NewPointLight(light.WithRotating(0), light.WithPosition(mgl32.Vec3{0, 0, -5}))
	s, _ := newTestScene(t, WithLight(l))

	require.NoError(t, s.Update(0.25))
	assert.NotEqual(t, mgl32.Vec3{0, 0, -5}, s.Light().Position())
	assert.InDelta(t, 5, s.Light().Position().Len(), 1e-4)
}

func TestScene_RenderPasses(t *testing.T) {
	s, backend := newTestScene(t)
	cube, rig := cubeModel(), liftModel()

	add(t, s, game_object.WithModel(cube))
	for i := 0; i < 3; i++ {
		add(t, s, game_object.WithModel(cube), game_object.WithInstanced(true))
	}
	add(t, s, game_object.WithModel(rig), game_object.WithAnimation("lift", true))
	add(t, s, game_object.WithModel(rig), game_object.WithEnabled(false))

	require.NoError(t, s.Update(0.016))
	require.NoError(t, s.Render())

	var keys []string
	for _, d := range backend.draws {
		keys = append(keys, d.key)
	}
	// Only static meshes have a shadow pipeline; the disabled rig is skipped.
	assert.Equal(t, []string{"static_shadow", "static", "voxel", "skinned"}, keys)

	shadow := backend.draws[0]
	require.Len(t, shadow.bindGroups, 2)
	assert.Same(t, s.lightProvider, shadow.bindGroups[0])

	voxel := backend.draws[2]
	assert.Equal(t, uint32(3), voxel.instances)
	require.Len(t, voxel.bindGroups, 3)
	assert.Same(t, s.cam.BindGroupProvider(), voxel.bindGroups[0])
	assert.Same(t, s.lightProvider, voxel.bindGroups[1])

	stats := s.Renderer().Stats()
	assert.Equal(t, 4, stats.DrawCalls)
	assert.Equal(t, 6, stats.Instances)
}

func TestScene_RemoveSwapsInstances(t *testing.T) {
	s, _ := newTestScene(t)
	cube := cubeModel()

	a := add(t, s, game_object.WithModel(cube), game_object.WithInstanced(true), game_object.WithPosition(mgl32.Vec3{1, 0, 0}))
	b := add(t, s, game_object.WithModel(cube), game_object.WithInstanced(true), game_object.WithPosition(mgl32.Vec3{2, 0, 0}))
	c := add(t, s, game_object.WithModel(cube), game_object.WithInstanced(true), game_object.WithPosition(mgl32.Vec3{3, 0, 0}))

	s.Remove(a.ID())

	assert.Equal(t, -1, a.AnimatorInstanceID())
	assert.Nil(t, a.Animator())
	assert.Equal(t, 0, c.AnimatorInstanceID())
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, c.Position())
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, b.Position())
	assert.Len(t, s.Voxels(), 2)
	assert.Equal(t, 2, s.Count())

	s.Remove(a.ID())
	assert.Equal(t, 2, s.Count())
}

func TestScene_RemoveRenderableDropsGroup(t *testing.T) {
	s, _ := newTestScene(t)
	obj := add(t, s, game_object.WithModel(cubeModel()))
	require.Len(t, s.groups, 1)

	s.Remove(obj.ID())
	assert.Empty(t, s.groups)
	assert.Empty(t, s.Renderables())
}
