package game_object

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/animator"
)

func skinnedModel() model.Model {
	bones := model.NewBoneNameIndex()
	bones.GetOrAssignID("hip")
	bones.Freeze()
	return model.NewModel(model.WithName("rig"), model.WithSkeleton(&model.Skeleton{
		Root:          &model.Node{Name: "hip", Transform: mgl32.Ident4()},
		Bones:         bones,
		BoneInfo:      []model.BoneInfo{{Offset: mgl32.Ident4()}},
		GlobalInverse: mgl32.Ident4(),
	}))
}

func TestGameObject_Kind(t *testing.T) {
	cube := model.NewModel(model.WithName("cube"))

	tests := []struct {
		name string
		obj  GameObject
		want Kind
	}{
		{"static", NewGameObject(WithModel(cube)), KindRenderable},
		{"instanced", NewGameObject(WithModel(cube), WithInstanced(true)), KindVoxel},
		{"skinned", NewGameObject(WithModel(skinnedModel())), KindAnimated},
		{"skinned ignores instancing", NewGameObject(WithModel(skinnedModel()), WithInstanced(true)), KindAnimated},
		{"no model", NewGameObject(), KindRenderable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.obj.Kind())
		})
	}
	assert.Equal(t, "voxel", KindVoxel.String())
}

func TestGameObject_Defaults(t *testing.T) {
	obj := NewGameObject(WithAnimation("walk", true), WithAnimationSpeed(-3), WithAnimationStart(0.5))

	assert.True(t, obj.Enabled())
	assert.Equal(t, -1, obj.AnimatorInstanceID())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, obj.Scale())

	name, loop, speed, start := obj.Clip()
	assert.Equal(t, "walk", name)
	assert.True(t, loop)
	assert.Equal(t, float32(1), speed)
	assert.Equal(t, 0.5, start)
}

func TestGameObject_TransformFollowsAnimator(t *testing.T) {
	obj := NewGameObject(
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithRotationSpeed(mgl32.Vec3{0, 1, 0}),
	)
	pos, scale, rot, rotSpeed := obj.TransformData()

	a, err := animator.NewAnimator(animator.BackendTypeSimple)
	require.NoError(t, err)
	idx, err := a.AddInstance()
	require.NoError(t, err)
	a.SetInstanceTransform(idx, pos, scale)
	a.SetInstanceRotation(idx, rotSpeed, rot)

	obj.SetAnimator(a)
	obj.SetAnimatorInstanceID(int(idx))

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, obj.Position())
	obj.SetPosition(mgl32.Vec3{4, 5, 6})
	gotPos, _ := a.InstanceTransform(idx)
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, gotPos)

	obj.SetScale(mgl32.Vec3{2, 2, 2})
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, obj.Scale())
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, obj.Position())

	obj.SetRotation(mgl32.Vec3{0, 0.5, 0})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, obj.RotationSpeed())
	assert.Equal(t, mgl32.Vec3{0, 0.5, 0}, obj.Rotation())

	obj.SetAnimatorInstanceID(-1)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, obj.Position())
}
