package loader

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
	"github.com/Carmen-Shannon/oxy-skinning/engine/skeleton"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMat4s stores matrices as a MAT4 accessor; the library indexes matrices as [row][col].
func writeMat4s(doc *gltf.Document, mats []mgl32.Mat4) uint32 {
	data := make([][4][4]float32, len(mats))
	for i, m := range mats {
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				data[i][r][c] = m.At(r, c)
			}
		}
	}
	return modeler.WriteAccessor(doc, gltf.TargetNone, data)
}

func assertMat4Near(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5, "want %v\n got %v", want, got)
}

func assertQuatNear(t *testing.T, want, got mgl32.Quat, delta float64) {
	t.Helper()
	assert.InDelta(t, want.W, got.W, delta, "want %v\n got %v", want, got)
	assert.InDeltaSlice(t, want.V[:], got.V[:], delta, "want %v\n got %v", want, got)
}

var quarterTurnZ = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})

// armDocument builds a two-bone arm (hip → knee) with a skinned triangle and one clip "wave".
// The scene has two roots, the bone chain and the mesh node.
func armDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "root", Children: []uint32{1}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "hip", Children: []uint32{2}, Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "knee", Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "arm_mesh", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0, 3}}}
	doc.Scene = gltf.Index(0)

	attributes := map[string]uint32{
		"POSITION":  modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
		"NORMAL":    modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
		"JOINTS_0":  modeler.WriteJoints(doc, [][4]uint16{{0, 1, 0, 0}, {1, 0, 0, 0}, {0, 0, 0, 0}}),
		"WEIGHTS_0": modeler.WriteWeights(doc, [][4]float32{{0.5, 0.5, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}),
	}
	doc.Meshes = []*gltf.Mesh{{
		Name: "arm",
		Primitives: []*gltf.Primitive{{
			Attributes: attributes,
			Indices:    gltf.Index(modeler.WriteIndices(doc, []uint32{0, 1, 2})),
		}},
	}}

	doc.Skins = []*gltf.Skin{{
		Joints:              []uint32{1, 2},
		InverseBindMatrices: gltf.Index(writeMat4s(doc, []mgl32.Mat4{mgl32.Translate3D(0, -1, 0), mgl32.Translate3D(0, -2, 0)})),
	}}

	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1})
	lift := modeler.WritePosition(doc, [][3]float32{{0, 1, 0}, {0, 3, 0}})
	q := quarterTurnZ
	bend := modeler.WriteTangent(doc, [][4]float32{
		{0, 0, 0, 0}, {0, 0, 0, 1}, {0, 0, 0, 0},
		{0, 0, 0, 0}, {q.V[0], q.V[1], q.V[2], q.W}, {0, 0, 0, 0},
	})
	doc.Animations = []*gltf.Animation{{
		Name: "wave",
		Samplers: []*gltf.AnimationSampler{
			{Input: gltf.Index(times), Output: gltf.Index(lift), Interpolation: gltf.InterpolationLinear},
			{Input: gltf.Index(times), Output: gltf.Index(bend), Interpolation: gltf.InterpolationCubicSpline},
		},
		Channels: []*gltf.Channel{
			{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation}},
			{Sampler: gltf.Index(1), Target: gltf.ChannelTarget{Node: gltf.Index(2), Path: gltf.TRSRotation}},
		},
	}}
	return doc
}

func encodeGLB(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

func importArm(t *testing.T) *model.ImportedModel {
	t.Helper()
	imp := newGLTFImporter(slog.Default(), 1000)
	out, err := imp.ImportReader(bytes.NewReader(encodeGLB(t, armDocument())), true)
	require.NoError(t, err)
	return out
}

func TestImportReader_Skeleton(t *testing.T) {
	imp := importArm(t)
	skel := imp.Skeleton
	require.NotNil(t, skel)

	assert.Equal(t, gltfSyntheticRootName, skel.Root.Name)
	require.Len(t, skel.Root.Children, 2)
	assert.Equal(t, "root", skel.Root.Children[0].Name)
	assert.Equal(t, "arm_mesh", skel.Root.Children[1].Name)
	assertMat4Near(t, mgl32.Ident4(), skel.GlobalInverse)

	assert.Equal(t, []string{"hip", "knee"}, skel.Bones.Names())
	assert.True(t, skel.Bones.Frozen())
	require.Len(t, skel.BoneInfo, 2)
	assertMat4Near(t, mgl32.Translate3D(0, -1, 0), skel.BoneInfo[0].Offset)
	assertMat4Near(t, mgl32.Translate3D(0, -2, 0), skel.BoneInfo[1].Offset)

	hip := skel.Root.Children[0].Children[0]
	assert.Equal(t, "hip", hip.Name)
	assertMat4Near(t, mgl32.Translate3D(0, 1, 0), hip.Transform)
}

func TestImportReader_MeshInfluences(t *testing.T) {
	imp := importArm(t)
	require.Len(t, imp.Meshes, 1)
	mesh := imp.Meshes[0]

	assert.Equal(t, "arm", mesh.Name)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	require.Len(t, mesh.Vertices, 3)

	v0 := mesh.Vertices[0]
	assert.Equal(t, [4]uint32{0, 1, 0, 0}, v0.BoneIndices)
	assert.Equal(t, [4]float32{0.5, 0.5, 0, 0}, v0.BoneWeights)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, v0.Normal)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, v0.Color)

	assert.Equal(t, [4]uint32{1, 0, 0, 0}, mesh.Vertices[1].BoneIndices)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, mesh.Vertices[1].BoneWeights)
	assert.Zero(t, imp.TruncatedInfluences)
}

func TestImportReader_Animation(t *testing.T) {
	imp := importArm(t)
	require.Len(t, imp.Animations, 1)
	clip := imp.Animations[0]

	assert.Equal(t, "wave", clip.Name)
	assert.Equal(t, 1000.0, clip.Duration)
	assert.Equal(t, 1000.0, clip.TicksPerSecond)
	require.Len(t, clip.Channels, 2)

	hip := clip.Channels[0]
	assert.Equal(t, "hip", hip.NodeName)
	require.Len(t, hip.PositionKeys, 2)
	assert.Equal(t, 1000.0, hip.PositionKeys[1].Time)
	assert.Equal(t, mgl32.Vec3{0, 3, 0}, hip.PositionKeys[1].Value)
	assert.True(t, hip.Complete())
	require.Len(t, hip.RotationKeys, 1)
	assertQuatNear(t, mgl32.QuatIdent(), hip.RotationKeys[0].Value, 1e-6)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, hip.ScaleKeys[0].Value)

	knee := clip.Channels[1]
	assert.Equal(t, "knee", knee.NodeName)
	require.Len(t, knee.RotationKeys, 2)
	assertQuatNear(t, quarterTurnZ, knee.RotationKeys[1].Value, 1e-5)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, knee.PositionKeys[0].Value)
}

func TestImportDocument_QuantizedRotation(t *testing.T) {
	doc := armDocument()
	rot := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]int16{{0, 0, 0, 32767}, {0, 0, 23170, 23170}})
	doc.Accessors[rot].Normalized = true
	bend := doc.Animations[0].Samplers[1]
	bend.Output = gltf.Index(rot)
	bend.Interpolation = gltf.InterpolationLinear

	out, err := newGLTFImporter(nil, 1000).ImportDocument(doc, "arm")
	require.NoError(t, err)

	knee := out.Animations[0].Channels[1]
	require.Len(t, knee.RotationKeys, 2)
	assertQuatNear(t, mgl32.QuatIdent(), knee.RotationKeys[0].Value, 1e-6)
	assertQuatNear(t, quarterTurnZ, knee.RotationKeys[1].Value, 1e-4)
}

func TestImportDocument_BoneIdsFollowMeshOrder(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "spare"},
		{Name: "jaw"},
		{Name: "head_mesh", Mesh: gltf.Index(0), Skin: gltf.Index(1)},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0, 1, 2}}}
	doc.Scene = gltf.Index(0)
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{
		"POSITION":  modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
		"JOINTS_0":  modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}),
		"WEIGHTS_0": modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}),
	}}}}}
	doc.Skins = []*gltf.Skin{
		{Joints: []uint32{0}, InverseBindMatrices: gltf.Index(writeMat4s(doc, []mgl32.Mat4{mgl32.Translate3D(0, 0, -1)}))},
		{Joints: []uint32{1}, InverseBindMatrices: gltf.Index(writeMat4s(doc, []mgl32.Mat4{mgl32.Translate3D(0, -2, 0)}))},
	}

	out, err := newGLTFImporter(nil, 0).ImportDocument(doc, "head")
	require.NoError(t, err)

	require.NotNil(t, out.Skeleton)
	assert.Equal(t, []string{"jaw", "spare"}, out.Skeleton.Bones.Names())
	assertMat4Near(t, mgl32.Translate3D(0, -2, 0), out.Skeleton.BoneInfo[0].Offset)
	assertMat4Near(t, mgl32.Translate3D(0, 0, -1), out.Skeleton.BoneInfo[1].Offset)
	assert.Equal(t, [4]uint32{0, 0, 0, 0}, out.Meshes[0].Vertices[0].BoneIndices)
	assert.Equal(t, float32(1), out.Meshes[0].Vertices[0].BoneWeights[0])
}

func TestImportReader_CustomTickRate(t *testing.T) {
	imp := newGLTFImporter(slog.Default(), 10)
	out, err := imp.ImportReader(bytes.NewReader(encodeGLB(t, armDocument())), true)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.Animations[0].Duration)
}

func TestImportReader_RejectsMissingGLBHeader(t *testing.T) {
	imp := newGLTFImporter(nil, 0)
	_, err := imp.ImportReader(bytes.NewReader([]byte(`{"asset":{"version":"2.0"}}`)), true)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportReader_ImportedClipDrivesEvaluator(t *testing.T) {
	imp := importArm(t)
	eval := skeleton.NewEvaluator(imp.Skeleton, imp.Animations[0])

	bones := imp.Skeleton.NewBoneTable()
	require.NoError(t, eval.Pose(500, bones))

	// hip lifted to y=2, offset y=-1
	assertMat4Near(t, mgl32.Translate3D(0, 1, 0), bones[0].Final)
}

func TestImportDocument_StaticModel(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{{Name: "cube", Mesh: gltf.Index(0)}}
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}
	doc.Scene = gltf.Index(0)
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{
		{Attributes: map[string]uint32{"POSITION": modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})}},
		{Attributes: map[string]uint32{"POSITION": modeler.WritePosition(doc, [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}})}},
	}}}

	out, err := newGLTFImporter(nil, 0).ImportDocument(doc, "cube")
	require.NoError(t, err)

	assert.Nil(t, out.Skeleton)
	require.Len(t, out.Meshes, 2)
	assert.Equal(t, "mesh_0_0", out.Meshes[0].Name)
	assert.Equal(t, []uint32{0, 1, 2}, out.Meshes[1].Indices)
	assert.Equal(t, uint32(3), out.Meshes[1].BaseVertex)
	assert.Equal(t, uint32(3), out.Meshes[1].BaseIndex)
	assert.Equal(t, [4]float32{}, out.Meshes[1].Vertices[0].BoneWeights)
}

func TestImportDocument_NilDocument(t *testing.T) {
	_, err := newGLTFImporter(nil, 0).ImportDocument(nil, "x")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestNodeLocalTransform(t *testing.T) {
	t.Run("matrix", func(t *testing.T) {
		m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
		n := &gltf.Node{Matrix: [16]float32(m)}
		assertMat4Near(t, m, gltfNodeLocalTransform(n))

		tr, r, s := gltfNodeTRS(n)
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, tr)
		assertQuatNear(t, mgl32.QuatIdent(), r, 1e-6)
		assert.InDeltaSlice(t, []float32{2, 2, 2}, s[:], 1e-6)
	})

	t.Run("trs", func(t *testing.T) {
		q := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
		n := &gltf.Node{
			Translation: [3]float32{0, 0, 5},
			Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
			Scale:       [3]float32{1, 1, 1},
		}
		want := mgl32.Translate3D(0, 0, 5).Mul4(q.Mat4())
		assertMat4Near(t, want, gltfNodeLocalTransform(n))
	})

	t.Run("zero value is identity", func(t *testing.T) {
		assertMat4Near(t, mgl32.Ident4(), gltfNodeLocalTransform(&gltf.Node{}))
	})
}

func TestReadFloats_TypeMismatch(t *testing.T) {
	doc := gltf.NewDocument()
	acc := modeler.WritePosition(doc, [][3]float32{{1, 2, 3}})

	_, err := gltfReadFloats(doc, acc, gltf.AccessorVec4)
	assert.ErrorIs(t, err, ErrInvalidAccessor)

	_, err = gltfReadFloats(doc, acc+10, gltf.AccessorVec3)
	assert.ErrorIs(t, err, ErrInvalidAccessor)

	vals, err := gltfReadFloats(doc, acc, gltf.AccessorVec3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vals)
}

func TestReadFloats_Dequantizes(t *testing.T) {
	doc := gltf.NewDocument()
	signed := modeler.WriteAccessor(doc, gltf.TargetNone, [][2]int8{{127, -128}})
	doc.Accessors[signed].Normalized = true
	unsigned := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]uint8{{255, 0, 51, 0}})
	doc.Accessors[unsigned].Normalized = true
	raw := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]uint16{{1, 2, 3}})

	vals, err := gltfReadFloats(doc, signed, gltf.AccessorVec2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, -1}, vals, 1e-6)

	vals, err = gltfReadFloats(doc, unsigned, gltf.AccessorVec4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 0, 0.2, 0}, vals, 1e-6)

	vals, err = gltfReadFloats(doc, raw, gltf.AccessorVec3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vals)
}

func TestReadMat4s_ColumnMajor(t *testing.T) {
	doc := gltf.NewDocument()
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DZ(0.5))
	acc := writeMat4s(doc, []mgl32.Mat4{m, mgl32.Ident4()})

	mats, err := gltfReadMat4s(doc, acc)
	require.NoError(t, err)
	require.Len(t, mats, 2)
	assert.Equal(t, m, mats[0])
	assert.Equal(t, mgl32.Ident4(), mats[1])
}
