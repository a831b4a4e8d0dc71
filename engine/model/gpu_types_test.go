package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUSkinnedVertex_Layout(t *testing.T) {
	v := GPUSkinnedVertex{
		GPUVertex:   GPUVertex{Position: mgl32.Vec3{1, 2, 3}},
		BoneIndices: [4]uint32{5, 6, 7, 8},
		BoneWeights: [4]float32{0.5, 0.25, 0.125, 0.125},
	}
	require.Equal(t, 80, v.Size())

	buf := v.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf[48:]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(buf[60:]))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[68:])))
}

func TestPackMeshes_RebasesIndices(t *testing.T) {
	meshes := []ImportedMesh{
		{Vertices: make([]GPUSkinnedVertex, 3), Indices: []uint32{0, 1, 2}},
		{Vertices: make([]GPUSkinnedVertex, 3), Indices: []uint32{0, 2, 1}, BaseVertex: 3, BaseIndex: 3},
	}

	vdata, idata, count := PackMeshes(meshes)
	assert.Equal(t, 6, count)
	assert.Len(t, vdata, 6*80)

	got := make([]uint32, count)
	for i := range got {
		got[i] = binary.LittleEndian.Uint32(idata[i*4:])
	}
	assert.Equal(t, []uint32{0, 1, 2, 3, 5, 4}, got)
}

func TestComputeBoundingRadius(t *testing.T) {
	verts := []GPUSkinnedVertex{
		{GPUVertex: GPUVertex{Position: mgl32.Vec3{1, 0, 0}}},
		{GPUVertex: GPUVertex{Position: mgl32.Vec3{0, 3, 4}}},
	}
	assert.InDelta(t, 5.0, ComputeBoundingRadius(verts), 1e-6)
}

func TestSkeleton_NewBoneTable(t *testing.T) {
	off := mgl32.Translate3D(1, 2, 3)
	s := &Skeleton{BoneInfo: []BoneInfo{{Offset: off, Final: off}}}

	table := s.NewBoneTable()
	require.Len(t, table, 1)
	assert.Equal(t, off, table[0].Offset)
	assert.Equal(t, mgl32.Ident4(), table[0].Final)

	table[0].Offset = mgl32.Ident4()
	assert.Equal(t, off, s.BoneInfo[0].Offset, "tables are independent copies")
}

func TestNode_Walk(t *testing.T) {
	root := &Node{Name: "root", Children: []*Node{
		{Name: "a", Children: []*Node{{Name: "a1"}}},
		{Name: "b"},
	}}
	var seen []string
	root.Walk(func(n *Node) bool {
		seen = append(seen, n.Name)
		return n.Name != "a"
	})
	assert.Equal(t, []string{"root", "a", "b"}, seen)
}
