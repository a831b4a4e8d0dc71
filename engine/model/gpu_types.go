package model

import (
	"encoding/binary"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func putFloats(buf []byte, vals ...float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math32.Float32bits(v))
	}
}

// GPUVertex is the GPU-aligned representation of a single mesh vertex for static models.
// Size: 48 bytes.
type GPUVertex struct {
	Position mgl32.Vec3 // offset  0: vertex position in model space (12 bytes)
	Normal   mgl32.Vec3 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord mgl32.Vec2 // offset 24: UV texture coordinate (8 bytes)
	Color    mgl32.Vec4 // offset 32: per-vertex RGBA color (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 48-byte little-endian buffer.
//
// Returns:
//   - []byte: buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf, g.Position[0], g.Position[1], g.Position[2],
		g.Normal[0], g.Normal[1], g.Normal[2],
		g.TexCoord[0], g.TexCoord[1],
		g.Color[0], g.Color[1], g.Color[2], g.Color[3])
	return buf
}

// GPUSkinnedVertex extends GPUVertex with the shader-visible bone influences.
// Only the first MaxShaderInfluences filled slots of a vertex's influence list are carried.
// Size: 80 bytes (48 base + 16 ids + 16 weights).
type GPUSkinnedVertex struct {
	GPUVertex
	BoneIndices [MaxShaderInfluences]uint32  // offset 48
	BoneWeights [MaxShaderInfluences]float32 // offset 64
}

// Size returns the size of the GPUSkinnedVertex struct in bytes.
func (g *GPUSkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into an 80-byte little-endian buffer.
//
// Returns:
//   - []byte: buffer ready for GPU upload
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, 80)
	copy(buf, g.GPUVertex.Marshal())
	for i := 0; i < MaxShaderInfluences; i++ {
		binary.LittleEndian.PutUint32(buf[48+i*4:], g.BoneIndices[i])
	}
	putFloats(buf[64:], g.BoneWeights[:]...)
	return buf
}

// GPUModelData is a single per-object model matrix. Size: 64 bytes.
type GPUModelData struct {
	Model mgl32.Mat4
}

// Size returns the size of the GPUModelData struct in bytes.
func (g *GPUModelData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the matrix in column-major order.
func (g *GPUModelData) Marshal() []byte {
	buf := make([]byte, 64)
	putFloats(buf, g.Model[:]...)
	return buf
}

// ComputeBoundingRadius returns the largest vertex distance from the origin.
//
// Parameters:
//   - vertices: the vertex data to measure
//
// Returns:
//   - float32: the bounding radius
func ComputeBoundingRadius(vertices []GPUSkinnedVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		if d := v.Position.LenSqr(); d > maxDistSq {
			maxDistSq = d
		}
	}
	return math32.Sqrt(maxDistSq)
}

// PackMeshes concatenates the meshes into one vertex buffer and one index buffer.
// Indices are rebased by each mesh's BaseVertex so a single indexed draw covers every mesh.
//
// Parameters:
//   - meshes: the meshes in import order
//
// Returns:
//   - []byte: packed GPUSkinnedVertex data
//   - []byte: packed uint32 index data
//   - int: total index count
func PackMeshes(meshes []ImportedMesh) ([]byte, []byte, int) {
	var vertexCount, indexCount int
	for _, m := range meshes {
		vertexCount += len(m.Vertices)
		indexCount += len(m.Indices)
	}
	var stride GPUSkinnedVertex
	vertexData := make([]byte, 0, vertexCount*stride.Size())
	indexData := make([]byte, indexCount*4)
	cursor := 0
	for _, m := range meshes {
		for i := range m.Vertices {
			vertexData = append(vertexData, m.Vertices[i].Marshal()...)
		}
		for _, idx := range m.Indices {
			binary.LittleEndian.PutUint32(indexData[cursor*4:], idx+m.BaseVertex)
			cursor++
		}
	}
	return vertexData, indexData, indexCount
}
