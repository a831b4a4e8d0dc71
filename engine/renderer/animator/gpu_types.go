package animator

import (
	"encoding/binary"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"
)

const (
	// BoneTableBinding is the binding of the per-instance bone table in a skinned instance's bind group.
	BoneTableBinding = 0

	// InstanceModelBinding is the binding of the per-instance model matrix in a skinned instance's bind group.
	InstanceModelBinding = 1

	// InstanceMatricesBinding is the binding of the instance matrix array of the simple backend.
	InstanceMatricesBinding = 0
)

// GPUBoneTable is the dense skinning matrix table of one animated instance, indexed by bone id.
// Entries past the skeleton's bone count hold identity.
// Size: 16384 bytes (256 × mat4x4<f32>).
type GPUBoneTable struct {
	Bones [model.MaxBones]mgl32.Mat4
}

// Size returns the size of the GPUBoneTable struct in bytes.
func (g *GPUBoneTable) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Fill copies the Final matrices of bones into the table and pads the remainder with identity.
//
// Parameters:
//   - bones: the instance's bone table; entries beyond MaxBones are ignored
func (g *GPUBoneTable) Fill(bones []model.BoneInfo) {
	for i := range g.Bones {
		if i < len(bones) {
			g.Bones[i] = bones[i].Final
		} else {
			g.Bones[i] = mgl32.Ident4()
		}
	}
}

// Marshal serializes the table in column-major order into dst, growing it if needed.
//
// Parameters:
//   - dst: a reusable buffer, may be nil
//
// Returns:
//   - []byte: the 16384-byte buffer
func (g *GPUBoneTable) Marshal(dst []byte) []byte {
	size := g.Size()
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for i := range g.Bones {
		for j, f := range g.Bones[i] {
			binary.LittleEndian.PutUint32(dst[(i*16+j)*4:], math32.Float32bits(f))
		}
	}
	return dst
}
