package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxBonesPerVertex is the number of bone influences a single vertex can record during import.
	MaxBonesPerVertex = 16

	// MaxBones is the capacity of the per-instance bone table uploaded to the GPU.
	MaxBones = 256

	// MaxShaderInfluences is the number of influences per vertex visible to the skinning shader.
	MaxShaderInfluences = 4

	// DefaultTicksPerSecond is used when an animation does not declare its own tick rate.
	DefaultTicksPerSecond = 1000.0
)

// --- Skeleton Types ---

// BoneInfo holds the two matrices tracked per bone.
type BoneInfo struct {
	// Offset maps mesh space into the bone's local space at bind pose (inverse bind matrix).
	// Set once at import.
	Offset mgl32.Mat4

	// Final is the skinning matrix produced by the most recent evaluation.
	Final mgl32.Mat4
}

// Node is one entry in the scene hierarchy used for animation.
type Node struct {
	// Name identifies the node; animation tracks and bones are matched by this name.
	Name string

	// Transform is the node's local bind transform relative to its parent.
	Transform mgl32.Mat4

	// Children are the owned child nodes.
	Children []*Node
}

// Walk visits the node and all of its descendants depth-first, parents before children.
//
// Parameters:
//   - fn: the visitor; returning false stops descent into that node's children
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Skeleton bundles the node hierarchy with the bone table it drives.
type Skeleton struct {
	// Root is the top of the node hierarchy.
	Root *Node

	// Bones resolves bone names to dense ids.
	Bones *BoneNameIndex

	// BoneInfo holds the bind offsets, indexed by bone id.
	BoneInfo []BoneInfo

	// GlobalInverse is the inverse of the root node's bind transform.
	GlobalInverse mgl32.Mat4
}

// NewBoneTable returns a fresh copy of the skeleton's bone table with every Final matrix set to identity.
// Each animated instance owns one of these.
//
// Returns:
//   - []BoneInfo: the per-instance bone table
func (s *Skeleton) NewBoneTable() []BoneInfo {
	table := make([]BoneInfo, len(s.BoneInfo))
	for i, b := range s.BoneInfo {
		table[i] = BoneInfo{Offset: b.Offset, Final: mgl32.Ident4()}
	}
	return table
}

// --- Animation Types ---

// VectorKey is a 3D vector sample at a time expressed in ticks.
type VectorKey struct {
	Time  float64
	Value mgl32.Vec3
}

// KeyTime returns the key's timestamp in ticks.
func (k VectorKey) KeyTime() float64 { return k.Time }

// QuatKey is a rotation sample at a time expressed in ticks.
type QuatKey struct {
	Time  float64
	Value mgl32.Quat
}

// KeyTime returns the key's timestamp in ticks.
func (k QuatKey) KeyTime() float64 { return k.Time }

// NodeAnimation is the keyframe track for a single node.
// Each key array is sorted ascending by time.
type NodeAnimation struct {
	NodeName     string
	PositionKeys []VectorKey
	RotationKeys []QuatKey
	ScaleKeys    []VectorKey
}

// Complete reports whether all three key arrays hold at least one key.
func (na *NodeAnimation) Complete() bool {
	return len(na.PositionKeys) > 0 && len(na.RotationKeys) > 0 && len(na.ScaleKeys) > 0
}

// Animation is a named clip made of per-node tracks.
type Animation struct {
	// Name is the clip identifier.
	Name string

	// Duration is the clip length in ticks.
	Duration float64

	// TicksPerSecond is the clip's sample rate.
	TicksPerSecond float64

	// Channels holds one track per animated node.
	Channels []NodeAnimation
}

// TicksRate returns the clip's tick rate, falling back to DefaultTicksPerSecond when unset.
func (a *Animation) TicksRate() float64 {
	if a.TicksPerSecond > 0 {
		return a.TicksPerSecond
	}
	return DefaultTicksPerSecond
}

// --- Import Types ---

// ImportedModel is the importer-neutral result of reading a model file.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes holds every mesh of the file in import order.
	Meshes []ImportedMesh

	// Skeleton is the bone hierarchy (nil for static models).
	Skeleton *Skeleton

	// Animations are all clips bundled with the model.
	Animations []*Animation

	// TruncatedInfluences counts bone influences dropped because a vertex was already full.
	TruncatedInfluences int
}

// ImportedMesh is a single mesh within an imported model.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices hold positions, normals, uvs and the first four bone influences.
	Vertices []GPUSkinnedVertex

	// Indices are triangle indices local to this mesh.
	Indices []uint32

	// BaseVertex is the offset of this mesh's first vertex in the concatenated vertex buffer.
	BaseVertex uint32

	// BaseIndex is the offset of this mesh's first index in the concatenated index buffer.
	BaseIndex uint32
}
