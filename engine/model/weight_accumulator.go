package model

// AddStatus reports what AddBoneData did with an influence.
type AddStatus int

const (
	// BoneDataAdded means the influence was stored.
	BoneDataAdded AddStatus = iota
	// BoneDataTruncated means the vertex already held MaxBonesPerVertex influences and the new one was dropped.
	BoneDataTruncated
	// BoneDataIgnored means the vertex index was negative and nothing was stored.
	BoneDataIgnored
)

// VertexBoneData is the fixed-capacity influence list of a single vertex.
// Slots are filled in insertion order; unfilled slots hold id 0 and weight 0.
type VertexBoneData struct {
	IDs     [MaxBonesPerVertex]uint32
	Weights [MaxBonesPerVertex]float32
	Count   int
}

// Add stores the influence in the next free slot.
//
// Parameters:
//   - id: the bone id
//   - weight: the influence weight, stored verbatim
//
// Returns:
//   - bool: false if the vertex was already full
func (v *VertexBoneData) Add(id uint32, weight float32) bool {
	if v.Count >= MaxBonesPerVertex {
		return false
	}
	v.IDs[v.Count] = id
	v.Weights[v.Count] = weight
	v.Count++
	return true
}

// WeightAccumulator collects bone influences for every vertex of an import.
// Vertex indices are global across all meshes of the model (base vertex + local index).
type WeightAccumulator struct {
	vertices  []VertexBoneData
	truncated int
}

// NewWeightAccumulator creates an accumulator sized for vertexCount vertices.
// The store grows on demand if a larger index is used.
//
// Parameters:
//   - vertexCount: the expected number of vertices
//
// Returns:
//   - *WeightAccumulator: the accumulator
func NewWeightAccumulator(vertexCount int) *WeightAccumulator {
	return &WeightAccumulator{vertices: make([]VertexBoneData, vertexCount)}
}

// AddBoneData records one (bone, weight) influence for a vertex.
// Weights are not normalized. A vertex that is already full is left unchanged.
// A negative vertex index is ignored and does not count as a truncation.
//
// Parameters:
//   - vertexIndex: the global vertex index
//   - boneID: the bone id from the BoneNameIndex
//   - weight: the influence weight
//
// Returns:
//   - AddStatus: BoneDataAdded, BoneDataTruncated or BoneDataIgnored
func (w *WeightAccumulator) AddBoneData(vertexIndex int, boneID uint32, weight float32) AddStatus {
	if vertexIndex < 0 {
		return BoneDataIgnored
	}
	if vertexIndex >= len(w.vertices) {
		grown := make([]VertexBoneData, vertexIndex+1)
		copy(grown, w.vertices)
		w.vertices = grown
	}
	if !w.vertices[vertexIndex].Add(boneID, weight) {
		w.truncated++
		return BoneDataTruncated
	}
	return BoneDataAdded
}

// Vertex returns the influence list of a vertex. Unknown indices yield an empty list.
func (w *WeightAccumulator) Vertex(vertexIndex int) VertexBoneData {
	if vertexIndex < 0 || vertexIndex >= len(w.vertices) {
		return VertexBoneData{}
	}
	return w.vertices[vertexIndex]
}

// Len returns the number of vertex slots currently held.
func (w *WeightAccumulator) Len() int {
	return len(w.vertices)
}

// Truncated returns how many influences were dropped so far.
func (w *WeightAccumulator) Truncated() int {
	return w.truncated
}

// ShaderInfluences returns the first MaxShaderInfluences filled slots of a vertex verbatim.
// Later slots are ignored even if their weights are larger.
//
// Parameters:
//   - vertexIndex: the global vertex index
//
// Returns:
//   - [MaxShaderInfluences]uint32: bone ids
//   - [MaxShaderInfluences]float32: weights
func (w *WeightAccumulator) ShaderInfluences(vertexIndex int) ([MaxShaderInfluences]uint32, [MaxShaderInfluences]float32) {
	var ids [MaxShaderInfluences]uint32
	var weights [MaxShaderInfluences]float32
	v := w.Vertex(vertexIndex)
	for i := 0; i < MaxShaderInfluences && i < v.Count; i++ {
		ids[i] = v.IDs[i]
		weights[i] = v.Weights[i]
	}
	return ids, weights
}
