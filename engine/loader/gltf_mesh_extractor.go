package loader

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfInfluenceSets lists the joint/weight attribute pairs read per primitive.
var gltfInfluenceSets = [][2]string{
	{"JOINTS_0", "WEIGHTS_0"},
	{"JOINTS_1", "WEIGHTS_1"},
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc      *gltf.Document
	names    []string
	skeleton *model.Skeleton
	skins    gltfSkeletonExtractor
	logger   *slog.Logger
}

// gltfMeshExtractor defines the interface for extracting vertex, index and bone weight data from a glTF document.
type gltfMeshExtractor interface {
	// ExtractAllMeshes extracts every primitive of every mesh as one ImportedMesh, in document order.
	// Bone influences of all meshes flow through one WeightAccumulator addressed by the global
	// vertex index (BaseVertex + local index).
	//
	// Returns:
	//   - []model.ImportedMesh: the meshes with base vertex/index offsets set
	//   - int: the number of bone influences dropped because a vertex was full
	//   - error: error if an attribute cannot be read
	ExtractAllMeshes() ([]model.ImportedMesh, int, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - names: per-node names from gltfNodeNames
//   - skeleton: the extracted skeleton, nil for static documents
//   - logger: destination for import warnings
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltf.Document, names []string, skeleton *model.Skeleton, logger *slog.Logger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		doc:      doc,
		names:    names,
		skeleton: skeleton,
		skins:    newGLTFSkeletonExtractor(doc, names),
		logger:   logger,
	}
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]model.ImportedMesh, int, error) {
	totalVertices, _ := e.countVerticesAndIndices()
	weights := model.NewWeightAccumulator(totalVertices)

	var meshes []model.ImportedMesh
	var baseVertex, baseIndex uint32

	for mi, mesh := range e.doc.Meshes {
		skin := e.skins.FindSkinForMesh(uint32(mi))
		for pi, prim := range mesh.Primitives {
			out, err := e.extractPrimitive(prim, skin, weights, baseVertex)
			if err != nil {
				return nil, 0, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			out.Name = mesh.Name
			if out.Name == "" {
				out.Name = fmt.Sprintf("mesh_%d", mi)
			}
			if len(mesh.Primitives) > 1 {
				out.Name = fmt.Sprintf("%s_%d", out.Name, pi)
			}
			out.BaseVertex = baseVertex
			out.BaseIndex = baseIndex

			baseVertex += uint32(len(out.Vertices))
			baseIndex += uint32(len(out.Indices))
			meshes = append(meshes, out)
		}
	}

	for i := range meshes {
		m := &meshes[i]
		for v := range m.Vertices {
			ids, ws := weights.ShaderInfluences(int(m.BaseVertex) + v)
			m.Vertices[v].BoneIndices = ids
			m.Vertices[v].BoneWeights = ws
		}
	}

	return meshes, weights.Truncated(), nil
}

// countVerticesAndIndices totals the POSITION and index counts of every primitive.
func (e *gltfMeshExtractorImpl) countVerticesAndIndices() (int, int) {
	var vertices, indices int
	for _, mesh := range e.doc.Meshes {
		for _, prim := range mesh.Primitives {
			pos, ok := prim.Attributes["POSITION"]
			if !ok || int(pos) >= len(e.doc.Accessors) {
				continue
			}
			vertices += int(e.doc.Accessors[pos].Count)
			if prim.Indices != nil && int(*prim.Indices) < len(e.doc.Accessors) {
				indices += int(e.doc.Accessors[*prim.Indices].Count)
			} else {
				indices += int(e.doc.Accessors[pos].Count)
			}
		}
	}
	return vertices, indices
}

// extractPrimitive reads one primitive's attributes and feeds its bone influences into the accumulator.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltf.Primitive, skin *gltf.Skin, weights *model.WeightAccumulator, baseVertex uint32) (model.ImportedMesh, error) {
	var out model.ImportedMesh

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return out, fmt.Errorf("%w: primitive has no POSITION", ErrInvalidAccessor)
	}
	positions, err := modeler.ReadPosition(e.doc, e.doc.Accessors[posIdx], nil)
	if err != nil {
		return out, fmt.Errorf("failed to read positions: %w", err)
	}

	var normals [][3]float32
	if a, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(e.doc, e.doc.Accessors[a], nil); err != nil {
			return out, fmt.Errorf("failed to read normals: %w", err)
		}
	}

	var uvs [][2]float32
	if a, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(e.doc, e.doc.Accessors[a], nil); err != nil {
			return out, fmt.Errorf("failed to read texture coordinates: %w", err)
		}
	}

	out.Vertices = make([]model.GPUSkinnedVertex, len(positions))
	for i, p := range positions {
		v := &out.Vertices[i]
		v.Position = mgl32.Vec3(p)
		if i < len(normals) {
			v.Normal = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.TexCoord = mgl32.Vec2(uvs[i])
		}
		v.Color = mgl32.Vec4{1, 1, 1, 1}
	}

	if prim.Indices != nil {
		if out.Indices, err = modeler.ReadIndices(e.doc, e.doc.Accessors[*prim.Indices], nil); err != nil {
			return out, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		out.Indices = make([]uint32, len(positions))
		for i := range out.Indices {
			out.Indices[i] = uint32(i)
		}
	}

	if skin == nil || e.skeleton == nil {
		return out, nil
	}
	for _, set := range gltfInfluenceSets {
		if err := e.accumulateInfluences(prim, set[0], set[1], skin, weights, baseVertex, len(positions)); err != nil {
			return out, err
		}
	}
	return out, nil
}

// accumulateInfluences records one JOINTS_n/WEIGHTS_n pair. Zero weights are skipped.
func (e *gltfMeshExtractorImpl) accumulateInfluences(prim *gltf.Primitive, jointsAttr, weightsAttr string, skin *gltf.Skin, weights *model.WeightAccumulator, baseVertex uint32, vertexCount int) error {
	ja, hasJoints := prim.Attributes[jointsAttr]
	wa, hasWeights := prim.Attributes[weightsAttr]
	if !hasJoints || !hasWeights {
		return nil
	}

	joints, err := modeler.ReadJoints(e.doc, e.doc.Accessors[ja], nil)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", jointsAttr, err)
	}
	ws, err := modeler.ReadWeights(e.doc, e.doc.Accessors[wa], nil)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", weightsAttr, err)
	}

	n := min(len(joints), len(ws), vertexCount)
	unresolved := 0
	for v := 0; v < n; v++ {
		for k := 0; k < 4; k++ {
			w := ws[v][k]
			if w == 0 {
				continue
			}
			joint := int(joints[v][k])
			if joint >= len(skin.Joints) {
				unresolved++
				continue
			}
			id, ok := e.skeleton.Bones.Lookup(e.names[skin.Joints[joint]])
			if !ok {
				unresolved++
				continue
			}
			weights.AddBoneData(int(baseVertex)+v, id, w)
		}
	}
	if unresolved > 0 {
		e.logger.Warn("skipped influences with unknown joints", "attribute", jointsAttr, "count", unresolved)
	}
	return nil
}
