package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skinning/common"
	"github.com/Carmen-Shannon/oxy-skinning/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// gltfSyntheticRootName names the identity node inserted above multiple scene roots.
const gltfSyntheticRootName = "__root__"

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc   *gltf.Document
	names []string
}

// gltfSkeletonExtractor defines the interface for extracting the node hierarchy and bone table from a glTF document.
type gltfSkeletonExtractor interface {
	// ExtractHierarchy builds the node tree of the default scene.
	// Several scene roots are gathered under one identity node named "__root__".
	//
	// Returns:
	//   - *model.Node: the root node, nil for a document without nodes
	//   - error: error if the node graph is not a tree
	ExtractHierarchy() (*model.Node, error)

	// ExtractSkeleton builds the skeleton for all skins of the document.
	// Joints of every skin share one BoneNameIndex. Ids follow mesh order, then the joint order
	// of each mesh's skin; skins no mesh uses come last in document order.
	// A joint listed by several skins keeps the offset of its first appearance.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton, nil when the document has no skins
	//   - error: error if a joint or inverse bind matrix cannot be resolved
	ExtractSkeleton() (*model.Skeleton, error)

	// FindSkinForMesh returns the skin bound to the first node instancing a mesh.
	//
	// Parameters:
	//   - meshIndex: the mesh index
	//
	// Returns:
	//   - *gltf.Skin: the skin, or nil
	FindSkinForMesh(meshIndex uint32) *gltf.Skin
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - names: per-node names from gltfNodeNames
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document, names []string) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc, names: names}
}

func (e *gltfSkeletonExtractorImpl) ExtractHierarchy() (*model.Node, error) {
	roots := e.rootIndices()
	if len(roots) == 0 {
		return nil, nil
	}

	visiting := make(map[uint32]bool)
	children := make([]*model.Node, 0, len(roots))
	for _, r := range roots {
		n, err := e.buildNode(r, visiting)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return &model.Node{
		Name:      gltfSyntheticRootName,
		Transform: mgl32.Ident4(),
		Children:  children,
	}, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton() (*model.Skeleton, error) {
	if len(e.doc.Skins) == 0 {
		return nil, nil
	}

	root, err := e.ExtractHierarchy()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: skins without nodes", ErrNoDocument)
	}

	bones := model.NewBoneNameIndex()
	var infos []model.BoneInfo

	for _, si := range e.skinOrder() {
		skin := e.doc.Skins[si]
		var inverseBind []mgl32.Mat4
		if skin.InverseBindMatrices != nil {
			inverseBind, err = gltfReadMat4s(e.doc, *skin.InverseBindMatrices)
			if err != nil {
				return nil, fmt.Errorf("skin %d: failed to read inverse bind matrices: %w", si, err)
			}
		}

		for ji, joint := range skin.Joints {
			if int(joint) >= len(e.doc.Nodes) {
				return nil, fmt.Errorf("skin %d joint %d: invalid node index %d", si, ji, joint)
			}
			_, fresh := bones.GetOrAssignID(e.names[joint])
			if !fresh {
				continue
			}
			offset := mgl32.Ident4()
			if ji < len(inverseBind) {
				offset = inverseBind[ji]
			}
			infos = append(infos, model.BoneInfo{Offset: offset, Final: mgl32.Ident4()})
		}
	}
	bones.Freeze()

	return &model.Skeleton{
		Root:          root,
		Bones:         bones,
		BoneInfo:      infos,
		GlobalInverse: root.Transform.Inv(),
	}, nil
}

func (e *gltfSkeletonExtractorImpl) FindSkinForMesh(meshIndex uint32) *gltf.Skin {
	if si, ok := e.skinIndexForMesh(meshIndex); ok {
		return e.doc.Skins[si]
	}
	return nil
}

// skinIndexForMesh returns the index of the skin bound to the first node instancing a mesh.
func (e *gltfSkeletonExtractorImpl) skinIndexForMesh(meshIndex uint32) (int, bool) {
	for _, node := range e.doc.Nodes {
		if node.Mesh != nil && *node.Mesh == meshIndex && node.Skin != nil {
			if int(*node.Skin) < len(e.doc.Skins) {
				return int(*node.Skin), true
			}
		}
	}
	return 0, false
}

// skinOrder lists skin indices in mesh traversal order followed by the skins no mesh references.
func (e *gltfSkeletonExtractorImpl) skinOrder() []int {
	seen := make([]bool, len(e.doc.Skins))
	order := make([]int, 0, len(e.doc.Skins))
	for mi := range e.doc.Meshes {
		if si, ok := e.skinIndexForMesh(uint32(mi)); ok && !seen[si] {
			seen[si] = true
			order = append(order, si)
		}
	}
	for si := range e.doc.Skins {
		if !seen[si] {
			order = append(order, si)
		}
	}
	return order
}

// rootIndices returns the root nodes of the default scene, falling back to every parentless node.
func (e *gltfSkeletonExtractorImpl) rootIndices() []uint32 {
	if len(e.doc.Scenes) > 0 {
		scene := e.doc.Scenes[0]
		if e.doc.Scene != nil && int(*e.doc.Scene) < len(e.doc.Scenes) {
			scene = e.doc.Scenes[*e.doc.Scene]
		}
		if scene != nil && len(scene.Nodes) > 0 {
			return scene.Nodes
		}
	}

	hasParent := make([]bool, len(e.doc.Nodes))
	for _, n := range e.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []uint32
	for i, p := range hasParent {
		if !p {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// buildNode converts a document node and its descendants into model nodes.
func (e *gltfSkeletonExtractorImpl) buildNode(index uint32, visiting map[uint32]bool) (*model.Node, error) {
	if int(index) >= len(e.doc.Nodes) {
		return nil, fmt.Errorf("invalid node index %d", index)
	}
	if visiting[index] {
		return nil, fmt.Errorf("node %d: cycle in hierarchy", index)
	}
	visiting[index] = true
	defer delete(visiting, index)

	src := e.doc.Nodes[index]
	node := &model.Node{
		Name:      e.names[index],
		Transform: gltfNodeLocalTransform(src),
		Children:  make([]*model.Node, 0, len(src.Children)),
	}
	for _, c := range src.Children {
		child, err := e.buildNode(c, visiting)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// --- Helper Functions ---

// gltfHasMatrix reports whether a node carries an explicit, non-identity matrix.
func gltfHasMatrix(n *gltf.Node) bool {
	return n.Matrix != [16]float32{} && mgl32.Mat4(n.Matrix) != mgl32.Ident4()
}

// gltfNodeLocalTransform returns a node's local transform from its matrix or its TRS properties.
func gltfNodeLocalTransform(n *gltf.Node) mgl32.Mat4 {
	if gltfHasMatrix(n) {
		return mgl32.Mat4(n.Matrix)
	}
	t, r, s := gltfNodeTRS(n)
	return common.ComposeTRS(t, r, s)
}

// gltfNodeTRS returns a node's translation, rotation and scale.
// A node carrying a matrix is decomposed assuming no shear.
func gltfNodeTRS(n *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	if gltfHasMatrix(n) {
		return gltfDecomposeMatrix(mgl32.Mat4(n.Matrix))
	}

	t := mgl32.Vec3(n.Translation)

	r := mgl32.QuatIdent()
	if n.Rotation != [4]float32{} {
		r = gltfQuat(n.Rotation)
	}

	s := mgl32.Vec3{1, 1, 1}
	if n.Scale != [3]float32{} {
		s = mgl32.Vec3(n.Scale)
	}
	return t, r, s
}

// gltfQuat converts a glTF (x, y, z, w) rotation into a normalized quaternion.
func gltfQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
}

// gltfDecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
func gltfDecomposeMatrix(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := m.Col(3).Vec3()

	s := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	for i := range s {
		if s[i] < 1e-4 {
			s[i] = 1
		}
	}

	rot := mgl32.Mat4FromCols(
		m.Col(0).Mul(1/s[0]),
		m.Col(1).Mul(1/s[1]),
		m.Col(2).Mul(1/s[2]),
		mgl32.Vec4{0, 0, 0, 1},
	)
	return t, mgl32.Mat4ToQuat(rot).Normalize(), s
}
