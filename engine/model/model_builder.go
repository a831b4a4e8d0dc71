package model

import (
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSkeleton sets the bone hierarchy and marks the Model as skinned when the skeleton has bones.
//
// Parameters:
//   - skeleton: the skeleton to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skeleton option to a model
func WithSkeleton(skeleton *Skeleton) ModelBuilderOption {
	return func(m *model) {
		m.skeleton = skeleton
		m.skinned = skeleton != nil && skeleton.Bones != nil && skeleton.Bones.Len() > 0
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
func WithAnimations(animations []*Animation) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}

// WithMeshProvider is an option builder that sets the BindGroupProvider for mesh GPU resources.
func WithMeshProvider(provider bind_group_provider.BindGroupProvider) ModelBuilderOption {
	return func(m *model) {
		m.meshProvider = provider
	}
}

// WithMeshes packs the imported meshes into vertex and index data and computes the bounding radius.
//
// Parameters:
//   - meshes: the imported meshes in import order
//
// Returns:
//   - ModelBuilderOption: a function that applies the packed mesh data to a model
func WithMeshes(meshes []ImportedMesh) ModelBuilderOption {
	return func(m *model) {
		m.vertexData, m.indexData, m.indexCount = PackMeshes(meshes)
		var r float32
		for _, mesh := range meshes {
			r = max(r, ComputeBoundingRadius(mesh.Vertices))
		}
		m.boundingRadius = r
	}
}

// WithImported applies every field of an ImportedModel.
//
// Parameters:
//   - imp: the importer result
//
// Returns:
//   - ModelBuilderOption: a function that applies the imported model to a model
func WithImported(imp *ImportedModel) ModelBuilderOption {
	return func(m *model) {
		WithName(imp.Name)(m)
		WithSkeleton(imp.Skeleton)(m)
		WithAnimations(imp.Animations)(m)
		WithMeshes(imp.Meshes)(m)
	}
}
