package renderer

import (
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeCustom uses the backend supplied through WithBackend.
	BackendTypeCustom
)

// RendererBackend is the device-facing half of the Renderer.
// The Renderer owns pass bookkeeping and pipeline lookup; the backend turns each call into GPU commands.
type RendererBackend interface {
	// InitMeshBuffers creates vertex and index buffers from packed data and stores them on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload
	//   - indexData: the raw index data bytes to upload
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitUniforms creates one buffer per declared binding of the provider and the bind group referencing them.
	//
	// Parameters:
	//   - provider: the BindGroupProvider whose declarations are allocated
	//
	// Returns:
	//   - error: an error if buffer or bind group creation fails
	InitUniforms(provider bind_group_provider.BindGroupProvider) error

	// WriteBuffers copies staged data into initialized buffers. Writes targeting a missing buffer are skipped.
	//
	// Parameters:
	//   - writes: the staged buffer writes
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginShadowPass opens a depth-only pass targeting the shadow map.
	BeginShadowPass() error

	// EndShadowPass closes the shadow pass and submits its commands.
	EndShadowPass() error

	// BeginFrame opens the main color and depth pass.
	BeginFrame() error

	// EndFrame closes the main pass and submits its commands.
	EndFrame() error

	// Draw records one indexed draw into the pass of the given pipeline.
	//
	// Parameters:
	//   - p: the pipeline to bind
	//   - mesh: the provider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: bind groups set at group indices 0..n-1
	//
	// Returns:
	//   - error: an error if the draw cannot be recorded
	Draw(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// Release frees any GPU resources held by the backend itself.
	Release()
}
