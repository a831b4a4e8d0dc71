package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	// uniformSizes records declared bindings and their byte sizes.
	uniformSizes map[int]uint64
	// storage marks declared bindings that are read-only storage buffers rather than uniforms.
	storage map[int]bool

	// The following fields are GPU allocated resources populated by the Renderer.

	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
	initialized  bool
}

// BindGroupProvider describes the GPU resources a component needs: declared uniform bindings,
// the bind group built from them and, for meshes, vertex and index buffers.
// Components own a provider; the Renderer allocates and writes its resources.
//
// Usage pattern:
//  1. Component creates a provider and declares uniform bindings with WithUniform
//  2. Renderer.InitUniforms(provider) creates buffers and the bind group
//  3. Component stages BufferWrite values targeting the provider
//  4. Renderer.WriteBuffers flushes them before drawing
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	Label() string

	// Initialized reports whether the Renderer has allocated resources for this provider.
	Initialized() bool

	// MarkInitialized records that the Renderer allocated resources.
	MarkInitialized()

	// UniformBindings returns the declared uniform binding indices in ascending order.
	//
	// Returns:
	//   - []int: the binding indices
	UniformBindings() []int

	// Declare records a buffer binding and its size, replacing any earlier declaration.
	// Resources allocated before the call are not resized; Release and re-initialize to apply it.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the buffer size in bytes
	//   - storage: true for a read-only storage buffer, false for a uniform buffer
	Declare(binding int, size uint64, storage bool)

	// IsStorage reports whether a declared binding is a storage buffer.
	IsStorage(binding int) bool

	// UniformSize returns the declared byte size of a uniform binding, or 0 if undeclared.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes
	UniformSize(binding int) uint64

	// BindGroup returns the created bind group, or nil before initialization.
	BindGroup() *wgpu.BindGroup

	// SetBindGroup stores the bind group created by the Renderer.
	SetBindGroup(bg *wgpu.BindGroup)

	// Buffer returns the buffer for a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores the buffer created for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// VertexBuffer returns the GPU vertex buffer, or nil if not initialized.
	VertexBuffer() *wgpu.Buffer

	// SetVertexBuffer stores the GPU vertex buffer.
	SetVertexBuffer(buf *wgpu.Buffer)

	// IndexBuffer returns the GPU index buffer, or nil if not initialized.
	IndexBuffer() *wgpu.Buffer

	// SetIndexBuffer stores the GPU index buffer.
	SetIndexBuffer(buf *wgpu.Buffer)

	// IndexCount returns the number of indices for indexed draws.
	IndexCount() int

	// SetIndexCount sets the number of indices for indexed draws.
	SetIndexCount(count int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: the configured provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		uniformSizes: make(map[int]uint64),
		storage:      make(map[int]bool),
		buffers:      make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Initialized() bool {
	return p.initialized
}

func (p *bindGroupProvider) MarkInitialized() {
	p.initialized = true
}

func (p *bindGroupProvider) UniformBindings() []int {
	out := make([]int, 0, len(p.uniformSizes))
	for b := range p.uniformSizes {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func (p *bindGroupProvider) Declare(binding int, size uint64, storage bool) {
	p.uniformSizes[binding] = size
	p.storage[binding] = storage
}

func (p *bindGroupProvider) IsStorage(binding int) bool {
	return p.storage[binding]
}

func (p *bindGroupProvider) UniformSize(binding int) uint64 {
	return p.uniformSizes[binding]
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.initialized = false
}
