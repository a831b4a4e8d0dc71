package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithUniform declares a uniform buffer binding and its size in bytes.
// The Renderer allocates the buffer and bind group from these declarations.
//
// Parameters:
//   - binding: the binding index
//   - size: the buffer size in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that records the uniform declaration
func WithUniform(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Declare(binding, size, false)
	}
}

// WithStorage declares a read-only storage buffer binding and its size in bytes.
//
// Parameters:
//   - binding: the binding index
//   - size: the buffer size in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that records the storage declaration
func WithStorage(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Declare(binding, size, true)
	}
}

// WithBindGroup sets an already created bind group.
func WithBindGroup(bg *wgpu.BindGroup) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroup = bg
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
