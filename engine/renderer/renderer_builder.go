package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipelines pre-registers pipelines in the renderer's pipeline cache under their keys.
//
// Parameters:
//   - pipelines: the Pipelines to cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		for _, p := range pipelines {
			r.pipelineCache[p.PipelineKey()] = p
		}
	}
}

// WithDevice supplies the device and queue used by the WGPU backend.
//
// Parameters:
//   - device: the WebGPU device
//   - queue: the device queue
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithDevice(device *wgpu.Device, queue *wgpu.Queue) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
		r.queue = queue
	}
}

// WithColorTarget sets the function that yields each frame's color view.
func WithColorTarget(fn ColorTargetFunc) RendererBuilderOption {
	return func(r *renderer) {
		r.colorTarget = fn
	}
}

// WithDepthView sets the depth attachment of the main pass.
func WithDepthView(view *wgpu.TextureView) RendererBuilderOption {
	return func(r *renderer) {
		r.depthView = view
	}
}

// WithShadowDepthView sets the depth attachment of the shadow pass.
func WithShadowDepthView(view *wgpu.TextureView) RendererBuilderOption {
	return func(r *renderer) {
		r.shadowDepthView = view
	}
}

// WithClearColor sets the clear color of the main pass.
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithBackend injects a backend, used with BackendTypeCustom.
//
// Parameters:
//   - backend: the backend implementation
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithLogger sets the structured logger used for renderer warnings.
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
