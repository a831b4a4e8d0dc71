package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithRenderPipeline attaches an already compiled render pipeline.
//
// Parameters:
//   - rp: the WebGPU render pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the render pipeline
func WithRenderPipeline(rp *wgpu.RenderPipeline) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderPipeline = rp
	}
}

// WithInstanced marks the pipeline as reading per-instance matrices.
func WithInstanced(instanced bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.instanced = instanced
	}
}

// WithSkinned marks the pipeline as reading skinned vertices and a bone table.
func WithSkinned(skinned bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.skinned = skinned
	}
}
