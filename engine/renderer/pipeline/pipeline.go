package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PassType identifies the render pass a pipeline draws into.
type PassType int

const (
	// PassTypeMain draws into the color and depth targets of the main pass.
	PassTypeMain PassType = iota

	// PassTypeShadow draws depth only into the shadow map.
	PassTypeShadow
)

// String returns the pass name.
func (p PassType) String() string {
	switch p {
	case PassTypeMain:
		return "main"
	case PassTypeShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string
	// passType selects the pass this pipeline may be bound in
	passType PassType

	// renderPipeline is the compiled GPU pipeline, created outside the engine
	renderPipeline *wgpu.RenderPipeline

	// instanced marks pipelines whose vertex stage reads per-instance matrices from a storage buffer
	instanced bool
	// skinned marks pipelines whose vertex stage reads a bone table
	skinned bool
}

// Pipeline wraps a compiled render pipeline together with the pass and vertex layout it expects.
// Shader compilation and pipeline creation happen outside the engine; the Renderer only binds
// pipelines by key.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Pass returns the render pass this pipeline belongs to.
	Pass() PassType

	// Instanced reports whether the pipeline expects an instance matrix storage buffer.
	Instanced() bool

	// Skinned reports whether the pipeline expects skinned vertices and a bone table.
	Skinned() bool

	// RenderPipeline returns the compiled GPU pipeline, or nil when none was attached.
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - passType: the pass this pipeline draws into
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, passType PassType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		passType:    passType,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pass() PassType {
	return p.passType
}

func (p *pipeline) Instanced() bool {
	return p.instanced
}

func (p *pipeline) Skinned() bool {
	return p.skinned
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}
