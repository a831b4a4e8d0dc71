package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoBackend is returned by NewRenderer when the selected backend cannot be built from the options.
	ErrNoBackend = errors.New("renderer backend not configured")

	// ErrUnknownPipeline is returned when a draw names a pipeline that was never registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrPassNotOpen is returned when a draw targets a pass that is not currently open.
	ErrPassNotOpen = errors.New("render pass not open")

	// ErrPassOpen is returned when a pass is opened while another one is still recording.
	ErrPassOpen = errors.New("render pass already open")
)

// FrameStats counts the work recorded during one frame.
// A frame starts at BeginShadowPass, or at BeginFrame when no shadow pass preceded it.
type FrameStats struct {
	DrawCalls   int
	Instances   int
	BufferBytes int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	logger      *slog.Logger

	// open is the pass currently recording, nil between passes
	open      *pipeline.PassType
	shadowRan bool

	stats FrameStats

	// Pre-creation config collected from builder options
	device          *wgpu.Device
	queue           *wgpu.Queue
	colorTarget     ColorTargetFunc
	depthView       *wgpu.TextureView
	shadowDepthView *wgpu.TextureView
	clearColor      wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// The Renderer keeps a cache of externally compiled pipelines, lazily allocates the GPU resources
// declared by BindGroupProviders and records draws into a shadow pass and a main pass.
// The device-specific work is delegated to a RendererBackend.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key, or nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines caches pipelines by key. Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	RegisterPipelines(pipelines ...pipeline.Pipeline)

	// ResolvePipeline finds a registered pipeline by pass and vertex layout.
	//
	// Parameters:
	//   - pass: the render pass
	//   - instanced: whether the draw uses an instance matrix buffer
	//   - skinned: whether the draw uses skinned vertices
	//
	// Returns:
	//   - pipeline.Pipeline: the first matching pipeline in key order
	//   - bool: whether a pipeline matched
	ResolvePipeline(pass pipeline.PassType, instanced, skinned bool) (pipeline.Pipeline, bool)

	// InitMeshBuffers uploads packed mesh data to the provider and marks it initialized.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitUniforms allocates the buffers and bind group declared by a provider and marks it initialized.
	// Initialized providers are left untouched.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to allocate
	//
	// Returns:
	//   - error: an error if allocation fails
	InitUniforms(provider bind_group_provider.BindGroupProvider) error

	// WriteBuffers flushes staged writes, initializing any provider seen for the first time.
	//
	// Parameters:
	//   - writes: the staged buffer writes
	//
	// Returns:
	//   - error: the joined initialization errors; writes to failed providers are dropped
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginShadowPass opens the depth-only shadow pass and resets the frame statistics.
	BeginShadowPass() error

	// EndShadowPass closes the shadow pass.
	EndShadowPass() error

	// BeginFrame opens the main pass. Statistics are reset unless a shadow pass ran first.
	BeginFrame() error

	// EndFrame closes the main pass and submits it.
	EndFrame() error

	// Draw records an indexed draw with a registered pipeline into its pass.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - mesh: the provider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: bind groups set at group indices 0..n-1
	//
	// Returns:
	//   - error: ErrUnknownPipeline, ErrPassNotOpen or a backend error
	Draw(pipelineKey string, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// Stats returns the statistics of the frame being recorded or last recorded.
	Stats() FrameStats

	// Release frees backend resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer. The WGPU backend requires WithDevice; BackendTypeCustom requires WithBackend.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - options: a variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the provided backend and options
//   - error: ErrNoBackend when the backend cannot be built
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		logger:        slog.Default(),
		clearColor:    wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		if r.device == nil || r.queue == nil {
			return nil, fmt.Errorf("%w: wgpu backend needs a device and queue", ErrNoBackend)
		}
		r.backend = newWGPURendererBackend(r.device, r.queue, r.colorTarget, r.depthView, r.shadowDepthView, r.clearColor)
	case BackendTypeCustom:
		if r.backend == nil {
			return nil, fmt.Errorf("%w: custom backend not supplied", ErrNoBackend)
		}
	default:
		return nil, fmt.Errorf("%w: unknown backend type %d", ErrNoBackend, backendType)
	}
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, v := range r.pipelineCache {
		out[k] = v
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if _, exists := r.pipelineCache[p.PipelineKey()]; exists {
			continue
		}
		r.pipelineCache[p.PipelineKey()] = p
	}
}

func (r *renderer) ResolvePipeline(pass pipeline.PassType, instanced, skinned bool) (pipeline.Pipeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found pipeline.Pipeline
	for key, p := range r.pipelineCache {
		if p.Pass() != pass || p.Instanced() != instanced || p.Skinned() != skinned {
			continue
		}
		if found == nil || key < found.PipelineKey() {
			found = p
		}
	}
	return found, found != nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	if err := r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount); err != nil {
		return err
	}
	provider.MarkInitialized()
	return nil
}

func (r *renderer) InitUniforms(provider bind_group_provider.BindGroupProvider) error {
	if provider.Initialized() {
		return nil
	}
	if err := r.backend.InitUniforms(provider); err != nil {
		return fmt.Errorf("init %q: %w", provider.Label(), err)
	}
	provider.MarkInitialized()
	return nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	if len(writes) == 0 {
		return nil
	}

	var errs []error
	failed := make(map[bind_group_provider.BindGroupProvider]bool)
	ready := make([]bind_group_provider.BufferWrite, 0, len(writes))
	for _, w := range writes {
		if failed[w.Provider] {
			continue
		}
		if err := r.InitUniforms(w.Provider); err != nil {
			failed[w.Provider] = true
			errs = append(errs, err)
			r.logger.Warn("dropping writes for provider", "provider", w.Provider.Label(), "error", err)
			continue
		}
		ready = append(ready, w)
	}

	r.backend.WriteBuffers(ready)

	r.mu.Lock()
	for _, w := range ready {
		r.stats.BufferBytes += len(w.Data)
	}
	r.mu.Unlock()
	return errors.Join(errs...)
}

func (r *renderer) beginPass(pass pipeline.PassType, resetStats bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil {
		return fmt.Errorf("%w: %s", ErrPassOpen, *r.open)
	}
	r.open = &pass
	if resetStats {
		r.stats = FrameStats{}
	}
	return nil
}

func (r *renderer) endPass() {
	r.mu.Lock()
	r.open = nil
	r.mu.Unlock()
}

func (r *renderer) BeginShadowPass() error {
	if err := r.beginPass(pipeline.PassTypeShadow, true); err != nil {
		return err
	}
	if err := r.backend.BeginShadowPass(); err != nil {
		r.endPass()
		return err
	}
	r.shadowRan = true
	return nil
}

func (r *renderer) EndShadowPass() error {
	defer r.endPass()
	return r.backend.EndShadowPass()
}

func (r *renderer) BeginFrame() error {
	if err := r.beginPass(pipeline.PassTypeMain, !r.shadowRan); err != nil {
		return err
	}
	if err := r.backend.BeginFrame(); err != nil {
		r.endPass()
		return err
	}
	return nil
}

func (r *renderer) EndFrame() error {
	defer r.endPass()
	r.shadowRan = false
	return r.backend.EndFrame()
}

func (r *renderer) Draw(pipelineKey string, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, ok := r.pipelineCache[pipelineKey]
	open := r.open
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPipeline, pipelineKey)
	}
	if open == nil || *open != p.Pass() {
		return fmt.Errorf("%w: %q draws in the %s pass", ErrPassNotOpen, pipelineKey, p.Pass())
	}
	if instanceCount == 0 || mesh.IndexCount() == 0 {
		return nil
	}

	if err := r.backend.Draw(p, mesh, instanceCount, bindGroups); err != nil {
		return err
	}

	r.mu.Lock()
	r.stats.DrawCalls++
	r.stats.Instances += int(instanceCount)
	r.mu.Unlock()
	return nil
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Release() {
	r.backend.Release()
}
