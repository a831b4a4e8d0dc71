package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-skinning/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

// ColorTargetFunc returns the color view the next main pass renders into, typically the current swap-chain image.
// The returned release function is called once the frame has been submitted.
type ColorTargetFunc func() (view *wgpu.TextureView, release func(), err error)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	colorTarget     ColorTargetFunc
	depthView       *wgpu.TextureView
	shadowDepthView *wgpu.TextureView
	clearColor      wgpu.Color

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameRelease func()

	// Shadow pass state. Shadow passes use their own command encoder and a depth-only attachment.
	shadowFrameEncoder *wgpu.CommandEncoder
	shadowPass         *wgpu.RenderPassEncoder
}

type wgpuRendererBackend interface {
	RendererBackend

	Device() *wgpu.Device
	Queue() *wgpu.Queue
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates a backend around an already created device and queue.
// Device creation, surface configuration and shader compilation happen outside the engine.
//
// Parameters:
//   - device: the WebGPU device
//   - queue: the device queue
//   - colorTarget: supplies the color view of each frame
//   - depthView: the depth attachment of the main pass, may be nil
//   - shadowDepthView: the shadow map depth attachment, may be nil
//   - clearColor: the clear color of the main pass
//
// Returns:
//   - wgpuRendererBackend: the backend
func newWGPURendererBackend(device *wgpu.Device, queue *wgpu.Queue, colorTarget ColorTargetFunc, depthView, shadowDepthView *wgpu.TextureView, clearColor wgpu.Color) wgpuRendererBackend {
	return &wgpuRendererBackendImpl{
		mu:              &sync.Mutex{},
		device:          device,
		queue:           queue,
		colorTarget:     colorTarget,
		depthView:       depthView,
		shadowDepthView: shadowDepthView,
		clearColor:      clearColor,
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            provider.Label() + " Vertex Buffer",
			Size:             uint64(len(vertexData)),
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		provider.SetVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            provider.Label() + " Index Buffer",
			Size:             uint64(len(indexData)),
			Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf)
	}

	provider.SetIndexCount(indexCount)

	return nil
}

func (b *wgpuRendererBackendImpl) InitUniforms(provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bindings := provider.UniformBindings()
	if len(bindings) == 0 {
		return nil
	}

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	bindGroupEntries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, binding := range bindings {
		bindingType := wgpu.BufferBindingTypeUniform
		usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		if provider.IsStorage(binding) {
			bindingType = wgpu.BufferBindingTypeReadOnlyStorage
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
				Size:  provider.UniformSize(binding),
				Usage: usage,
			})
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, buf)
		}

		layoutEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(binding),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		layoutEntries[i].Buffer.Type = bindingType
		layoutEntries[i].Buffer.MinBindingSize = provider.UniformSize(binding)

		bindGroupEntries[i] = wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   provider.Label() + " Bind Group Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginShadowPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shadowDepthView == nil {
		return fmt.Errorf("shadow pass: no shadow depth view")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.shadowFrameEncoder = encoder
	b.shadowPass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		// Depth-only pass
		ColorAttachments: nil,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.shadowDepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore, // sampled by the main pass
			DepthClearValue: 1.0,
		},
	})
	return nil
}

func (b *wgpuRendererBackendImpl) EndShadowPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shadowFrameEncoder == nil {
		return nil
	}
	b.shadowPass.End()
	b.shadowPass = nil

	commandBuffer, err := b.shadowFrameEncoder.Finish(nil)
	b.shadowFrameEncoder.Release()
	b.shadowFrameEncoder = nil
	if err != nil {
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("previous frame not yet submitted")
	}
	if b.colorTarget == nil {
		return fmt.Errorf("frame: no color target")
	}

	view, release, err := b.colorTarget()
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		if release != nil {
			release()
		}
		return err
	}

	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	}
	if b.depthView != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(desc)
	b.frameRelease = release
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return nil
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
	}

	if b.frameRelease != nil {
		b.frameRelease()
		b.frameRelease = nil
	}
	return err
}

func (b *wgpuRendererBackendImpl) Draw(
	p pipeline.Pipeline,
	mesh bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pass := b.framePass
	if p.Pass() == pipeline.PassTypeShadow {
		pass = b.shadowPass
	}
	if pass == nil {
		return fmt.Errorf("draw %q: %s pass not open", p.PipelineKey(), p.Pass())
	}
	if p.RenderPipeline() == nil {
		return fmt.Errorf("draw %q: no render pipeline attached", p.PipelineKey())
	}

	pass.SetPipeline(p.RenderPipeline())
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}

	pass.SetVertexBuffer(0, mesh.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetIndexBuffer(mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(mesh.IndexCount()), instanceCount, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shadowFrameEncoder != nil {
		b.shadowFrameEncoder.Release()
		b.shadowFrameEncoder = nil
		b.shadowPass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		b.framePass = nil
	}
	if b.frameRelease != nil {
		b.frameRelease()
		b.frameRelease = nil
	}
}
