package bind_group_provider

// BufferWrite describes a single GPU buffer write targeting a binding of a BindGroupProvider at a byte offset.
// Writes are staged by producers (animators, lights, cameras) and flushed by the Renderer once per frame.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
