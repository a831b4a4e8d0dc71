package light

import (
	"encoding/binary"
	"unsafe"

	"github.com/chewxy/math32"
)

// GPULight is the GPU-aligned representation of a point light.
// Size: 48 bytes (three vec4<f32>).
type GPULight struct {
	Position            [4]float32 // offset  0: world-space position, w = 1
	Color               [4]float32 // offset 16: RGBA color
	AttenuationDistance [4]float32 // offset 32: cutoff distance splatted across all lanes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 48)
	putFloats(buf[0:16], g.Position[:])
	putFloats(buf[16:32], g.Color[:])
	putFloats(buf[32:48], g.AttenuationDistance[:])
	return buf
}

// GPUShadowData is the GPU-aligned representation of the light's shadow projection.
// Size: 80 bytes (std430 / WGSL aligned).
//
// Layout:
//
//	mat4x4<f32> light_vp       (64 bytes, offset 0)
//	vec2<f32>   texel_size     ( 8 bytes, offset 64)
//	f32         bias           ( 4 bytes, offset 72)
//	f32         _pad           ( 4 bytes, offset 76)
type GPUShadowData struct {
	LightVP   [16]float32 // perspective view-projection from the light's position
	TexelSize [2]float32  // 1.0 / shadow_map_resolution for PCF offset calculations
	Bias      float32     // depth comparison bias to reduce shadow acne
	_pad      float32
}

// Size returns the size of the GPUShadowData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (s *GPUShadowData) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Fill computes the shadow data for a light.
//
// Parameters:
//   - l: the shadow-casting light
//   - settings: the shadow map resolution and bias
func (s *GPUShadowData) Fill(l PointLight, settings ShadowSettings) {
	s.LightVP = l.Projection().Mul4(l.View())
	texel := settings.TexelSize()
	s.TexelSize = [2]float32{texel, texel}
	s.Bias = settings.Bias
}

// Marshal serializes the GPUShadowData struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (s *GPUShadowData) Marshal() []byte {
	buf := make([]byte, 80)
	putFloats(buf[0:64], s.LightVP[:])
	putFloats(buf[64:72], s.TexelSize[:])
	binary.LittleEndian.PutUint32(buf[72:76], math32.Float32bits(s.Bias))
	return buf
}

func putFloats(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math32.Float32bits(v))
	}
}
