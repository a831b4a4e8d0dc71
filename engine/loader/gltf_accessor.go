package loader

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfAccessorComponents returns the number of float components per element of an accessor type.
func gltfAccessorComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

// gltfReadFloats reads an accessor of the requested type into a flat float slice.
// Decoding goes through modeler.ReadAccessor, so interleaved and sparse accessors are supported.
// Integer components are dequantized when the accessor is normalized and converted as-is otherwise.
// Matrix elements come out column-major.
// An accessor without a buffer view or sparse data reads as zeros.
//
// Parameters:
//   - doc: the decoded document
//   - index: the accessor index
//   - want: the expected accessor type
//
// Returns:
//   - []float32: count × components values
//   - error: ErrInvalidAccessor when the accessor is missing, mistyped or unreadable
func gltfReadFloats(doc *gltf.Document, index uint32, want gltf.AccessorType) ([]float32, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidAccessor, index)
	}
	acr := doc.Accessors[index]
	if acr.Type != want {
		return nil, fmt.Errorf("%w: accessor %d has type %v, want %v", ErrInvalidAccessor, index, acr.Type, want)
	}

	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: accessor %d: %v", ErrInvalidAccessor, index, err)
	}

	out := make([]float32, 0, int(acr.Count)*gltfAccessorComponents(want))
	if data == nil {
		return out[:cap(out)], nil
	}

	var flatten func(v reflect.Value)
	flatten = func(v reflect.Value) {
		switch v.Kind() {
		case reflect.Array:
			if v.Type().Elem().Kind() == reflect.Array {
				// matrices decode as [row][col], emit column-major like the buffer
				for c := 0; c < v.Index(0).Len(); c++ {
					for r := 0; r < v.Len(); r++ {
						flatten(v.Index(r).Index(c))
					}
				}
				return
			}
			fallthrough
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				flatten(v.Index(i))
			}
		case reflect.Float32:
			out = append(out, float32(v.Float()))
		case reflect.Int8, reflect.Int16:
			out = append(out, gltfDequantizeSigned(v.Int(), v.Kind(), acr.Normalized))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32:
			out = append(out, gltfDequantizeUnsigned(v.Uint(), v.Kind(), acr.Normalized))
		}
	}
	flatten(reflect.ValueOf(data))
	return out, nil
}

// gltfDequantizeSigned maps a BYTE or SHORT component to float, max(c / (2^(n-1) - 1), -1) when normalized.
func gltfDequantizeSigned(c int64, kind reflect.Kind, normalized bool) float32 {
	if !normalized {
		return float32(c)
	}
	limit := float32(127)
	if kind == reflect.Int16 {
		limit = 32767
	}
	return max(float32(c)/limit, -1)
}

// gltfDequantizeUnsigned maps an UNSIGNED_BYTE, UNSIGNED_SHORT or UNSIGNED_INT component to float,
// c / (2^n - 1) when normalized.
func gltfDequantizeUnsigned(c uint64, kind reflect.Kind, normalized bool) float32 {
	if !normalized {
		return float32(c)
	}
	switch kind {
	case reflect.Uint8:
		return float32(c) / 255
	case reflect.Uint16:
		return float32(c) / 65535
	}
	return float32(float64(c) / 4294967295)
}

// gltfReadMat4s reads a MAT4 accessor into column-major matrices.
func gltfReadMat4s(doc *gltf.Document, index uint32) ([]mgl32.Mat4, error) {
	flat, err := gltfReadFloats(doc, index, gltf.AccessorMat4)
	if err != nil {
		return nil, err
	}
	mats := make([]mgl32.Mat4, len(flat)/16)
	for i := range mats {
		copy(mats[i][:], flat[i*16:(i+1)*16])
	}
	return mats, nil
}
