package bakers

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// ComponentSize returns the byte size of one component, or 0 when unknown.
func ComponentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentFloat, gltf.ComponentUint:
		return 4
	default:
		return 0
	}
}

// ComponentCount returns the number of components of an element shape.
func ComponentCount(t gltf.AccessorType) int {
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
	default:
		return 0
	}
}

func componentName(c gltf.ComponentType) string {
	switch c {
	case gltf.ComponentByte:
		return "BYTE"
	case gltf.ComponentUbyte:
		return "UNSIGNED_BYTE"
	case gltf.ComponentShort:
		return "SHORT"
	case gltf.ComponentUshort:
		return "UNSIGNED_SHORT"
	case gltf.ComponentUint:
		return "UNSIGNED_INT"
	case gltf.ComponentFloat:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

func accessorTypeName(t gltf.AccessorType) string {
	switch t {
	case gltf.AccessorScalar:
		return "SCALAR"
	case gltf.AccessorVec2:
		return "VEC2"
	case gltf.AccessorVec3:
		return "VEC3"
	case gltf.AccessorVec4:
		return "VEC4"
	case gltf.AccessorMat2:
		return "MAT2"
	case gltf.AccessorMat3:
		return "MAT3"
	case gltf.AccessorMat4:
		return "MAT4"
	default:
		return "UNKNOWN"
	}
}

// ElementSize is the byte size of one element of the accessor.
func ElementSize(acc *gltf.Accessor) int {
	return ComponentSize(acc.ComponentType) * ComponentCount(acc.Type)
}

// accessorSource locates the bytes an accessor reads. It returns a nil
// slice for accessors without a buffer view. Every element read with the
// returned stride is checked to lie inside both the view and the buffer.
func accessorSource(doc *gltf.Document, acc *gltf.Accessor) (data []byte, start, stride int, err error) {
	elementSize := ElementSize(acc)
	if elementSize == 0 {
		return nil, 0, 0, errors.Wrapf(ErrAccessorTypeMismatch, "%s of %s", accessorTypeName(acc.Type), componentName(acc.ComponentType))
	}
	count := uint64(acc.Count)
	if acc.BufferView == nil {
		if count > maxIndexedVertices {
			return nil, 0, 0, errors.Wrapf(ErrAccessorOutOfRange, "%d elements without a buffer view", count)
		}
		return nil, 0, elementSize, nil
	}
	if count == 0 {
		return nil, 0, elementSize, nil
	}

	if int(*acc.BufferView) >= len(doc.BufferViews) || doc.BufferViews[*acc.BufferView] == nil {
		return nil, 0, 0, errors.Wrapf(ErrAccessorOutOfRange, "bufferView %d", *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) || doc.Buffers[view.Buffer] == nil {
		return nil, 0, 0, errors.Wrapf(ErrAccessorOutOfRange, "buffer %d", view.Buffer)
	}
	data = doc.Buffers[view.Buffer].Data

	step := uint64(view.ByteStride)
	if step == 0 {
		step = uint64(elementSize)
	}
	limit := uint64(len(data))
	if view.ByteLength != 0 {
		limit = min(limit, uint64(view.ByteOffset)+uint64(view.ByteLength))
	}
	// the stride is at least one byte, so this also keeps the product below from overflowing
	if count-1 > limit {
		return nil, 0, 0, errors.Wrapf(ErrAccessorOutOfRange, "%d elements exceed %d bytes", count, limit)
	}
	first := uint64(view.ByteOffset) + uint64(acc.ByteOffset)
	end := first + step*(count-1) + uint64(elementSize)
	if end > limit {
		return nil, 0, 0, errors.Wrapf(ErrAccessorOutOfRange, "%d elements of %d bytes at offset %d stride %d exceed %d bytes",
			count, elementSize, first, step, limit)
	}
	return data, int(first), int(step), nil
}

// UnpackBuffer copies the elements of acc into a tightly packed buffer of
// Count*ElementSize bytes, following the buffer view stride. Accessors
// without a buffer view read as zeros.
func UnpackBuffer(doc *gltf.Document, acc *gltf.Accessor) ([]byte, error) {
	data, start, stride, err := accessorSource(doc, acc)
	if err != nil {
		return nil, err
	}
	elementSize := ElementSize(acc)
	count := int(acc.Count)
	out := make([]byte, count*elementSize)
	if data == nil {
		return out, nil
	}
	for i := 0; i < count; i++ {
		src := start + stride*i
		copy(out[elementSize*i:elementSize*(i+1)], data[src:src+elementSize])
	}
	return out, nil
}
