package metadata

import (
	"fmt"

	"github.com/spaghettifunk/anima-baker/engine/math"
)

// VertexFormat names a fixed per-vertex memory layout.
type VertexFormat uint32

const (
	VertexFormatUnknown VertexFormat = iota
	// position, normal, tangent, uv as float32
	VertexFormatPNTV_F32
	// PNTV plus four uint16 joint indices and four float32 joint weights
	VertexFormatPNTVIW_F32
	// float32 position, octahedral unorm8 normal, unorm8 rgb colour, float16 uv
	VertexFormatP32N8C8V16
	// position, normal, rgb colour, uv as float32
	VertexFormatPNCV_F32
)

func (f VertexFormat) String() string {
	switch f {
	case VertexFormatPNTV_F32:
		return "PNTV_F32"
	case VertexFormatPNTVIW_F32:
		return "PNTVIW_F32"
	case VertexFormatP32N8C8V16:
		return "P32N8C8V16"
	case VertexFormatPNCV_F32:
		return "PNCV_F32"
	default:
		return "Unknown"
	}
}

// Size returns the byte size of one vertex, or 0 for an unknown format.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatPNTV_F32:
		return 48
	case VertexFormatPNTVIW_F32:
		return 72
	case VertexFormatP32N8C8V16:
		return 21
	case VertexFormatPNCV_F32:
		return 44
	default:
		return 0
	}
}

func ParseVertexFormat(s string) (VertexFormat, error) {
	for _, f := range []VertexFormat{VertexFormatPNTV_F32, VertexFormatPNTVIW_F32, VertexFormatP32N8C8V16, VertexFormatPNCV_F32} {
		if f.String() == s {
			return f, nil
		}
	}
	return VertexFormatUnknown, fmt.Errorf("unknown vertex format %q", s)
}

/** @brief Byte size of one index. Baked meshes always use 16-bit indices. */
const IndexSize uint8 = 2

/**
 * @brief Metadata of a baked mesh primitive.
 */
type MeshInfo struct {
	VertexFormat     VertexFormat
	VertexBufferSize uint64
	IndexBufferSize  uint64
	IndexSize        uint8
	Bounds           math.Bounds
	/** @brief Source file, for diagnostics only. */
	OriginalFile    string
	CompressionMode CompressionMode
}

// VertexCount derives the number of vertices from the buffer size.
func (mi *MeshInfo) VertexCount() uint64 {
	if s := mi.VertexFormat.Size(); s > 0 {
		return mi.VertexBufferSize / s
	}
	return 0
}

// IndexCount derives the number of indices from the buffer size.
func (mi *MeshInfo) IndexCount() uint64 {
	if mi.IndexSize == 0 {
		return 0
	}
	return mi.IndexBufferSize / uint64(mi.IndexSize)
}

// BoundsToArray flattens bounds as origin xyz, radius, extents xyz.
func BoundsToArray(b math.Bounds) [7]float32 {
	return [7]float32{
		b.Origin.X, b.Origin.Y, b.Origin.Z,
		b.Radius,
		b.Extents.X, b.Extents.Y, b.Extents.Z,
	}
}

// BoundsFromArray is the inverse of BoundsToArray.
func BoundsFromArray(a [7]float32) math.Bounds {
	return math.Bounds{
		Origin:  math.Vec3{X: a[0], Y: a[1], Z: a[2]},
		Radius:  a[3],
		Extents: math.Vec3{X: a[4], Y: a[5], Z: a[6]},
	}
}
