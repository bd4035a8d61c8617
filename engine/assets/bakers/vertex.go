package bakers

import (
	"encoding/binary"
	stdmath "math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/anima-baker/engine/math"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"github.com/x448/float16"
)

const (
	AttributePosition = "POSITION"
	AttributeNormal   = "NORMAL"
	AttributeTangent  = "TANGENT"
	AttributeTexCoord = "TEXCOORD_0"
	AttributeColor    = "COLOR_0"
	AttributeJoints   = "JOINTS_0"
	AttributeWeights  = "WEIGHTS_0"
)

// Channel describes one vertex attribute and the accessor shapes it accepts.
type Channel struct {
	Attribute  string
	Types      []gltf.AccessorType
	Components []gltf.ComponentType
	Required   bool
}

func (c Channel) accepts(acc *gltf.Accessor) error {
	if !containsType(c.Types, acc.Type) {
		return &AttributeError{Attribute: c.Attribute, Err: errors.Wrapf(ErrAccessorTypeMismatch, "got %s", accessorTypeName(acc.Type))}
	}
	if !containsComponent(c.Components, acc.ComponentType) {
		return &AttributeError{Attribute: c.Attribute, Err: errors.Wrapf(ErrComponentMismatch, "got %s", componentName(acc.ComponentType))}
	}
	return nil
}

var (
	positionChannel = Channel{AttributePosition, []gltf.AccessorType{gltf.AccessorVec3}, []gltf.ComponentType{gltf.ComponentFloat}, true}
	normalChannel   = Channel{AttributeNormal, []gltf.AccessorType{gltf.AccessorVec3}, []gltf.ComponentType{gltf.ComponentFloat}, false}
	tangentChannel  = Channel{AttributeTangent, []gltf.AccessorType{gltf.AccessorVec4}, []gltf.ComponentType{gltf.ComponentFloat}, false}
	texCoordChannel = Channel{AttributeTexCoord, []gltf.AccessorType{gltf.AccessorVec2}, []gltf.ComponentType{gltf.ComponentFloat}, false}
	colorChannel    = Channel{AttributeColor, []gltf.AccessorType{gltf.AccessorVec3, gltf.AccessorVec4}, []gltf.ComponentType{gltf.ComponentFloat}, false}
	jointsChannel   = Channel{AttributeJoints, []gltf.AccessorType{gltf.AccessorVec4}, []gltf.ComponentType{gltf.ComponentUshort, gltf.ComponentUbyte}, false}
	weightsChannel  = Channel{AttributeWeights, []gltf.AccessorType{gltf.AccessorVec4}, []gltf.ComponentType{gltf.ComponentFloat}, false}
)

// Vertex is implemented by pointers to the fixed vertex layouts. Layouts are
// plain structs of fixed-size fields so binary.Write packs them without
// padding.
type Vertex[V any] interface {
	*V
	Format() metadata.VertexFormat
	Channels() []Channel
	// SetChannel stores one element of an accepted accessor. elem is the
	// raw little-endian element and component its encoding.
	SetChannel(attribute string, component gltf.ComponentType, elem []byte)
	Point() math.Vec3
}

func readFloats(elem []byte, dst []float32) {
	for i := range dst {
		if (i+1)*4 > len(elem) {
			return
		}
		dst[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(elem[i*4:]))
	}
}

func readJoints(component gltf.ComponentType, elem []byte, dst []uint16) {
	for i := range dst {
		switch component {
		case gltf.ComponentUbyte:
			if i < len(elem) {
				dst[i] = uint16(elem[i])
			}
		default:
			if (i+1)*2 <= len(elem) {
				dst[i] = binary.LittleEndian.Uint16(elem[i*2:])
			}
		}
	}
}

// VertexPNTV is the unskinned layout: position, normal, tangent, uv.
type VertexPNTV struct {
	Position [3]float32
	Normal   [3]float32
	Tangent  [4]float32
	UV       [2]float32
}

func (v *VertexPNTV) Format() metadata.VertexFormat { return metadata.VertexFormatPNTV_F32 }

func (v *VertexPNTV) Channels() []Channel {
	return []Channel{positionChannel, normalChannel, tangentChannel, texCoordChannel}
}

func (v *VertexPNTV) SetChannel(attribute string, component gltf.ComponentType, elem []byte) {
	switch attribute {
	case AttributePosition:
		readFloats(elem, v.Position[:])
	case AttributeNormal:
		readFloats(elem, v.Normal[:])
	case AttributeTangent:
		readFloats(elem, v.Tangent[:])
	case AttributeTexCoord:
		readFloats(elem, v.UV[:])
	}
}

func (v *VertexPNTV) Point() math.Vec3 { return math.NewVec3FromArray(v.Position) }

// VertexPNTVIW extends VertexPNTV with four joint indices and weights.
type VertexPNTVIW struct {
	VertexPNTV
	JointIndices [4]uint16
	JointWeights [4]float32
}

func (v *VertexPNTVIW) Format() metadata.VertexFormat { return metadata.VertexFormatPNTVIW_F32 }

func (v *VertexPNTVIW) Channels() []Channel {
	return append(v.VertexPNTV.Channels(), jointsChannel, weightsChannel)
}

func (v *VertexPNTVIW) SetChannel(attribute string, component gltf.ComponentType, elem []byte) {
	switch attribute {
	case AttributeJoints:
		readJoints(component, elem, v.JointIndices[:])
	case AttributeWeights:
		readFloats(elem, v.JointWeights[:])
	default:
		v.VertexPNTV.SetChannel(attribute, component, elem)
	}
}

// VertexPNCV carries a float colour instead of a tangent.
type VertexPNCV struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32
	UV       [2]float32
}

func (v *VertexPNCV) Format() metadata.VertexFormat { return metadata.VertexFormatPNCV_F32 }

func (v *VertexPNCV) Channels() []Channel {
	return []Channel{positionChannel, normalChannel, colorChannel, texCoordChannel}
}

func (v *VertexPNCV) SetChannel(attribute string, component gltf.ComponentType, elem []byte) {
	switch attribute {
	case AttributePosition:
		readFloats(elem, v.Position[:])
	case AttributeNormal:
		readFloats(elem, v.Normal[:])
	case AttributeColor:
		readFloats(elem, v.Color[:])
	case AttributeTexCoord:
		readFloats(elem, v.UV[:])
	}
}

func (v *VertexPNCV) Point() math.Vec3 { return math.NewVec3FromArray(v.Position) }

// VertexP32N8C8V16 is the packed layout: float position, octahedral normal
// in two unorm bytes, rgb colour bytes and half float uv.
type VertexP32N8C8V16 struct {
	Position [3]float32
	Normal   [2]uint8
	Color    [3]uint8
	UV       [2]uint16
}

func (v *VertexP32N8C8V16) Format() metadata.VertexFormat { return metadata.VertexFormatP32N8C8V16 }

func (v *VertexP32N8C8V16) Channels() []Channel {
	return []Channel{positionChannel, normalChannel, colorChannel, texCoordChannel}
}

func (v *VertexP32N8C8V16) SetChannel(attribute string, component gltf.ComponentType, elem []byte) {
	var f [4]float32
	switch attribute {
	case AttributePosition:
		readFloats(elem, v.Position[:])
	case AttributeNormal:
		readFloats(elem, f[:3])
		oct := math.OctahedralEncode(math.NewVec3(f[0], f[1], f[2]))
		v.Normal = [2]uint8{snormToUnorm8(oct.X), snormToUnorm8(oct.Y)}
	case AttributeColor:
		readFloats(elem, f[:3])
		for i := 0; i < 3; i++ {
			v.Color[i] = unorm8(f[i])
		}
	case AttributeTexCoord:
		readFloats(elem, f[:2])
		v.UV[0] = float16.Fromfloat32(f[0]).Bits()
		v.UV[1] = float16.Fromfloat32(f[1]).Bits()
	}
}

func (v *VertexP32N8C8V16) Point() math.Vec3 { return math.NewVec3FromArray(v.Position) }

func unorm8(f float32) uint8 {
	return uint8(math.Clamp(f, 0, 1)*255 + 0.5)
}

func snormToUnorm8(f float32) uint8 {
	return unorm8(f*0.5 + 0.5)
}

func containsType(list []gltf.AccessorType, t gltf.AccessorType) bool {
	for _, e := range list {
		if e == t {
			return true
		}
	}
	return false
}

func containsComponent(list []gltf.ComponentType, c gltf.ComponentType) bool {
	for _, e := range list {
		if e == c {
			return true
		}
	}
	return false
}
