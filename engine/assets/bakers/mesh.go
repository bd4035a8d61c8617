package bakers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/anima-baker/engine/assets/codec"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/math"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

const attributeIndices = "indices"

// maxIndexedVertices is the number of vertices addressable by 16-bit indices.
const maxIndexedVertices = 1 << 16

// Primitive is one extracted mesh primitive, ready to be packed.
type Primitive struct {
	Name      string
	Mesh      int
	Primitive int
	Info      metadata.MeshInfo
	Vertices  []byte
	Indices   []byte
}

// MeshName returns MESH_<meshIndex>_<name>, with a _PRIM_<primIndex> suffix
// when the mesh has more than one primitive.
func MeshName(meshIndex int, name string, primIndex, primCount int) string {
	s := fmt.Sprintf("MESH_%d_%s", meshIndex, name)
	if primCount > 1 {
		s += fmt.Sprintf("_PRIM_%d", primIndex)
	}
	return s
}

// SelectVertexFormat applies the whole file policy: any skin in the document
// forces the skinned layout on every mesh, otherwise static is used.
func SelectVertexFormat(doc *gltf.Document, static metadata.VertexFormat) metadata.VertexFormat {
	if len(doc.Skins) > 0 {
		return metadata.VertexFormatPNTVIW_F32
	}
	if static == metadata.VertexFormatUnknown || static == metadata.VertexFormatPNTVIW_F32 {
		return metadata.VertexFormatPNTV_F32
	}
	return static
}

// RewindTriangles swaps the second and third index of every complete
// triangle in place. A trailing partial triangle is left untouched.
func RewindTriangles(indices []uint16) {
	for i := 0; i+2 < len(indices); i += 3 {
		indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
	}
}

func accessorAt(doc *gltf.Document, index uint32, attribute string) (*gltf.Accessor, error) {
	if int(index) >= len(doc.Accessors) || doc.Accessors[index] == nil {
		return nil, &AttributeError{Attribute: attribute, Err: errors.Wrapf(ErrAccessorOutOfRange, "accessor %d", index)}
	}
	return doc.Accessors[index], nil
}

// ExtractVertices assembles the vertex array of prim in layout V. POSITION
// decides the vertex count; other channels are optional and left zeroed
// when the primitive does not carry them.
func ExtractVertices[V any, PV Vertex[V]](doc *gltf.Document, prim *gltf.Primitive) ([]V, error) {
	posIndex, ok := prim.Attributes[AttributePosition]
	if !ok {
		return nil, &AttributeError{Attribute: AttributePosition, Err: ErrMissingAttribute}
	}
	posAccessor, err := accessorAt(doc, posIndex, AttributePosition)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := accessorSource(doc, posAccessor); err != nil {
		return nil, &AttributeError{Attribute: AttributePosition, Err: err}
	}
	count := int(posAccessor.Count)
	vertices := make([]V, count)

	for _, ch := range PV(new(V)).Channels() {
		index, ok := prim.Attributes[ch.Attribute]
		if !ok {
			if ch.Required {
				return nil, &AttributeError{Attribute: ch.Attribute, Err: ErrMissingAttribute}
			}
			core.LogWarn("primitive has no %s, filling with zeros", ch.Attribute)
			continue
		}
		acc, err := accessorAt(doc, index, ch.Attribute)
		if err != nil {
			return nil, err
		}
		if err := ch.accepts(acc); err != nil {
			return nil, err
		}
		if int(acc.Count) != count {
			return nil, &AttributeError{Attribute: ch.Attribute, Err: errors.Wrapf(ErrCountMismatch, "%d elements for %d positions", acc.Count, count)}
		}
		data, err := UnpackBuffer(doc, acc)
		if err != nil {
			return nil, &AttributeError{Attribute: ch.Attribute, Err: err}
		}
		size := ElementSize(acc)
		for i := range vertices {
			PV(&vertices[i]).SetChannel(ch.Attribute, acc.ComponentType, data[i*size:(i+1)*size])
		}
	}
	return vertices, nil
}

// ExtractIndices reads the 16-bit index list of prim and rewinds every
// triangle. Primitives without indices get a sequential list.
func ExtractIndices(doc *gltf.Document, prim *gltf.Primitive, vertexCount int) ([]uint16, error) {
	if prim.Indices == nil {
		if vertexCount > maxIndexedVertices {
			return nil, &AttributeError{Attribute: attributeIndices, Err: errors.Wrapf(ErrTooManyVertices, "%d vertices", vertexCount)}
		}
		indices := make([]uint16, vertexCount)
		for i := range indices {
			indices[i] = uint16(i)
		}
		RewindTriangles(indices)
		return indices, nil
	}

	acc, err := accessorAt(doc, *prim.Indices, attributeIndices)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, &AttributeError{Attribute: attributeIndices, Err: errors.Wrapf(ErrAccessorTypeMismatch, "got %s", accessorTypeName(acc.Type))}
	}
	switch acc.ComponentType {
	case gltf.ComponentUshort, gltf.ComponentShort:
	default:
		return nil, &AttributeError{Attribute: attributeIndices, Err: errors.Wrapf(ErrUnsupportedIndexType, "got %s", componentName(acc.ComponentType))}
	}

	data, err := UnpackBuffer(doc, acc)
	if err != nil {
		return nil, &AttributeError{Attribute: attributeIndices, Err: err}
	}
	indices := make([]uint16, acc.Count)
	for i := range indices {
		// signed indices keep their bit pattern
		indices[i] = binary.LittleEndian.Uint16(data[i*2:])
		if int(indices[i]) >= vertexCount {
			return nil, &AttributeError{Attribute: attributeIndices, Err: errors.Wrapf(ErrAccessorOutOfRange, "index %d references vertex %d of %d", i, indices[i], vertexCount)}
		}
	}
	RewindTriangles(indices)
	return indices, nil
}

// ExtractPrimitive assembles one primitive in layout V and packs its buffers.
func ExtractPrimitive[V any, PV Vertex[V]](doc *gltf.Document, prim *gltf.Primitive, originalFile string) (*metadata.MeshInfo, []byte, []byte, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		core.LogWarn("primitive mode %d is not a triangle list, indices are rewound as triangles", prim.Mode)
	}
	vertices, err := ExtractVertices[V, PV](doc, prim)
	if err != nil {
		return nil, nil, nil, err
	}
	indices, err := ExtractIndices(doc, prim, len(vertices))
	if err != nil {
		return nil, nil, nil, err
	}

	positions := make([]math.Vec3, len(vertices))
	for i := range vertices {
		positions[i] = PV(&vertices[i]).Point()
	}

	format := PV(new(V)).Format()
	vbuf := bytes.NewBuffer(make([]byte, 0, uint64(len(vertices))*format.Size()))
	if err := binary.Write(vbuf, binary.LittleEndian, vertices); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encoding vertices")
	}
	ibuf := bytes.NewBuffer(make([]byte, 0, len(indices)*int(metadata.IndexSize)))
	if err := binary.Write(ibuf, binary.LittleEndian, indices); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encoding indices")
	}

	info := &metadata.MeshInfo{
		VertexFormat:     format,
		VertexBufferSize: uint64(vbuf.Len()),
		IndexBufferSize:  uint64(ibuf.Len()),
		IndexSize:        metadata.IndexSize,
		Bounds:           math.CalculateBounds(positions),
		OriginalFile:     originalFile,
	}
	return info, vbuf.Bytes(), ibuf.Bytes(), nil
}

// ExtractMeshes extracts every primitive of every mesh in layout V and hands
// it to emit. A primitive that fails extraction or emission is reported as a
// *PrimitiveError and the remaining primitives are still processed.
func ExtractMeshes[V any, PV Vertex[V]](doc *gltf.Document, originalFile string, emit func(*Primitive) error) []error {
	var failures []error
	for meshIndex, mesh := range doc.Meshes {
		if mesh == nil {
			continue
		}
		for primIndex, prim := range mesh.Primitives {
			name := MeshName(meshIndex, mesh.Name, primIndex, len(mesh.Primitives))
			fail := func(err error) {
				failures = append(failures, &PrimitiveError{Name: name, Mesh: meshIndex, Primitive: primIndex, Err: err})
			}
			if prim == nil {
				fail(ErrMissingAttribute)
				continue
			}

			info, vertices, indices, err := ExtractPrimitive[V, PV](doc, prim, originalFile)
			if err != nil {
				fail(err)
				continue
			}
			if err := emit(&Primitive{
				Name:      name,
				Mesh:      meshIndex,
				Primitive: primIndex,
				Info:      *info,
				Vertices:  vertices,
				Indices:   indices,
			}); err != nil {
				fail(err)
			}
		}
	}
	return failures
}

// MeshBaker writes one mesh asset per glTF primitive.
type MeshBaker struct {
	StaticFormat metadata.VertexFormat
	Compression  metadata.CompressionMode
}

// fileName turns a primitive name into a single path element.
func fileName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name) + metadata.MeshExtension
}

// Bake extracts every primitive of doc and writes it under outputFolder. It
// returns the written paths along with one error per skipped primitive.
func (mb *MeshBaker) Bake(doc *gltf.Document, inputPath, outputFolder string) ([]string, []error) {
	clock := core.NewClock()
	clock.Start()

	var saved []string
	emit := func(p *Primitive) error {
		file, err := codec.PackMesh(&p.Info, p.Vertices, p.Indices, mb.Compression)
		if err != nil {
			return err
		}
		path := filepath.Join(outputFolder, fileName(p.Name))
		if err := codec.SaveBinaryFile(path, file); err != nil {
			return err
		}
		saved = append(saved, path)
		return nil
	}

	var failures []error
	format := SelectVertexFormat(doc, mb.StaticFormat)
	switch format {
	case metadata.VertexFormatPNTVIW_F32:
		failures = ExtractMeshes[VertexPNTVIW](doc, inputPath, emit)
	case metadata.VertexFormatPNCV_F32:
		failures = ExtractMeshes[VertexPNCV](doc, inputPath, emit)
	case metadata.VertexFormatP32N8C8V16:
		failures = ExtractMeshes[VertexP32N8C8V16](doc, inputPath, emit)
	default:
		failures = ExtractMeshes[VertexPNTV](doc, inputPath, emit)
	}

	clock.Stop()
	core.LogDebug("extracting %d meshes as %s from %s took %.3fms", len(saved), format, inputPath, clock.ElapsedMS())
	return saved, failures
}
