package bakers

import (
	"encoding/binary"
	stdmath "math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/anima-baker/engine/assets/codec"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quadPositions = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

// quadPrimitive writes a two triangle quad into doc.
func quadPrimitive(doc *gltf.Document, skinned bool) *gltf.Primitive {
	attrs := gltf.Attribute{
		AttributePosition: modeler.WritePosition(doc, quadPositions),
		AttributeNormal:   modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
		AttributeTexCoord: modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}),
	}
	if skinned {
		attrs[AttributeJoints] = modeler.WriteJoints(doc, [][4]uint16{{1, 0, 0, 0}, {1, 0, 0, 0}, {2, 0, 0, 0}, {2, 0, 0, 0}})
		attrs[AttributeWeights] = modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}})
	}
	indices := modeler.WriteAccessor(doc, gltf.TargetElementArrayBuffer, []uint16{0, 1, 2, 0, 2, 3})
	return &gltf.Primitive{Attributes: attrs, Indices: gltf.Index(indices)}
}

func TestMeshName(t *testing.T) {
	assert.Equal(t, "MESH_2_Torso", MeshName(2, "Torso", 0, 1))
	assert.Equal(t, "MESH_2_Torso_PRIM_0", MeshName(2, "Torso", 0, 2))
	assert.Equal(t, "MESH_2_Torso_PRIM_1", MeshName(2, "Torso", 1, 2))
	assert.Equal(t, "MESH_0_", MeshName(0, "", 0, 1))
}

func TestRewindTriangles(t *testing.T) {
	indices := []uint16{0, 1, 2, 3, 4, 5}
	RewindTriangles(indices)
	assert.Equal(t, []uint16{0, 2, 1, 3, 5, 4}, indices)

	partial := []uint16{0, 1, 2, 3, 4}
	RewindTriangles(partial)
	assert.Equal(t, []uint16{0, 2, 1, 3, 4}, partial)
}

func TestVertexLayoutSizes(t *testing.T) {
	tests := []struct {
		vertex interface{}
		format metadata.VertexFormat
	}{
		{VertexPNTV{}, metadata.VertexFormatPNTV_F32},
		{VertexPNTVIW{}, metadata.VertexFormatPNTVIW_F32},
		{VertexPNCV{}, metadata.VertexFormatPNCV_F32},
		{VertexP32N8C8V16{}, metadata.VertexFormatP32N8C8V16},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			assert.Equal(t, int(tt.format.Size()), binary.Size(tt.vertex))
		})
	}
}

func TestUnpackBufferFollowsStride(t *testing.T) {
	// two vec3 floats interleaved with 4 padding bytes
	data := make([]byte, 32)
	for i, f := range []float32{1, 2, 3} {
		binary.LittleEndian.PutUint32(data[4+i*4:], stdmath.Float32bits(f))
	}
	for i, f := range []float32{4, 5, 6} {
		binary.LittleEndian.PutUint32(data[20+i*4:], stdmath.Float32bits(f))
	}
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 32, Data: data}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteOffset: 0, ByteLength: 32, ByteStride: 16}},
	}
	acc := &gltf.Accessor{BufferView: gltf.Index(0), ByteOffset: 4, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 2}

	out, err := UnpackBuffer(doc, acc)
	require.NoError(t, err)
	require.Len(t, out, 24)
	var got [6]float32
	readFloats(out, got[:])
	assert.Equal(t, [6]float32{1, 2, 3, 4, 5, 6}, got)

	acc.Count = 3
	_, err = UnpackBuffer(doc, acc)
	assert.ErrorIs(t, err, ErrAccessorOutOfRange)
}

func TestUnpackBufferWithoutViewIsZero(t *testing.T) {
	acc := &gltf.Accessor{ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec2, Count: 3}
	out, err := UnpackBuffer(&gltf.Document{}, acc)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 24), out)
}

func TestUnpackBufferChecksRangeBeforeAllocating(t *testing.T) {
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 12, Data: make([]byte, 12)}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: 12}},
	}
	tests := []struct {
		name string
		acc  *gltf.Accessor
	}{
		{"huge count", &gltf.Accessor{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1 << 31}},
		{"max count", &gltf.Accessor{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: stdmath.MaxUint32}},
		{"offset past view", &gltf.Accessor{BufferView: gltf.Index(0), ByteOffset: 4, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1}},
		{"no view", &gltf.Accessor{ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1 << 31}},
		{"null view", &gltf.Accessor{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1}},
	}
	doc.BufferViews = append(doc.BufferViews, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := UnpackBuffer(doc, tt.acc)
			runtime.ReadMemStats(&after)
			assert.ErrorIs(t, err, ErrAccessorOutOfRange)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}

func TestExtractVerticesRejectsOversizedPosition(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)
	doc.Accessors[prim.Attributes[AttributePosition]].Count = 1 << 31

	_, err := ExtractVertices[VertexPNTV](doc, prim)
	var attrErr *AttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, AttributePosition, attrErr.Attribute)
	assert.ErrorIs(t, err, ErrAccessorOutOfRange)
}

func TestExtractPrimitive(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)

	info, vertices, indices, err := ExtractPrimitive[VertexPNTV](doc, prim, "quad.gltf")
	require.NoError(t, err)
	assert.Equal(t, metadata.VertexFormatPNTV_F32, info.VertexFormat)
	assert.Equal(t, uint64(4*48), info.VertexBufferSize)
	assert.Equal(t, uint64(6*2), info.IndexBufferSize)
	assert.Equal(t, metadata.IndexSize, info.IndexSize)
	assert.Len(t, vertices, 4*48)

	got := make([]uint16, 6)
	for i := range got {
		got[i] = binary.LittleEndian.Uint16(indices[i*2:])
	}
	assert.Equal(t, []uint16{0, 2, 1, 0, 3, 2}, got)

	assert.InDelta(t, 0.5, info.Bounds.Origin.X, 1e-6)
	assert.InDelta(t, 0.5, info.Bounds.Origin.Y, 1e-6)
	assert.InDelta(t, 0.5, info.Bounds.Extents.X, 1e-6)
	assert.InDelta(t, 0, info.Bounds.Extents.Z, 1e-6)
	assert.InDelta(t, stdmath.Sqrt(0.5), info.Bounds.Radius, 1e-6)
}

func TestExtractVerticesZeroFillsMissingChannels(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)

	vertices, err := ExtractVertices[VertexPNTVIW](doc, prim)
	require.NoError(t, err)
	require.Len(t, vertices, 4)
	assert.Equal(t, [3]float32{1, 1, 0}, vertices[2].Position)
	assert.Equal(t, [4]float32{}, vertices[2].Tangent)
	assert.Equal(t, [4]uint16{}, vertices[2].JointIndices)
}

func TestExtractVerticesReadsSkin(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, true)

	vertices, err := ExtractVertices[VertexPNTVIW](doc, prim)
	require.NoError(t, err)
	assert.Equal(t, [4]uint16{2, 0, 0, 0}, vertices[3].JointIndices)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, vertices[3].JointWeights)
	assert.Equal(t, [2]float32{0, 1}, vertices[3].UV)
}

func TestExtractPrimitiveErrors(t *testing.T) {
	t.Run("missing position", func(t *testing.T) {
		doc := gltf.NewDocument()
		prim := quadPrimitive(doc, false)
		delete(prim.Attributes, AttributePosition)
		_, _, _, err := ExtractPrimitive[VertexPNTV](doc, prim, "")
		assert.ErrorIs(t, err, ErrMissingAttribute)
	})
	t.Run("normal arity", func(t *testing.T) {
		doc := gltf.NewDocument()
		prim := quadPrimitive(doc, false)
		prim.Attributes[AttributeNormal] = modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {0, 0}, {0, 0}, {0, 0}})
		_, _, _, err := ExtractPrimitive[VertexPNTV](doc, prim, "")
		var attrErr *AttributeError
		require.ErrorAs(t, err, &attrErr)
		assert.Equal(t, AttributeNormal, attrErr.Attribute)
		assert.ErrorIs(t, err, ErrAccessorTypeMismatch)
	})
	t.Run("index component", func(t *testing.T) {
		doc := gltf.NewDocument()
		prim := quadPrimitive(doc, false)
		prim.Indices = gltf.Index(modeler.WriteAccessor(doc, gltf.TargetElementArrayBuffer, []uint32{0, 1, 2}))
		_, _, _, err := ExtractPrimitive[VertexPNTV](doc, prim, "")
		assert.ErrorIs(t, err, ErrUnsupportedIndexType)
	})
	t.Run("index out of range", func(t *testing.T) {
		doc := gltf.NewDocument()
		prim := quadPrimitive(doc, false)
		prim.Indices = gltf.Index(modeler.WriteAccessor(doc, gltf.TargetElementArrayBuffer, []uint16{0, 1, 9}))
		_, _, _, err := ExtractPrimitive[VertexPNTV](doc, prim, "")
		assert.ErrorIs(t, err, ErrAccessorOutOfRange)
	})
	t.Run("count mismatch", func(t *testing.T) {
		doc := gltf.NewDocument()
		prim := quadPrimitive(doc, false)
		prim.Attributes[AttributeTexCoord] = modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}})
		_, _, _, err := ExtractPrimitive[VertexPNTV](doc, prim, "")
		assert.ErrorIs(t, err, ErrCountMismatch)
	})
}

func TestExtractIndicesSequential(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)
	prim.Indices = nil
	indices, err := ExtractIndices(doc, prim, 6)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 2, 1, 3, 5, 4}, indices)

	_, err = ExtractIndices(doc, prim, maxIndexedVertices+1)
	assert.ErrorIs(t, err, ErrTooManyVertices)
}

// shortIndices appends a SHORT index accessor holding values to doc.
func shortIndices(doc *gltf.Document, values []int16) *uint32 {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{ByteLength: uint32(len(data)), Data: data})
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: uint32(len(doc.Buffers) - 1), ByteLength: uint32(len(data))})
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(doc.BufferViews) - 1)),
		ComponentType: gltf.ComponentShort,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(values)),
	})
	return gltf.Index(uint32(len(doc.Accessors) - 1))
}

func TestExtractIndicesShort(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)
	prim.Indices = shortIndices(doc, []int16{0, 1, 2, 0, 2, 3})

	indices, err := ExtractIndices(doc, prim, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 2, 1, 0, 3, 2}, indices)

	prim.Indices = shortIndices(doc, []int16{0, 1, -1})
	_, err = ExtractIndices(doc, prim, 4)
	var attrErr *AttributeError
	require.ErrorAs(t, err, &attrErr)
	assert.Equal(t, attributeIndices, attrErr.Attribute)
	assert.ErrorIs(t, err, ErrAccessorOutOfRange)
}

func TestPackedVertexEncoding(t *testing.T) {
	doc := gltf.NewDocument()
	prim := quadPrimitive(doc, false)

	vertices, err := ExtractVertices[VertexP32N8C8V16](doc, prim)
	require.NoError(t, err)
	v := vertices[2]
	assert.Equal(t, [3]float32{1, 1, 0}, v.Position)
	// +Z maps to the centre of the octahedral square
	assert.Equal(t, [2]uint8{128, 128}, v.Normal)
	assert.Equal(t, [3]uint8{}, v.Color)
	assert.Equal(t, [2]uint16{0x3c00, 0x3c00}, v.UV)
}

func TestSelectVertexFormat(t *testing.T) {
	doc := gltf.NewDocument()
	assert.Equal(t, metadata.VertexFormatPNTV_F32, SelectVertexFormat(doc, metadata.VertexFormatPNTV_F32))
	assert.Equal(t, metadata.VertexFormatPNCV_F32, SelectVertexFormat(doc, metadata.VertexFormatPNCV_F32))
	assert.Equal(t, metadata.VertexFormatPNTV_F32, SelectVertexFormat(doc, metadata.VertexFormatUnknown))

	doc.Skins = append(doc.Skins, &gltf.Skin{Name: "rig"})
	assert.Equal(t, metadata.VertexFormatPNTVIW_F32, SelectVertexFormat(doc, metadata.VertexFormatPNCV_F32))
}

func TestMeshBakerSkinnedFileUsesSkinnedLayoutEverywhere(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = []*gltf.Mesh{
		{Name: "Body", Primitives: []*gltf.Primitive{quadPrimitive(doc, true)}},
		// no joint data, still baked skinned
		{Name: "Prop", Primitives: []*gltf.Primitive{quadPrimitive(doc, false), quadPrimitive(doc, false)}},
	}
	doc.Skins = []*gltf.Skin{{Name: "rig"}}

	out := t.TempDir()
	mb := &MeshBaker{StaticFormat: metadata.VertexFormatPNTV_F32, Compression: metadata.CompressionLZ4}
	saved, failures := mb.Bake(doc, "rig.gltf", out)
	require.Empty(t, failures)
	assert.ElementsMatch(t, []string{
		filepath.Join(out, "MESH_0_Body.mesh"),
		filepath.Join(out, "MESH_1_Prop_PRIM_0.mesh"),
		filepath.Join(out, "MESH_1_Prop_PRIM_1.mesh"),
	}, saved)

	for _, path := range saved {
		file, err := codec.LoadBinaryFile(path)
		require.NoError(t, err)
		info, err := codec.ReadMeshInfo(file)
		require.NoError(t, err)
		assert.Equal(t, metadata.VertexFormatPNTVIW_F32, info.VertexFormat)
		assert.Equal(t, uint64(4), info.VertexCount())
		assert.Equal(t, "rig.gltf", info.OriginalFile)
	}
}

func TestMeshBakerSkipsOnlyTheBadPrimitive(t *testing.T) {
	doc := gltf.NewDocument()
	bad := quadPrimitive(doc, false)
	bad.Attributes[AttributePosition] = modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	doc.Meshes = []*gltf.Mesh{
		{Name: "Good", Primitives: []*gltf.Primitive{quadPrimitive(doc, false)}},
		{Name: "Bad", Primitives: []*gltf.Primitive{bad}},
	}

	out := t.TempDir()
	mb := &MeshBaker{StaticFormat: metadata.VertexFormatPNTV_F32}
	saved, failures := mb.Bake(doc, "mixed.gltf", out)
	assert.Equal(t, []string{filepath.Join(out, "MESH_0_Good.mesh")}, saved)
	require.Len(t, failures, 1)

	var primErr *PrimitiveError
	require.ErrorAs(t, failures[0], &primErr)
	assert.Equal(t, "MESH_1_Bad", primErr.Name)
	assert.ErrorIs(t, failures[0], ErrAccessorTypeMismatch)

	_, err := os.Stat(filepath.Join(out, "MESH_1_Bad.mesh"))
	assert.True(t, os.IsNotExist(err))
}
