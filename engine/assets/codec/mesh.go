package codec

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"gopkg.in/yaml.v3"
)

type meshDocument struct {
	VertexFormat     string     `yaml:"vertex_format"`
	VertexBufferSize uint64     `yaml:"vertex_buffer_size"`
	IndexBufferSize  uint64     `yaml:"index_buffer_size"`
	IndexSize        uint8      `yaml:"index_size"`
	OriginalFile     string     `yaml:"original_file"`
	Bounds           [7]float32 `yaml:"bounds,flow"`
	Compression      string     `yaml:"compression"`
}

// PackMesh builds the asset file of one primitive. The payload is the vertex
// buffer immediately followed by the index buffer. info is not modified.
func PackMesh(info *metadata.MeshInfo, vertices, indices []byte, mode metadata.CompressionMode) (*AssetFile, error) {
	if uint64(len(vertices)) != info.VertexBufferSize || uint64(len(indices)) != info.IndexBufferSize {
		return nil, errors.Errorf("mesh buffers are %d+%d bytes, info says %d+%d",
			len(vertices), len(indices), info.VertexBufferSize, info.IndexBufferSize)
	}
	if info.VertexFormat.Size() == 0 {
		return nil, errors.Wrapf(core.ErrUnknownVertexFormat, "%d", uint32(info.VertexFormat))
	}

	payload := make([]byte, 0, len(vertices)+len(indices))
	payload = append(payload, vertices...)
	payload = append(payload, indices...)

	used, blob, err := compress(mode, payload)
	if err != nil {
		return nil, err
	}

	doc, err := yaml.Marshal(meshDocument{
		VertexFormat:     info.VertexFormat.String(),
		VertexBufferSize: info.VertexBufferSize,
		IndexBufferSize:  info.IndexBufferSize,
		IndexSize:        info.IndexSize,
		OriginalFile:     info.OriginalFile,
		Bounds:           metadata.BoundsToArray(info.Bounds),
		Compression:      used.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding mesh metadata")
	}

	return &AssetFile{
		Kind:        metadata.AssetKindMesh,
		Version:     metadata.AssetVersion,
		Compression: used,
		Metadata:    doc,
		Blob:        blob,
	}, nil
}

// ReadMeshInfo decodes the metadata of a mesh asset.
func ReadMeshInfo(file *AssetFile) (*metadata.MeshInfo, error) {
	if file.Kind != metadata.AssetKindMesh {
		return nil, errors.Wrapf(core.ErrUnknownAssetKind, "expected %s, got %s", metadata.AssetKindMesh, file.Kind)
	}

	var doc meshDocument
	if err := yaml.Unmarshal(file.Metadata, &doc); err != nil {
		return nil, errors.Wrap(core.ErrCorruptAsset, "mesh metadata: "+err.Error())
	}
	format, err := metadata.ParseVertexFormat(doc.VertexFormat)
	if err != nil {
		return nil, errors.Wrap(core.ErrUnknownVertexFormat, err.Error())
	}
	if doc.VertexBufferSize%format.Size() != 0 {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "vertex buffer size %d is not a multiple of %s stride", doc.VertexBufferSize, format)
	}
	if doc.IndexSize != metadata.IndexSize || doc.IndexBufferSize%uint64(doc.IndexSize) != 0 {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "index size %d, buffer %d", doc.IndexSize, doc.IndexBufferSize)
	}
	compression, err := metadata.ParseCompressionMode(doc.Compression)
	if err != nil {
		return nil, errors.Wrap(core.ErrUnknownCompression, err.Error())
	}

	return &metadata.MeshInfo{
		VertexFormat:     format,
		VertexBufferSize: doc.VertexBufferSize,
		IndexBufferSize:  doc.IndexBufferSize,
		IndexSize:        doc.IndexSize,
		Bounds:           metadata.BoundsFromArray(doc.Bounds),
		OriginalFile:     doc.OriginalFile,
		CompressionMode:  compression,
	}, nil
}

// UnpackMesh returns the uncompressed vertex and index buffers.
func UnpackMesh(info *metadata.MeshInfo, file *AssetFile) (vertices, indices []byte, err error) {
	payload, err := decompress(file.Compression, file.Blob, info.VertexBufferSize+info.IndexBufferSize)
	if err != nil {
		return nil, nil, err
	}
	return payload[:info.VertexBufferSize], payload[info.VertexBufferSize:], nil
}
