package codec

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"gopkg.in/yaml.v3"
)

// textureDocument is the on-disk metadata schema of a texture. "format" is
// the storage layout and is always RGBA8; "texture_format" carries the
// colour space the renderer should sample with.
type textureDocument struct {
	Format        string `yaml:"format"`
	TextureFormat string `yaml:"texture_format"`
	OriginalSize  uint64 `yaml:"original_size"`
	OriginalFile  string `yaml:"original_file"`
	MipLevels     uint32 `yaml:"miplevels"`
	Width         uint32 `yaml:"width"`
	Height        uint32 `yaml:"height"`
	Compression   string `yaml:"compression"`
}

// PackTexture builds the asset file for a mip chain described by info. The
// mode actually used is recorded in the returned file; info is not modified.
func PackTexture(info *metadata.TextureInfo, pixels []byte, mode metadata.CompressionMode) (*AssetFile, error) {
	if uint64(len(pixels)) != info.OriginalSize {
		return nil, errors.Errorf("texture payload is %d bytes, info says %d", len(pixels), info.OriginalSize)
	}

	used, blob, err := compress(mode, pixels)
	if err != nil {
		return nil, err
	}

	doc, err := yaml.Marshal(textureDocument{
		Format:        metadata.TextureStorageFormat,
		TextureFormat: info.TextureFormat.String(),
		OriginalSize:  info.OriginalSize,
		OriginalFile:  info.OriginalFile,
		MipLevels:     info.MipLevels,
		Width:         info.Width,
		Height:        info.Height,
		Compression:   used.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding texture metadata")
	}

	return &AssetFile{
		Kind:        metadata.AssetKindTexture,
		Version:     metadata.AssetVersion,
		Compression: used,
		Metadata:    doc,
		Blob:        blob,
	}, nil
}

// ReadTextureInfo decodes the metadata of a texture asset.
func ReadTextureInfo(file *AssetFile) (*metadata.TextureInfo, error) {
	if file.Kind != metadata.AssetKindTexture {
		return nil, errors.Wrapf(core.ErrUnknownAssetKind, "expected %s, got %s", metadata.AssetKindTexture, file.Kind)
	}

	var doc textureDocument
	if err := yaml.Unmarshal(file.Metadata, &doc); err != nil {
		return nil, errors.Wrap(core.ErrCorruptAsset, "texture metadata: "+err.Error())
	}
	if doc.Format != metadata.TextureStorageFormat {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "unsupported storage format %q", doc.Format)
	}
	// Files without an explicit colour space are linear.
	format := metadata.TextureFormatRGBA8
	if doc.TextureFormat != "" {
		f, err := metadata.ParseTextureFormat(doc.TextureFormat)
		if err != nil {
			return nil, errors.Wrap(core.ErrCorruptAsset, err.Error())
		}
		format = f
	}
	compression, err := metadata.ParseCompressionMode(doc.Compression)
	if err != nil {
		return nil, errors.Wrap(core.ErrUnknownCompression, err.Error())
	}

	return &metadata.TextureInfo{
		OriginalSize:    doc.OriginalSize,
		Width:           doc.Width,
		Height:          doc.Height,
		TextureFormat:   format,
		OriginalFile:    doc.OriginalFile,
		MipLevels:       doc.MipLevels,
		CompressionMode: compression,
	}, nil
}

// UnpackTexture returns the uncompressed mip chain.
func UnpackTexture(info *metadata.TextureInfo, file *AssetFile) ([]byte, error) {
	return decompress(file.Compression, file.Blob, info.OriginalSize)
}
