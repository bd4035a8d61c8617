// Package bakers turns decoded source assets into the payloads and metadata
// of baked textures and meshes.
package bakers

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/assets/codec"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

// minDiffuseNameLength is the shortest file name, extension included, that
// can carry the diffuse suffix.
const minDiffuseNameLength = 9

// ResourceLoader is the part of a loader the bakers need.
type ResourceLoader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}

// TextureBaker converts source images into mipmapped RGBA8 textures.
type TextureBaker struct {
	Loader        ResourceLoader
	DiffuseSuffix string
	Compression   metadata.CompressionMode
}

// ClassifyTexture picks the sampling format from the file name: names whose
// stem ends with suffix are colour maps sampled as sRGB, anything else is
// linear data.
func ClassifyTexture(path, suffix string) metadata.TextureFormat {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if suffix != "" && len(name) >= minDiffuseNameLength && strings.HasSuffix(stem, suffix) {
		return metadata.TextureFormatSRGBA8
	}
	return metadata.TextureFormatRGBA8
}

// nextMipSize halves a dimension, never going below 1.
func nextMipSize(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return v / 2
}

// MipChainSize returns the number of levels of a full mip chain down to 1x1
// and the byte size of all RGBA8 levels together.
func MipChainSize(width, height uint32) (levels uint32, size uint64) {
	if width == 0 || height == 0 {
		return 0, 0
	}
	levels = 1
	size = uint64(width) * uint64(height) * 4
	for width > 1 || height > 1 {
		width, height = nextMipSize(width), nextMipSize(height)
		size += uint64(width) * uint64(height) * 4
		levels++
	}
	return levels, size
}

// GenerateMips builds the full mip chain of an RGBA8 image, level 0 first,
// in one buffer sized up front. Each level is box filtered from the one above.
func GenerateMips(pixels []byte, width, height uint32) ([]byte, uint32, error) {
	levels, size := MipChainSize(width, height)
	base := uint64(width) * uint64(height) * 4
	if levels == 0 || uint64(len(pixels)) != base {
		return nil, 0, errors.Errorf("pixel buffer is %d bytes, want %d for %dx%d", len(pixels), base, width, height)
	}

	chain := make([]byte, size)
	offset := uint64(copy(chain, pixels))
	prev := chain[:offset]
	for level := uint32(1); level < levels; level++ {
		src := &image.RGBA{Pix: prev, Stride: int(width) * 4, Rect: image.Rect(0, 0, int(width), int(height))}
		width, height = nextMipSize(width), nextMipSize(height)

		dst := transform.Resize(src, int(width), int(height), transform.Box)
		n := uint64(copy(chain[offset:], dst.Pix[:width*height*4]))
		prev = chain[offset : offset+n]
		offset += n
	}
	if offset != size {
		return nil, 0, errors.Errorf("mip chain wrote %d bytes, expected %d", offset, size)
	}
	return chain, levels, nil
}

// ConvertImage decodes inputPath and returns the texture metadata with its
// mip chain.
func (tb *TextureBaker) ConvertImage(inputPath string) (*metadata.TextureInfo, []byte, error) {
	clock := core.NewClock()
	clock.Start()
	res, err := tb.Loader.Load(inputPath, metadata.ResourceTypeImage, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tb.Loader.Unload(res)
	clock.Stop()
	core.LogDebug("decoding %s took %.3fms", inputPath, clock.ElapsedMS())

	img, ok := res.Data.(*metadata.ImageResourceData)
	if !ok || img.ChannelCount != 4 {
		return nil, nil, errors.Wrapf(core.ErrUnsupportedImage, "%s: loader did not produce RGBA8 data", inputPath)
	}

	clock.Start()
	chain, levels, err := GenerateMips(img.Pixels, img.Width, img.Height)
	if err != nil {
		return nil, nil, errors.Wrap(err, inputPath)
	}
	clock.Stop()
	core.LogDebug("creating %d mipmaps for %s took %.3fms", levels, inputPath, clock.ElapsedMS())

	return &metadata.TextureInfo{
		OriginalSize:  uint64(len(chain)),
		Width:         img.Width,
		Height:        img.Height,
		TextureFormat: ClassifyTexture(inputPath, tb.DiffuseSuffix),
		OriginalFile:  inputPath,
		MipLevels:     levels,
	}, chain, nil
}

// Bake converts inputPath and writes the texture asset to outputPath.
func (tb *TextureBaker) Bake(inputPath, outputPath string) (*metadata.TextureInfo, error) {
	info, chain, err := tb.ConvertImage(inputPath)
	if err != nil {
		return nil, err
	}
	file, err := codec.PackTexture(info, chain, tb.Compression)
	if err != nil {
		return nil, errors.Wrap(err, inputPath)
	}
	if err := codec.SaveBinaryFile(outputPath, file); err != nil {
		return nil, err
	}
	return info, nil
}
