package metadata

import "fmt"

/**
 * @brief The pixel format of a baked texture, which also selects how the
 * renderer samples it.
 */
type TextureFormat uint32

const (
	TextureFormatUnknown TextureFormat = iota
	/** @brief Linear 8-bit RGBA. Normal, roughness and other data maps. */
	TextureFormatRGBA8
	/** @brief 8-bit RGBA sampled with sRGB decoding. Diffuse/albedo maps. */
	TextureFormatSRGBA8
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "RGBA8"
	case TextureFormatSRGBA8:
		return "SRGBA8"
	default:
		return "Unknown"
	}
}

func ParseTextureFormat(s string) (TextureFormat, error) {
	switch s {
	case "RGBA8":
		return TextureFormatRGBA8, nil
	case "SRGBA8":
		return TextureFormatSRGBA8, nil
	default:
		return TextureFormatUnknown, fmt.Errorf("unknown texture format %q", s)
	}
}

/** @brief Storage format written in the metadata "format" key. */
const TextureStorageFormat string = "RGBA8"

/**
 * @brief Metadata of a baked texture.
 */
type TextureInfo struct {
	/** @brief Size in bytes of the uncompressed mip chain. */
	OriginalSize uint64
	/** @brief Width of mip 0 in texels. */
	Width uint32
	/** @brief Height of mip 0 in texels. */
	Height uint32
	/** @brief Sampling format. */
	TextureFormat TextureFormat
	/** @brief Source file, for diagnostics only. */
	OriginalFile string
	/** @brief Number of mip levels, mip 0 included. */
	MipLevels uint32
	/** @brief How the payload is stored. */
	CompressionMode CompressionMode
}
