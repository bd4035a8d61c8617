package metadata

import (
	"fmt"
	"strings"
)

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Files the baker does not handle. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Source image (png, jpg, tga, bmp). */
	ResourceTypeImage
	/** @brief Source glTF model. */
	ResourceTypeModel
	/** @brief Baked texture asset. */
	ResourceTypeTexture
	/** @brief Baked mesh asset. */
	ResourceTypeMesh
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeMesh:
		return "mesh"
	default:
		return "none"
	}
}

/** @brief Extension of baked textures. */
const TextureExtension string = ".tx"

/** @brief Extension of baked mesh primitives. */
const MeshExtension string = ".mesh"

/** @brief The format version written by this baker. */
const AssetVersion uint32 = 1

// AssetKind is the four character tag opening every baked file.
type AssetKind [4]byte

var (
	AssetKindTexture = AssetKind{'T', 'E', 'X', 'I'}
	AssetKindMesh    = AssetKind{'M', 'E', 'S', 'H'}
)

func (k AssetKind) String() string {
	return string(k[:])
}

// ResourceType maps the tag to the baked resource type, or ResourceTypeNone.
func (k AssetKind) ResourceType() ResourceType {
	switch k {
	case AssetKindTexture:
		return ResourceTypeTexture
	case AssetKindMesh:
		return ResourceTypeMesh
	default:
		return ResourceTypeNone
	}
}

// CompressionMode tells how the payload of a baked file is stored.
type CompressionMode uint32

const (
	CompressionNone CompressionMode = iota
	CompressionLZ4
)

func (c CompressionMode) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("CompressionMode(%d)", uint32(c))
	}
}

// ParseCompressionMode accepts the metadata spelling ("LZ4", "None") in any case.
func ParseCompressionMode(s string) (CompressionMode, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression mode %q", s)
	}
}

/**
 * @brief The header of every baked asset file. Written little-endian,
 * followed by the metadata document and then the payload.
 */
type ResourceHeader struct {
	/** @brief The asset kind tag. */
	Kind AssetKind
	/** @brief The format version this resource uses. */
	Version uint32
	/** @brief How the payload is stored. */
	Compression CompressionMode
	/** @brief Length in bytes of the metadata document. */
	MetadataSize uint32
	/** @brief Length in bytes of the stored payload. */
	PayloadSize uint64
}

/** @brief Size in bytes of ResourceHeader on disk. */
const ResourceHeaderSize int = 24

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The resource type. */
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
