package core

import (
	"errors"
)

var (
	ErrUnsupportedImage    = errors.New("unsupported or corrupt image")
	ErrGLTFParse           = errors.New("failed to parse glTF")
	ErrUnknownAssetKind    = errors.New("unknown asset kind")
	ErrCorruptAsset        = errors.New("corrupt asset file")
	ErrUnknownVertexFormat = errors.New("unknown vertex format")
	ErrUnknownCompression  = errors.New("unknown compression mode")
	ErrInvalidConfig       = errors.New("invalid configuration")
)
