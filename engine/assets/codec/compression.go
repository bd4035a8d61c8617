package codec

import (
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

// compress encodes raw with the requested mode. The returned mode can differ
// from the requested one: data that LZ4 cannot shrink is stored as is.
func compress(mode metadata.CompressionMode, raw []byte) (metadata.CompressionMode, []byte, error) {
	switch mode {
	case metadata.CompressionNone:
		return metadata.CompressionNone, raw, nil
	case metadata.CompressionLZ4:
		if len(raw) == 0 {
			return metadata.CompressionNone, raw, nil
		}
		var c lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := c.CompressBlock(raw, dst)
		if err != nil {
			return mode, nil, errors.Wrap(err, "lz4 compress")
		}
		if n == 0 || n >= len(raw) {
			return metadata.CompressionNone, raw, nil
		}
		return metadata.CompressionLZ4, dst[:n], nil
	default:
		return mode, nil, errors.Wrapf(core.ErrUnknownCompression, "mode %d", uint32(mode))
	}
}

// decompress restores a payload whose uncompressed size is known from the metadata.
func decompress(mode metadata.CompressionMode, stored []byte, size uint64) ([]byte, error) {
	switch mode {
	case metadata.CompressionNone:
		if uint64(len(stored)) != size {
			return nil, errors.Wrapf(core.ErrCorruptAsset, "payload is %d bytes, metadata says %d", len(stored), size)
		}
		return stored, nil
	case metadata.CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, dst)
		if err != nil {
			return nil, errors.Wrap(core.ErrCorruptAsset, "lz4: "+err.Error())
		}
		if uint64(n) != size {
			return nil, errors.Wrapf(core.ErrCorruptAsset, "decompressed %d bytes, metadata says %d", n, size)
		}
		return dst, nil
	default:
		return nil, errors.Wrapf(core.ErrUnknownCompression, "mode %d", uint32(mode))
	}
}
