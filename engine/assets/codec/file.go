// Package codec implements the baked asset container: a fixed header, a
// textual metadata document and an opaque, optionally compressed payload.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

// maxMetadataSize bounds the metadata document so a corrupt header cannot
// trigger a huge allocation.
const maxMetadataSize = 1 << 20

// AssetFile is the in-memory form of a baked file.
type AssetFile struct {
	Kind        metadata.AssetKind
	Version     uint32
	Compression metadata.CompressionMode
	// Metadata is the YAML document describing how to read Blob.
	Metadata []byte
	// Blob is the payload as stored, compressed according to Compression.
	Blob []byte
}

func (af *AssetFile) header() metadata.ResourceHeader {
	return metadata.ResourceHeader{
		Kind:         af.Kind,
		Version:      af.Version,
		Compression:  af.Compression,
		MetadataSize: uint32(len(af.Metadata)),
		PayloadSize:  uint64(len(af.Blob)),
	}
}

// WriteTo serializes the file.
func (af *AssetFile) WriteTo(w io.Writer) (int64, error) {
	if len(af.Metadata) > maxMetadataSize {
		return 0, errors.Errorf("metadata document too large: %d bytes", len(af.Metadata))
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, af.header()); err != nil {
		return 0, err
	}
	if _, err := bw.Write(af.Metadata); err != nil {
		return 0, err
	}
	if _, err := bw.Write(af.Blob); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(metadata.ResourceHeaderSize + len(af.Metadata) + len(af.Blob)), nil
}

// ReadAssetFile parses a baked file from r.
func ReadAssetFile(r io.Reader) (*AssetFile, error) {
	var h metadata.ResourceHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(core.ErrCorruptAsset, "reading header: "+err.Error())
	}
	if h.Kind.ResourceType() == metadata.ResourceTypeNone {
		return nil, errors.Wrapf(core.ErrUnknownAssetKind, "kind %q", h.Kind.String())
	}
	if h.Version != metadata.AssetVersion {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "unsupported version %d", h.Version)
	}
	if h.Compression > metadata.CompressionLZ4 {
		return nil, errors.Wrapf(core.ErrUnknownCompression, "mode %d", uint32(h.Compression))
	}
	if h.MetadataSize > maxMetadataSize {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "metadata size %d", h.MetadataSize)
	}

	af := &AssetFile{
		Kind:        h.Kind,
		Version:     h.Version,
		Compression: h.Compression,
		Metadata:    make([]byte, h.MetadataSize),
	}
	if _, err := io.ReadFull(r, af.Metadata); err != nil {
		return nil, errors.Wrap(core.ErrCorruptAsset, "reading metadata: "+err.Error())
	}
	// The payload is read through a limited buffer rather than allocated from
	// the header size, which may be corrupt.
	var blob bytes.Buffer
	n, err := io.Copy(&blob, io.LimitReader(r, int64(h.PayloadSize)))
	if err != nil {
		return nil, errors.Wrap(core.ErrCorruptAsset, "reading payload: "+err.Error())
	}
	if uint64(n) != h.PayloadSize {
		return nil, errors.Wrapf(core.ErrCorruptAsset, "payload truncated: %d of %d bytes", n, h.PayloadSize)
	}
	af.Blob = blob.Bytes()
	return af, nil
}

// SaveBinaryFile writes file to path. The data goes to a temporary sibling
// first and is renamed into place, so a failed write never leaves a partial
// asset behind. Parent directories must already exist.
func SaveBinaryFile(path string, file *AssetFile) error {
	tmp := path + "." + uuid.NewString() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	if _, err := file.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "closing %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "renaming into %s", path)
	}
	return nil
}

// LoadBinaryFile reads the baked file at path.
func LoadBinaryFile(path string) (*AssetFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	af, err := ReadAssetFile(bufio.NewReader(f))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return af, nil
}
