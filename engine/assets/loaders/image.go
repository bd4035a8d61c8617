package loaders

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

type decodeFunc func(io.Reader) (image.Image, error)

// decoders is keyed by the extension filetype reports for the file header.
// TGA has no signature and is picked by file extension instead.
var decoders = map[string]decodeFunc{
	"png": png.Decode,
	"jpg": jpeg.Decode,
	"bmp": bmp.Decode,
	"tga": tga.Decode,
}

// sniffFormat names the decoder for data, looking at the content first.
func sniffFormat(path string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.Extension
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// ImageLoader decodes png, jpeg, tga and bmp files into tightly packed RGBA8.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	format := sniffFormat(path, data)
	decode, ok := decoders[format]
	if !ok {
		return nil, errors.Wrapf(core.ErrUnsupportedImage, "%s: format %q", path, format)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(core.ErrUnsupportedImage, "%s: %v", path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Wrapf(core.ErrUnsupportedImage, "%s: empty image", path)
	}

	rgba := ToNRGBA(img)
	if flip {
		flipRows(rgba)
	}
	b := rgba.Bounds()

	core.LogDebug("decoded %s image %s (%dx%d)", format, path, b.Dx(), b.Dy())

	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     format,
		FullPath: path,
		DataSize: uint64(len(rgba.Pix)),
		Data: &metadata.ImageResourceData{
			ChannelCount: 4,
			Width:        uint32(b.Dx()),
			Height:       uint32(b.Dy()),
			Pixels:       rgba.Pix,
		},
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// ToNRGBA returns img as a zero-origin, straight alpha RGBA8 image whose Pix
// has no row padding.
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == 4*nrgba.Rect.Dx() {
		return nrgba
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(nrgba, image.Point{}, img, b, draw.Src, nil)
	return nrgba
}

func flipRows(img *image.NRGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
