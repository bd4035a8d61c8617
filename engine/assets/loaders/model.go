package loaders

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

// ModelLoader parses .gltf and .glb files, external buffers included.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	doc, err := openDocument(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrGLTFParse, "%s: %v", path, err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, errors.Wrapf(core.ErrGLTFParse, "%s: %v", path, err)
	}

	size := uint64(0)
	for _, b := range doc.Buffers {
		size += uint64(len(b.Data))
	}

	return &metadata.Resource{
		Type:     metadata.ResourceTypeModel,
		Name:     path,
		FullPath: path,
		DataSize: size,
		Data:     doc,
	}, nil
}

func (ml *ModelLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// openDocument parses path, turning a panic of the parser on malformed input
// into an error.
func openDocument(path string) (doc *gltf.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, errors.Errorf("malformed document: %v", r)
		}
	}()
	return gltf.Open(path)
}

// validateDocument checks the references the mesh extractor follows, so that
// a dangling index is reported as a parse failure of the whole file.
func validateDocument(doc *gltf.Document) error {
	for i, b := range doc.Buffers {
		if b == nil {
			return errors.Errorf("buffer %d is null", i)
		}
	}
	for i, bv := range doc.BufferViews {
		if bv == nil {
			return errors.Errorf("bufferView %d is null", i)
		}
		if int(bv.Buffer) >= len(doc.Buffers) {
			return errors.Errorf("bufferView %d references missing buffer %d", i, bv.Buffer)
		}
	}
	for i, a := range doc.Accessors {
		if a == nil {
			return errors.Errorf("accessor %d is null", i)
		}
		if a.BufferView != nil && int(*a.BufferView) >= len(doc.BufferViews) {
			return errors.Errorf("accessor %d references missing bufferView %d", i, *a.BufferView)
		}
	}
	for mi, m := range doc.Meshes {
		if m == nil {
			return errors.Errorf("mesh %d is null", mi)
		}
		for pi, p := range m.Primitives {
			if p == nil {
				return errors.Errorf("mesh %d primitive %d is null", mi, pi)
			}
			for name, idx := range p.Attributes {
				if int(idx) >= len(doc.Accessors) {
					return errors.Errorf("mesh %d primitive %d attribute %s references missing accessor %d", mi, pi, name, idx)
				}
			}
			if p.Indices != nil && int(*p.Indices) >= len(doc.Accessors) {
				return errors.Errorf("mesh %d primitive %d references missing index accessor %d", mi, pi, *p.Indices)
			}
		}
	}
	return nil
}
