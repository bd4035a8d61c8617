package loaders

import (
	"github.com/spaghettifunk/anima-baker/engine/assets/codec"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
)

// BinaryLoader reads back baked .tx and .mesh files.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	file, err := codec.LoadBinaryFile(path)
	if err != nil {
		return nil, err
	}

	return &metadata.Resource{
		Type:     file.Kind.ResourceType(),
		Name:     file.Kind.String(),
		FullPath: path,
		DataSize: uint64(len(file.Blob)),
		Data:     file,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
