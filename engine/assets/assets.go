package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/anima-baker/engine/assets/bakers"
	"github.com/spaghettifunk/anima-baker/engine/assets/loaders"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"github.com/spaghettifunk/anima-baker/engine/systems"
)

// MeshFolderSuffix is appended to the stem of a glTF file to name the folder
// holding its meshes.
const MeshFolderSuffix string = "_GLTF"

// FatalError aborts a whole bake run.
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// AssetInfo records what a source file was baked into.
type AssetInfo struct {
	Path      string
	Type      metadata.ResourceType
	Outputs   []string
	LastBaked time.Time
}

// Baker walks a source tree and writes baked assets into the export tree
// next to it.
type Baker struct {
	config    *core.Config
	sourceDir string
	exportDir string

	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	textures *bakers.TextureBaker
	meshes   *bakers.MeshBaker
	metrics  *core.BakeMetrics

	mutex sync.RWMutex
}

func NewBaker(config *core.Config) (*Baker, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	compression, err := metadata.ParseCompressionMode(config.Compression)
	if err != nil {
		return nil, err
	}
	staticFormat, err := metadata.ParseVertexFormat(config.StaticVertexFormat)
	if err != nil {
		return nil, err
	}

	b := &Baker{
		config:  config,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		metrics: core.NewBakeMetrics(),
	}
	b.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	b.registerLoader(metadata.ResourceTypeModel, &loaders.ModelLoader{})
	b.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	b.textures = &bakers.TextureBaker{
		Loader:        b.loaders[metadata.ResourceTypeImage],
		DiffuseSuffix: config.DiffuseSuffix,
		Compression:   compression,
	}
	b.meshes = &bakers.MeshBaker{
		StaticFormat: staticFormat,
		Compression:  compression,
	}
	return b, nil
}

// Initialize sets the source tree. The export tree is a sibling of it.
func (b *Baker) Initialize(sourceDir string) error {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.Errorf("%s is not a directory", sourceDir)
	}
	b.sourceDir = abs
	b.exportDir = filepath.Join(filepath.Dir(abs), b.config.ExportDir)
	return nil
}

// Register loaders for each asset type
func (b *Baker) registerLoader(assetType metadata.ResourceType, loader Loader) {
	b.loaders[assetType] = loader
}

// Loader returns the loader registered for assetType, if any.
func (b *Baker) Loader(assetType metadata.ResourceType) (Loader, bool) {
	l, ok := b.loaders[assetType]
	return l, ok
}

func (b *Baker) ExportDir() string { return b.exportDir }

func (b *Baker) Metrics() *core.BakeMetrics { return b.metrics }

// Assets lists the baked source files, sorted by path.
func (b *Baker) Assets() []AssetInfo {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(b.assets))
	for _, a := range b.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ExportPath mirrors path, which must be inside the source tree, into the
// export tree.
func (b *Baker) ExportPath(path string) (string, error) {
	rel, err := filepath.Rel(b.sourceDir, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s is outside of %s", path, b.sourceDir)
	}
	return filepath.Join(b.exportDir, rel), nil
}

// Run bakes every file of the source tree. With more than one worker the
// files are baked by a job system. The first fatal error stops the walk,
// cancels the jobs not yet started and is returned.
func (b *Baker) Run(ctx context.Context) error {
	if b.sourceDir == "" {
		return errors.New("baker is not initialized")
	}
	core.LogInfo("baking %s into %s", b.sourceDir, b.exportDir)
	defer b.metrics.Report()

	if b.config.Workers <= 1 {
		return b.walk(ctx, func(path string) error {
			return b.BakeFile(path)
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	js, err := systems.NewJobSystem(b.config.Workers, b.config.Workers*2)
	if err != nil {
		return err
	}

	var fatal error
	var fatalOnce sync.Once
	walkErr := b.walk(ctx, func(path string) error {
		js.Submit(metadata.JobTask{
			InputParams: path,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return b.BakeFile(params.(string))
			},
			OnFailure: func(result interface{}) {
				err, _ := result.(error)
				var fe *FatalError
				if errors.As(err, &fe) {
					fatalOnce.Do(func() {
						fatal = fe
						cancel()
					})
				}
			},
		})
		return nil
	})
	js.Shutdown()

	if fatal != nil {
		return fatal
	}
	return walkErr
}

func (b *Baker) walk(ctx context.Context, visit func(path string) error) error {
	return filepath.Walk(b.sourceDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return b.walkError(path, fi, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fi.IsDir() {
			if path == b.exportDir {
				return filepath.SkipDir
			}
			return nil
		}
		return visit(path)
	})
}

// walkError handles an entry the walk could not read. Only an unreadable
// source root stops the run; anything below it is logged, counted as failed
// and skipped.
func (b *Baker) walkError(path string, fi os.FileInfo, err error) error {
	if path == b.sourceDir {
		return err
	}
	core.LogError("%s: %v", path, err)
	b.metrics.Failed.Add(1)
	if fi != nil && fi.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// BakeFile bakes a single source file. Per file failures are logged and
// counted; only a *FatalError is returned.
func (b *Baker) BakeFile(path string) error {
	assetType := b.determineAssetType(path)
	switch assetType {
	case metadata.ResourceTypeImage:
		return b.bakeTexture(path)
	case metadata.ResourceTypeModel:
		return b.bakeModel(path)
	default:
		b.metrics.Skipped.Add(1)
		return nil
	}
}

func (b *Baker) bakeTexture(path string) error {
	out, err := b.ExportPath(path)
	if err != nil {
		return b.fail(path, err)
	}
	out = strings.TrimSuffix(out, filepath.Ext(out)) + metadata.TextureExtension
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return b.fail(path, err)
	}

	info, err := b.textures.Bake(path, out)
	if err != nil {
		return b.fail(path, err)
	}
	core.LogInfo("texture %s -> %s (%dx%d, %d mips, %s)", path, out, info.Width, info.Height, info.MipLevels, info.TextureFormat)
	b.metrics.Textures.Add(1)
	b.record(path, metadata.ResourceTypeTexture, []string{out})
	return nil
}

func (b *Baker) bakeModel(path string) error {
	loader := b.loaders[metadata.ResourceTypeModel]
	res, err := loader.Load(path, metadata.ResourceTypeModel, nil)
	if err != nil {
		b.metrics.Failed.Add(1)
		return &FatalError{Path: path, Err: err}
	}
	defer loader.Unload(res)
	doc, ok := res.Data.(*gltf.Document)
	if !ok {
		b.metrics.Failed.Add(1)
		return &FatalError{Path: path, Err: core.ErrGLTFParse}
	}

	out, err := b.ExportPath(path)
	if err != nil {
		return b.fail(path, err)
	}
	folder := filepath.Join(filepath.Dir(out), strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+MeshFolderSuffix)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return b.fail(path, err)
	}

	saved, failures := b.meshes.Bake(doc, path, folder)
	for _, f := range failures {
		core.LogError("%s: skipped %v", path, f)
	}
	b.metrics.Meshes.Add(uint64(len(saved)))
	b.metrics.Failed.Add(uint64(len(failures)))
	core.LogInfo("model %s -> %s (%d meshes)", path, folder, len(saved))
	b.record(path, metadata.ResourceTypeMesh, saved)
	return nil
}

func (b *Baker) fail(path string, err error) error {
	core.LogError("%s: %v", path, err)
	b.metrics.Failed.Add(1)
	return nil
}

func (b *Baker) record(path string, assetType metadata.ResourceType, outputs []string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.assets[path] = AssetInfo{
		Path:      path,
		Type:      assetType,
		Outputs:   outputs,
		LastBaked: time.Now(),
	}
}

// Remove the asset from the index if it was deleted
func (b *Baker) removeAsset(path string) (AssetInfo, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	info, ok := b.assets[path]
	delete(b.assets, path)
	return info, ok
}

func (b *Baker) determineAssetType(path string) metadata.ResourceType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case b.config.IsImageExtension(ext):
		return metadata.ResourceTypeImage
	case ext == ".gltf" || ext == ".glb":
		return metadata.ResourceTypeModel
	default:
		return metadata.ResourceTypeNone
	}
}
