/*
anima-baker converts the source assets of a game into the binary texture
and mesh files the engine loads at runtime.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spaghettifunk/anima-baker/engine/assets"
	"github.com/spaghettifunk/anima-baker/engine/assets/codec"
	"github.com/spaghettifunk/anima-baker/engine/assets/loaders"
	"github.com/spaghettifunk/anima-baker/engine/core"
	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"github.com/spf13/cobra"
)

type bakeOptions struct {
	configPath string
	logLevel   string
	workers    int
	watch      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &bakeOptions{}
	root := &cobra.Command{
		Use:   "anima-baker <asset-dir>",
		Short: "Bake source textures and glTF models into engine assets",
		Long: "Bakes every image and glTF model below <asset-dir> into <parent>/assets_export,\n" +
			"mirroring the directory structure. Textures become .tx files and every glTF\n" +
			"primitive becomes a .mesh file inside a <name>_GLTF folder.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBake(cmd, args[0], opts)
		},
	}
	bake := &cobra.Command{
		Use:           "bake <asset-dir>",
		Short:         "Bake an asset directory",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBake(cmd, args[0], opts)
		},
	}
	for _, c := range []*cobra.Command{root, bake} {
		c.Flags().StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file (default: baker.toml next to <asset-dir>, if present)")
		c.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
		c.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of files baked concurrently")
		c.Flags().BoolVar(&opts.watch, "watch", false, "keep running and re-bake files as they change")
	}
	root.AddCommand(bake, newInspectCommand())
	return root
}

// loadConfig reads the explicit configuration file, or baker.toml next to
// the asset directory when there is one, and applies flag overrides.
func loadConfig(cmd *cobra.Command, dir string, opts *bakeOptions) (*core.Config, error) {
	cfg := core.DefaultConfig()
	path := opts.configPath
	if path == "" {
		candidate := filepath.Join(filepath.Dir(filepath.Clean(dir)), core.DefaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		var err error
		if cfg, err = core.LoadConfig(path); err != nil {
			return nil, err
		}
		core.LogDebug("loaded configuration from %s", path)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.workers
	}
	return cfg, cfg.Validate()
}

func runBake(cmd *cobra.Command, dir string, opts *bakeOptions) error {
	cfg, err := loadConfig(cmd, dir, opts)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	core.SetLogLevel(cfg.LogLevel)

	baker, err := assets.NewBaker(cfg)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := baker.Initialize(dir); err != nil {
		core.LogError(err.Error())
		return err
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := baker.Run(ctx); err != nil {
		core.LogError(err.Error())
		return err
	}
	if opts.watch {
		return baker.Watch(ctx)
	}
	return nil
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "inspect <file.tx|file.mesh>...",
		Short:         "Print the header and metadata of baked assets",
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := inspect(cmd, path); err != nil {
					core.LogError("%s: %v", path, err)
					return err
				}
			}
			return nil
		},
	}
}

func inspect(cmd *cobra.Command, path string) error {
	loader := &loaders.BinaryLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeBinary, nil)
	if err != nil {
		return err
	}
	defer loader.Unload(res)
	file := res.Data.(*codec.AssetFile)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n  kind: %s\n  version: %d\n  compression: %s\n  stored payload: %d bytes\n",
		path, file.Kind, file.Version, file.Compression, len(file.Blob))

	switch file.Kind {
	case metadata.AssetKindTexture:
		info, err := codec.ReadTextureInfo(file)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  texture: %dx%d %s, %d mips\n", info.Width, info.Height, info.TextureFormat, info.MipLevels)
	case metadata.AssetKindMesh:
		info, err := codec.ReadMeshInfo(file)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  mesh: %d vertices %s, %d indices\n", info.VertexCount(), info.VertexFormat, info.IndexCount())
	default:
		return core.ErrUnknownAssetKind
	}

	fmt.Fprintln(out, "  metadata:")
	for _, line := range strings.Split(strings.TrimRight(string(file.Metadata), "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	return nil
}
