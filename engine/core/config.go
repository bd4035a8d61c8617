package core

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// DefaultConfigName is looked up next to the source directory when no
// explicit configuration file is given.
const DefaultConfigName string = "baker.toml"

// Config drives a bake run.
type Config struct {
	// ExportDir is the name of the export tree, created as a sibling of the source directory.
	ExportDir string `toml:"export_dir"`
	// DiffuseSuffix marks colour textures that are sampled in sRGB.
	DiffuseSuffix string `toml:"diffuse_suffix"`
	// Compression is either "lz4" or "none".
	Compression string `toml:"compression"`
	// Workers is the number of concurrent bake jobs. 1 bakes synchronously.
	Workers int `toml:"workers"`
	// StaticVertexFormat is the layout used for files without skins.
	StaticVertexFormat string `toml:"static_vertex_format"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// ImageExtensions lists the extensions routed to the texture baker.
	ImageExtensions []string `toml:"image_extensions"`
}

func DefaultConfig() *Config {
	return &Config{
		ExportDir:          "assets_export",
		DiffuseSuffix:      "_diff",
		Compression:        "lz4",
		Workers:            1,
		StaticVertexFormat: "PNTV_F32",
		LogLevel:           "info",
		ImageExtensions:    []string{".png", ".jpg", ".jpeg", ".tga", ".bmp"},
	}
}

// LoadConfig reads a TOML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data on top of the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Compression) {
	case "lz4", "none":
	default:
		return errors.Wrapf(ErrInvalidConfig, "compression %q", c.Compression)
	}
	switch c.StaticVertexFormat {
	case "PNTV_F32", "PNCV_F32", "P32N8C8V16":
	default:
		return errors.Wrapf(ErrInvalidConfig, "static_vertex_format %q", c.StaticVertexFormat)
	}
	if c.Workers < 1 {
		return errors.Wrapf(ErrInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	}
	if c.ExportDir == "" {
		return errors.Wrap(ErrInvalidConfig, "export_dir is empty")
	}
	return nil
}

// IsImageExtension reports whether ext (with its dot) is routed to the texture baker.
func (c *Config) IsImageExtension(ext string) bool {
	for _, e := range c.ImageExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
